package merge

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/filesystem"
)

// quote wraps path in single quotes for the concat demuxer, escaping embedded quotes.
func quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// manifest renders the concat list for inputs.
func manifest(inputs []string) (string, error) {
	var b strings.Builder

	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		if strings.ContainsAny(abs, "\r\n") {
			return "", fmt.Errorf("input path contains a line break: %q", input)
		}
		fmt.Fprintf(&b, "file %s\n", quote(abs))
	}

	return b.String(), nil
}

// writeManifest stores the concat list in dir and returns its path.
func writeManifest(dir string, inputs []string) (string, error) {
	content, err := manifest(inputs)
	if err != nil {
		return "", err
	}

	fs := filesystem.API()
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	file, err := fs.TempFile(dir, constant.MergeManifestPrefix+"*.txt")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := file.WriteString(content); err != nil {
		_ = fs.Remove(file.Name())
		return "", err
	}

	return file.Name(), nil
}
