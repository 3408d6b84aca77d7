// Package open shows finished downloads with the system's file manager.
package open

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/anisan-cli/seriesdl/constant"
)

// Start opens input (a directory, file or URL) with the default handler without waiting.
func Start(input string) error {
	cmd, ok := command(runtime.GOOS, input)
	if !ok {
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	return cmd.Start()
}

// Reveal shows file selected in its directory where the platform supports it,
// otherwise it opens the directory.
func Reveal(file string) error {
	cmd, ok := reveal(runtime.GOOS, file)
	if !ok {
		return Start(filepath.Dir(file))
	}
	return cmd.Start()
}

func command(goos, input string) (*exec.Cmd, bool) {
	switch goos {
	case constant.Windows:
		rundll := filepath.Join(os.Getenv("SYSTEMROOT"), "System32", "rundll32.exe")
		return exec.Command(rundll, "url.dll,FileProtocolHandler", input), true
	case constant.Darwin:
		return exec.Command("open", input), true
	case constant.Linux:
		return exec.Command("xdg-open", input), true
	case constant.Android:
		return exec.Command("termux-open", input), true
	default:
		return nil, false
	}
}

func reveal(goos, file string) (*exec.Cmd, bool) {
	switch goos {
	case constant.Windows:
		return exec.Command("explorer", "/select,"+file), true
	case constant.Darwin:
		return exec.Command("open", "-R", file), true
	default:
		return nil, false
	}
}
