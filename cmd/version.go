package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"text/template"

	"github.com/anisan-cli/seriesdl/color"
	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/anisan-cli/seriesdl/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// buildInfo is what the version command reports.
type buildInfo struct {
	App      string `json:"app"`
	Version  string `json:"version"`
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	BuiltAt  string `json:"built_at"`
	BuiltBy  string `json:"built_by"`
	Revision string `json:"revision"`
}

func currentBuild() buildInfo {
	return buildInfo{
		App:      constant.App,
		Version:  constant.Version,
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		BuiltAt:  strings.TrimSpace(constant.BuiltAt),
		BuiltBy:  constant.BuiltBy,
		Revision: constant.Revision,
	}
}

var versionTemplate = template.Must(template.New("version").Funcs(template.FuncMap{
	"faint":   style.Faint,
	"bold":    style.Bold,
	"magenta": style.Fg(color.Purple),
}).Parse(constant.VersionTemplate))

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "Print only the version number")
	versionCmd.Flags().BoolP("json", "j", false, "Print build metadata as JSON")
	versionCmd.MarkFlagsMutuallyExclusive("short", "json")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build metadata",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()

		switch {
		case lo.Must(cmd.Flags().GetBool("short")):
			fmt.Fprintln(out, constant.Version)
		case lo.Must(cmd.Flags().GetBool("json")):
			handleErr(json.NewEncoder(out).Encode(currentBuild()))
		default:
			handleErr(versionTemplate.Execute(out, currentBuild()))
			version.Notify(out)
		}
	},
}
