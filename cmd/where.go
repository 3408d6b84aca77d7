package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/anisan-cli/seriesdl/color"
	"github.com/anisan-cli/seriesdl/config"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/anisan-cli/seriesdl/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// location is a path the where command can print.
type location struct {
	name   string
	path   func() string
	flag   string
	short  mo.Option[string]
	hidden bool
}

var locations = []location{
	{"Config", where.Config, "config", mo.Some("c"), false},
	{"Downloads", downloadsDir, "downloads", mo.Some("d"), false},
	{"Logs", where.Logs, "logs", mo.Some("l"), false},
	{"History", where.History, "history", mo.None[string](), false},
	{"Cache", where.Cache, "cache", mo.None[string](), true},
	{"Series cache", where.Series, "series", mo.None[string](), true},
	{"Queries", where.Queries, "queries", mo.None[string](), true},
	{"Temp", where.Temp, "temp", mo.None[string](), true},
}

// downloadsDir is the configured output directory.
func downloadsDir() string {
	if dir := config.Load().OutputDir; dir != "" {
		return dir
	}
	return where.Downloads()
}

func init() {
	rootCmd.AddCommand(whereCmd)

	for _, l := range locations {
		whereCmd.Flags().BoolP(l.flag, l.short.OrEmpty(), false, "Print only the "+l.name+" path")
		if l.hidden {
			lo.Must0(whereCmd.Flags().MarkHidden(l.flag))
		}
	}

	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(locations, func(l location, _ int) string {
		return l.flag
	})...)

	whereCmd.Flags().BoolP("json", "j", false, "Print every path as a JSON object")
}

var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where files are stored",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()

		if l, ok := lo.Find(locations, func(l location) bool {
			return lo.Must(cmd.Flags().GetBool(l.flag))
		}); ok {
			fmt.Fprintln(out, l.path())
			return
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(lo.SliceToMap(locations, func(l location) (string, string) {
				return l.flag, l.path()
			})))
			return
		}

		header := style.New().Bold(true).Foreground(color.HiPurple).Render
		visible := lo.Reject(locations, func(l location, _ int) bool {
			return l.hidden
		})

		for i, l := range visible {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s %s\n%s\n", header(l.name+"?"), style.Fg(color.Yellow)("--"+l.flag), l.path())
		}
	},
}
