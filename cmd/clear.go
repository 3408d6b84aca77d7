package cmd

import (
	"fmt"

	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/icon"
	"github.com/anisan-cli/seriesdl/util"
	"github.com/anisan-cli/seriesdl/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// clearTarget is a directory or file the clear command can remove.
type clearTarget struct {
	name     string
	flag     string
	short    mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"series cache", "series", mo.Some("s"), where.Series},
	{"history file", "history", mo.None[string](), where.History},
	{"remembered series", "queries", mo.Some("q"), where.Queries},
	{"temp directory", "temp", mo.Some("t"), where.Temp},
}

// clear removes the target and reports how much space it took.
func (t clearTarget) clear() (int64, error) {
	path := t.location()

	size, err := filesystem.Size(path)
	if err != nil {
		return 0, err
	}

	return size, filesystem.API().RemoveAll(path)
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, t := range clearTargets {
		clearCmd.Flags().BoolP(t.flag, t.short.OrEmpty(), false, "Clear the "+t.name)
	}
	clearCmd.Flags().BoolP("all", "a", false, "Clear everything except the history")
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached and temporary files",
	Run: func(cmd *cobra.Command, args []string) {
		all := lo.Must(cmd.Flags().GetBool("all"))

		selected := lo.Filter(clearTargets, func(t clearTarget, _ int) bool {
			if all && t.flag != "history" {
				return true
			}
			return lo.Must(cmd.Flags().GetBool(t.flag))
		})

		if len(selected) == 0 {
			handleErr(cmd.Help())
			return
		}

		var freed int64
		for _, t := range selected {
			erase := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), t.name))
			size, err := t.clear()
			erase()
			handleErr(err)

			freed += size
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(t.name))
		}

		if freed > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s freed\n", util.Bytes(freed))
		}
	},
}
