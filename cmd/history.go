package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anisan-cli/seriesdl/color"
	"github.com/anisan-cli/seriesdl/history"
	"github.com/anisan-cli/seriesdl/icon"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/anisan-cli/seriesdl/util"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON array")
	historyCmd.Flags().Bool("clear", false, "Remove every history record")
	historyCmd.Flags().StringP("remove", "r", "", "Remove the record with the given id")
	historyCmd.MarkFlagsMutuallyExclusive("json", "clear", "remove")
	lo.Must0(historyCmd.RegisterFlagCompletionFunc("remove", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		records, err := history.Get()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return lo.Map(records, func(r *history.Record, _ int) string {
			return r.ShortID() + "\t" + r.String()
		}), cobra.ShellCompDirectiveNoFileComp
	}))

	historyCmd.SetOut(os.Stdout)
}

// historyCmd lists and edits the finished batches.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the finished download batches",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("clear")) {
			handleErr(history.Clear())
			cmd.Printf("%s history cleared\n", style.Fg(color.Green)(icon.Get(icon.Success)))
			return
		}

		if id := lo.Must(cmd.Flags().GetString("remove")); id != "" {
			handleErr(history.Remove(id))
			cmd.Printf("%s removed %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), id)
			return
		}

		records, err := history.Get()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(records))
			return
		}

		if len(records) == 0 {
			cmd.Println(style.Faint("no batches yet"))
			return
		}

		for i, r := range records {
			cmd.Println(formatRecord(r))
			if i < len(records)-1 {
				cmd.Println()
			}
		}
	},
}

func formatRecord(r *history.Record) string {
	header := fmt.Sprintf("%s %s %s",
		style.Fg(color.Yellow)(r.ShortID()),
		style.Bold(r.SeriesTitle),
		recordStatus(r.Status),
	)

	lines := []string{
		header,
		fmt.Sprintf("  %s %s, took %s",
			style.Faint("started"),
			humanize.Time(r.StartedAt),
			r.Duration().Round(time.Second),
		),
		fmt.Sprintf("  %s %d/%d completed, %s",
			style.Faint("episodes"),
			len(r.Completed),
			len(r.Episodes),
			util.Bytes(r.TotalSize),
		),
	}

	if len(r.Failed) > 0 {
		lines = append(lines, fmt.Sprintf("  %s %v", style.Faint("failed"), r.Failed))
	}
	if len(r.Cancelled) > 0 {
		lines = append(lines, fmt.Sprintf("  %s %v", style.Faint("cancelled"), r.Cancelled))
	}
	if r.MergedPath != "" {
		lines = append(lines, fmt.Sprintf("  %s %s", style.Faint("merged"), r.MergedPath))
	} else {
		lines = append(lines, fmt.Sprintf("  %s %s", style.Faint("output"), r.OutputDir))
	}

	return strings.Join(lines, "\n")
}

func recordStatus(s history.Status) string {
	switch s {
	case history.StatusCompleted:
		return style.Fg(color.Green)(string(s))
	case history.StatusPartial:
		return style.Fg(color.Yellow)(string(s))
	case history.StatusCancelled:
		return style.Faint(string(s))
	default:
		return style.Fg(color.Red)(string(s))
	}
}
