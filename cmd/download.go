package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/anisan-cli/seriesdl/config"
	"github.com/anisan-cli/seriesdl/engine"
	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/inline"
	"github.com/anisan-cli/seriesdl/key"
	"github.com/anisan-cli/seriesdl/log"
	"github.com/anisan-cli/seriesdl/open"
	"github.com/anisan-cli/seriesdl/query"
	"github.com/anisan-cli/seriesdl/source"
	"github.com/anisan-cli/seriesdl/tui"
	"github.com/anisan-cli/seriesdl/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringP("episodes", "e", "", "Episodes to download: all, first, last, N, A-B or a comma separated list")

	downloadCmd.Flags().StringP("output-dir", "o", "", "Directory where episodes and the merged file are written")
	lo.Must0(viper.BindPFlag(key.DownloadsOutputDir, downloadCmd.Flags().Lookup("output-dir")))

	downloadCmd.Flags().IntP("concurrent", "c", config.Default[key.DownloadsConcurrent].Value.(int), "Number of episodes downloaded at the same time (1-5)")
	lo.Must0(viper.BindPFlag(key.DownloadsConcurrent, downloadCmd.Flags().Lookup("concurrent")))

	downloadCmd.Flags().IntP("limit", "l", 0, "Global speed limit in KB/s, 0 for unlimited")
	lo.Must0(viper.BindPFlag(key.DownloadsSpeedLimit, downloadCmd.Flags().Lookup("limit")))

	downloadCmd.Flags().StringP("naming", "n", "", "Episode file naming scheme")
	lo.Must0(viper.BindPFlag(key.DownloadsFileNaming, downloadCmd.Flags().Lookup("naming")))
	lo.Must0(downloadCmd.RegisterFlagCompletionFunc("naming", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return lo.Map(source.AvailableNamings(), func(n source.Naming, _ int) string {
			return string(n)
		}), cobra.ShellCompDirectiveNoFileComp
	}))

	downloadCmd.Flags().Bool("merge", true, "Merge the downloaded episodes into a single file")
	lo.Must0(viper.BindPFlag(key.MergeAuto, downloadCmd.Flags().Lookup("merge")))
	downloadCmd.Flags().Bool("no-merge", false, "Keep the episode files and skip merging")
	downloadCmd.MarkFlagsMutuallyExclusive("merge", "no-merge")

	downloadCmd.Flags().Bool("delete-after", false, "Delete episode files after a successful merge")
	lo.Must0(viper.BindPFlag(key.MergeDeleteAfter, downloadCmd.Flags().Lookup("delete-after")))

	downloadCmd.Flags().BoolP("json", "j", false, "Write events and the final results as JSON lines")
	downloadCmd.Flags().BoolP("tui", "t", false, "Show the interactive download dashboard")
	downloadCmd.MarkFlagsMutuallyExclusive("json", "tui")

	downloadCmd.Flags().Bool("open", false, "Open the output directory once the batch has finished")

	downloadCmd.SetOut(os.Stdout)
}

// downloadCmd resolves a series and downloads the selected episodes.
var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download the episodes of a series and merge them",
	Long: `Resolve a series page, download the selected episodes in parallel and merge
the completed ones into a single file.

Episode selectors:
  all - every episode (default with --json)
  first - the first available episode
  last - the last available episode
  [number] - a single episode
  [from]-[to] - every available episode in the range
  1,3,5-7 - any comma separated combination

Without a selector on a terminal the episodes are picked interactively.`,
	Aliases:           []string{"dl", "get"},
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionSeriesURLs,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			url     = args[0]
			asJson  = lo.Must(cmd.Flags().GetBool("json"))
			withTUI = lo.Must(cmd.Flags().GetBool("tui"))
			noMerge = lo.Must(cmd.Flags().GetBool("no-merge"))
			reveal  = lo.Must(cmd.Flags().GetBool("open"))
		)

		selector, err := pickSelector(lo.Must(cmd.Flags().GetString("episodes")), asJson)
		handleErr(err)

		configure := func(req *engine.Request) {
			if noMerge {
				req.AutoMerge = false
			}
		}

		eng := newEngine()
		ctx, cancel := signalContext(eng)
		defer cancel()

		var (
			series  *source.Series
			request engine.Request
		)

		if withTUI {
			series, err = eng.FetchSeries(ctx, url)
			handleErr(err)
			remember(url, series)

			episodes, err := selector(series.Episodes())
			handleErr(err)

			request = engine.NewRequest(series, episodes, eng.Settings())
			configure(&request)

			results, err := tui.Run(ctx, &tui.Options{Engine: eng, Series: series, Request: request})
			handleErr(err)
			inline.PrintSummary(cmd.OutOrStdout(), results)
		} else {
			handleErr(inline.Run(ctx, eng, &inline.Options{
				Out:      cmd.OutOrStdout(),
				URL:      url,
				Json:     asJson,
				Selector: selector,
				Configure: func(req *engine.Request) {
					configure(req)
					request = *req
				},
				Fetched: func(s *source.Series) {
					series = s
					remember(url, s)
				},
			}))
		}

		if reveal && series != nil {
			revealOutput(request, series)
		}
	},
}

// pickSelector parses the episodes flag. Without one, episodes are picked
// interactively on a terminal and all of them are taken otherwise.
func pickSelector(description string, asJson bool) (inline.Selector, error) {
	if description != "" || asJson || !util.IsTerminal() {
		return inline.ParseSelector(description)
	}
	return surveySelector, nil
}

func surveySelector(available []int) ([]int, error) {
	if len(available) == 0 {
		return nil, inline.ErrEmptySelection
	}

	options := lo.Map(available, func(ep int, _ int) string {
		return fmt.Sprintf("Episode %d", ep)
	})
	byOption := lo.SliceToMap(available, func(ep int) (string, int) {
		return fmt.Sprintf("Episode %d", ep), ep
	})

	var picked []string
	prompt := &survey.MultiSelect{
		Message:  "Select episodes to download",
		Options:  options,
		Default:  options,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &picked, survey.WithValidator(survey.Required)); err != nil {
		return nil, err
	}

	return lo.Map(picked, func(option string, _ int) int {
		return byOption[option]
	}), nil
}

func remember(url string, series *source.Series) {
	if err := query.Remember(url, series.Title, 1); err != nil {
		log.Warnf("could not remember %s: %s", url, err)
	}
}

// revealOutput shows the merged file, or the episode directory when nothing was merged.
func revealOutput(req engine.Request, series *source.Series) {
	dir := util.ExpandHome(req.OutputDir)
	if dir == "" {
		dir = config.Load().OutputDir
	}

	title := req.SeriesTitle
	if title == "" {
		title = series.Title
	}

	merged := filepath.Join(dir, source.MergedName(title))
	if ok, _ := filesystem.API().Exists(merged); ok {
		handleErr(open.Reveal(merged))
		return
	}
	handleErr(open.Start(dir))
}

func completionSeriesURLs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return lo.Map(query.SuggestMany(toComplete), func(s *query.Suggestion, _ int) string {
		return s.URL + "\t" + s.Title
	}), cobra.ShellCompDirectiveNoFileComp
}
