package cmd

import (
	"context"
	"os"

	"github.com/anisan-cli/seriesdl/inline"
	"github.com/anisan-cli/seriesdl/source"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON object")
	fetchCmd.SetOut(os.Stdout)
}

// fetchCmd resolves a series page and lists its episodes without downloading them.
var fetchCmd = &cobra.Command{
	Use:               "fetch <url>",
	Short:             "Resolve a series and list its episodes",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionSeriesURLs,
	Run: func(cmd *cobra.Command, args []string) {
		url := args[0]

		handleErr(inline.Fetch(context.Background(), newEngine(), &inline.Options{
			Out:  cmd.OutOrStdout(),
			URL:  url,
			Json: lo.Must(cmd.Flags().GetBool("json")),
			Fetched: func(series *source.Series) {
				remember(url, series)
			},
		}))
	},
}
