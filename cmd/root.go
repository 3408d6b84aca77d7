// Package cmd implements the command-line interface for seriesdl.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/anisan-cli/seriesdl/color"
	"github.com/anisan-cli/seriesdl/config"
	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/engine"
	"github.com/anisan-cli/seriesdl/icon"
	"github.com/anisan-cli/seriesdl/key"
	"github.com/anisan-cli/seriesdl/log"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/anisan-cli/seriesdl/util"
	"github.com/anisan-cli/seriesdl/version"
	"github.com/anisan-cli/seriesdl/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().BoolP("write-history", "H", true, "Record finished batches in the history")
	lo.Must0(viper.BindPFlag(key.HistorySave, rootCmd.PersistentFlags().Lookup("write-history")))

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify(os.Stdout)
	})

	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd defines the entry point for seriesdl.
var rootCmd = &cobra.Command{
	Use:   constant.App + " [url]",
	Short: "Download every episode of a series and merge them into one file",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Download every episode of a series and merge them into one file"),
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		// a bare url is a download of every episode
		if len(args) == 1 {
			downloadCmd.Run(downloadCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// newEngine builds an engine from the current configuration.
func newEngine() *engine.Engine {
	return engine.New(engine.Options{Settings: config.Load()})
}

// signalContext is cancelled on the first SIGINT or SIGTERM. The running batch is
// cancelled through the engine first, so it still reports every episode.
func signalContext(e *engine.Engine) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case s := <-signals:
			log.Infof("received %s, cancelling", s)
			e.CancelAll()
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()

	return ctx, cancel
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
