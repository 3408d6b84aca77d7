package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/anisan-cli/seriesdl/config"
	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/icon"
	"github.com/anisan-cli/seriesdl/merge"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON object")
	checkCmd.SetOut(os.Stdout)
}

// toolReport is the outcome of the preflight check.
type toolReport struct {
	Available bool   `json:"available"`
	FFmpeg    string `json:"ffmpeg,omitempty"`
	FFprobe   string `json:"ffprobe,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// checkCmd verifies that the merge tool can be invoked.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that ffmpeg is available for merging",
	Run: func(cmd *cobra.Command, args []string) {
		report := checkTool(config.Load().FFmpegPath)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(report))
			return
		}

		if !report.Available {
			cmd.Println(missingToolBox(report.Error))
			os.Exit(1)
		}

		cmd.Printf("%s %s\n", icon.Get(icon.Success), style.Bold(report.Version))
		cmd.Printf("%s %s\n", style.Faint("ffmpeg "), report.FFmpeg)
		if report.FFprobe != "" {
			cmd.Printf("%s %s\n", style.Faint("ffprobe"), report.FFprobe)
		} else {
			cmd.Printf("%s %s\n", icon.Get(icon.Warn), "ffprobe not found, merge progress will be unknown")
		}
	},
}

func checkTool(configured string) toolReport {
	ffmpeg, err := merge.Lookup(configured)
	if err != nil {
		return toolReport{Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	version, err := ffmpeg.Version(ctx)
	if err != nil {
		return toolReport{FFmpeg: ffmpeg.Path, Error: err.Error()}
	}

	return toolReport{
		Available: true,
		FFmpeg:    ffmpeg.Path,
		FFprobe:   ffmpeg.Probe,
		Version:   version,
	}
}

func installHint(goos string) string {
	switch goos {
	case constant.Darwin:
		return "brew install ffmpeg"
	case constant.Linux:
		return "sudo apt install ffmpeg"
	case constant.Windows:
		return "winget install ffmpeg"
	case constant.Android:
		return "pkg install ffmpeg"
	default:
		return ""
	}
}

func missingToolBox(reason string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render("ffmpeg is required to merge episodes but could not be used.\n" + reason)

	suggestion := ""
	if hint := installHint(runtime.GOOS); hint != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(hint))
	}

	return box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	)
}
