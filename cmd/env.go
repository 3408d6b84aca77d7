package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anisan-cli/seriesdl/color"
	"github.com/anisan-cli/seriesdl/config"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/anisan-cli/seriesdl/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

// envNames lists every environment variable the program reads, sorted.
func envNames() []string {
	names := lo.Map(config.EnvExposed, func(key string, _ int) string {
		field := config.Default[key]
		return field.Env()
	})
	names = append(names, where.EnvConfigPath)
	slices.Sort(names)
	return names
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Only show variables that are set")
	envCmd.Flags().BoolP("unset-only", "u", false, "Only show variables that are not set")
	envCmd.Flags().BoolP("json", "j", false, "Print the set variables as a JSON object")
	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables that override settings",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			setOnly   = lo.Must(cmd.Flags().GetBool("set-only"))
			unsetOnly = lo.Must(cmd.Flags().GetBool("unset-only"))
			out       = cmd.OutOrStdout()
		)

		values := make(map[string]string)
		for _, name := range envNames() {
			if value, ok := os.LookupEnv(name); ok && value != "" {
				values[name] = value
			}
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(values))
			return
		}

		name := style.New().Bold(true).Foreground(color.Purple).Render
		for _, env := range envNames() {
			value, present := values[env]
			switch {
			case present && !unsetOnly:
				fmt.Fprintf(out, "%s=%s\n", name(env), style.Fg(color.Green)(value))
			case !present && !setOnly:
				fmt.Fprintf(out, "%s=%s\n", name(env), style.Fg(color.Red)("unset"))
			}
		}
	},
}
