package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/anisan-cli/seriesdl/color"
	"github.com/anisan-cli/seriesdl/config"
	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/icon"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/anisan-cli/seriesdl/where"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// closest returns the candidate with the smallest edit distance to s.
func closest(s string, candidates []string) string {
	return lo.MinBy(candidates, func(a string, b string) bool {
		return levenshtein.Distance(s, a) < levenshtein.Distance(s, b)
	})
}

func errUnknownKey(key string) error {
	msg := fmt.Sprintf(
		"unknown key %s, did you mean %s?",
		style.Fg(color.Red)(key),
		style.Fg(color.Yellow)(closest(key, lo.Keys(config.Default))),
	)

	return errors.New(msg)
}

// parseValue converts raw command line values to the type of the key's default.
func parseValue(key string, value []string) (any, error) {
	field, ok := config.Default[key]
	if !ok {
		return nil, errUnknownKey(key)
	}
	if len(value) == 0 {
		return nil, errors.New("value is required")
	}

	switch field.Value.(type) {
	case string:
		return value[0], nil
	case int:
		parsed, err := strconv.ParseInt(value[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value: %s", value[0])
		}
		return int(parsed), nil
	case bool:
		parsed, err := strconv.ParseBool(value[0])
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value: %s", value[0])
		}
		return parsed, nil
	case []string:
		return value, nil
	default:
		return nil, fmt.Errorf("unsupported type for %s", key)
	}
}

// saveConfig writes the in-memory configuration, creating the file when missing.
func saveConfig() error {
	switch err := viper.WriteConfig(); err.(type) {
	case viper.ConfigFileNotFoundError:
		return viper.SafeWriteConfig()
	default:
		return err
	}
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Keys(config.Default), cobra.ShellCompDirectiveNoFileComp
}

// configFile is the path viper writes to when no file was loaded.
func configFile() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(where.Config(), constant.App+".toml")
}

// keyArg takes the key from the first argument or the --key flag.
func keyArg(cmd *cobra.Command, args []string) string {
	key := lo.Must(cmd.Flags().GetString("key"))
	if len(args) > 0 {
		key = args[0]
	}

	if key == "" {
		handleErr(errors.New("key is required as an argument or --key flag"))
	}
	if _, ok := config.Default[key]; !ok {
		handleErr(errUnknownKey(key))
	}
	return key
}

func done(cmd *cobra.Command, format string, a ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), fmt.Sprintf(format, a...))
}

func keyValue(key string, value any) (string, string) {
	return style.Fg(color.Purple)(key), style.Fg(color.Yellow)(fmt.Sprint(value))
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInfoCmd, configSetCmd, configGetCmd, configWriteCmd, configDeleteCmd, configResetCmd)

	configInfoCmd.Flags().StringSliceP("key", "k", []string{}, "Keys to describe, all when empty")
	configInfoCmd.Flags().BoolP("json", "j", false, "Print the fields as JSON")

	configSetCmd.Flags().StringP("key", "k", "", "Key to update")
	configSetCmd.Flags().StringSliceP("value", "v", []string{}, "Value to assign, repeat for lists")

	configGetCmd.Flags().StringP("key", "k", "", "Key to print")

	configWriteCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")

	configResetCmd.Flags().StringP("key", "k", "", "Key to restore")
	configResetCmd.Flags().BoolP("all", "a", false, "Restore every key")
	configResetCmd.MarkFlagsMutuallyExclusive("key", "all")

	for _, c := range []*cobra.Command{configInfoCmd, configSetCmd, configGetCmd, configResetCmd} {
		_ = c.RegisterFlagCompletionFunc("key", completionConfigKeys)
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change the download settings",
}

var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe configuration keys",
	Run: func(cmd *cobra.Command, args []string) {
		keys := lo.Must(cmd.Flags().GetStringSlice("key"))
		for _, key := range keys {
			if _, ok := config.Default[key]; !ok {
				handleErr(errUnknownKey(key))
			}
		}
		if len(keys) == 0 {
			keys = lo.Keys(config.Default)
		}
		sort.Strings(keys)

		fields := lo.Map(keys, func(key string, _ int) config.Field {
			return config.Default[key]
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(fields))
			return
		}

		var blocks []string
		for i, f := range fields {
			if i == 0 || f.Section() != fields[i-1].Section() {
				blocks = append(blocks, style.Title(f.Section()))
			}
			blocks = append(blocks, f.Pretty())
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(blocks, "\n\n"))
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set [key] [value...]",
	Short:             "Update a configuration key",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		key := keyArg(cmd, args)

		value := lo.Must(cmd.Flags().GetStringSlice("value"))
		if len(args) > 1 {
			value = args[1:]
		}

		v, err := parseValue(key, value)
		handleErr(err)

		viper.Set(key, v)
		handleErr(saveConfig())

		k, val := keyValue(key, v)
		done(cmd, "set %s to %s", k, val)
	},
}

var configGetCmd = &cobra.Command{
	Use:               "get [key]",
	Short:             "Print the current value of a configuration key",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), viper.Get(keyArg(cmd, args)))
	},
}

var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the current settings to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := filepath.Join(where.Config(), constant.App+".toml")

		if lo.Must(cmd.Flags().GetBool("force")) {
			if err := filesystem.API().Remove(path); err != nil && !os.IsNotExist(err) {
				handleErr(err)
			}
		}

		handleErr(viper.SafeWriteConfig())
		done(cmd, "wrote config to %s", path)
	},
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Remove the config file",
	Aliases: []string{"remove"},
	Run: func(cmd *cobra.Command, args []string) {
		path := configFile()
		handleErr(filesystem.API().Remove(path))
		done(cmd, "deleted %s", path)
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore configuration keys to their defaults",
	PreRun: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("key") && !cmd.Flags().Changed("all") {
			handleErr(errors.New("either --key or --all must be set"))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("all")) {
			for key, field := range config.Default {
				viper.Set(key, field.Value)
			}
			handleErr(saveConfig())
			done(cmd, "reset all config values")
			return
		}

		key := keyArg(cmd, nil)
		viper.Set(key, config.Default[key].Value)
		handleErr(saveConfig())

		k, val := keyValue(key, config.Default[key].Value)
		done(cmd, "reset %s to default value %s", k, val)
	},
}
