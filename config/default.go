// Package config holds the settings schema, its defaults and the viper setup.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anisan-cli/seriesdl/color"
	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/key"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field is one configuration key with its default value.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Section is the part of the key before the first dot.
func (f *Field) Section() string {
	section, _, _ := strings.Cut(f.Key, ".")
	return section
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	return strings.ToUpper(constant.App + "_" + EnvKeyReplacer.Replace(f.Key))
}

func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return fmt.Sprintf("%T", f.Value)
	}
}

func highlight(v any) string {
	switch v := v.(type) {
	case bool:
		if v {
			return style.Fg(color.Green)("true")
		}
		return style.Fg(color.Red)("false")
	case string:
		return style.Fg(color.Yellow)(v)
	default:
		return fmt.Sprint(v)
	}
}

// Pretty renders the field for the config info command.
func (f *Field) Pretty() string {
	label := style.Fg(color.Blue)
	rows := [][2]string{
		{"Key", style.Fg(color.Purple)(f.Key)},
		{"Env", f.Env()},
		{"Value", highlight(viper.Get(f.Key))},
		{"Default", highlight(f.Value)},
		{"Type", f.typeName()},
	}

	lines := []string{style.Faint(f.Description)}
	for _, r := range rows {
		lines = append(lines, label(fmt.Sprintf("%-9s", r[0]+":"))+r[1])
	}
	return strings.Join(lines, "\n")
}

// MarshalJSON includes the current value next to the default.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"key":         f.Key,
		"value":       viper.Get(f.Key),
		"default":     f.Value,
		"description": f.Description,
		"type":        f.typeName(),
		"env":         f.Env(),
	})
}

var fields = []Field{
	{key.DownloadsOutputDir, filepath.Join("~", "Downloads", constant.App), "Directory where episodes and merged files are written.\nA leading ~ expands to the home directory"},
	{key.DownloadsConcurrent, 3, "Number of episodes downloaded at the same time. From 1 to 5"},
	{key.DownloadsSpeedLimit, 0, "Global download speed limit in KB/s shared by all episodes.\n0 means unlimited"},
	{key.DownloadsFileNaming, "ep_001", "Episode file naming scheme.\nAvailable options are: ep_001, episode_1, title_ep1"},
	{key.DownloadsChunkTimeout, 30, "Seconds a single read may stall before the episode is failed.\n0 disables the watchdog"},
	{key.DownloadsProgressInterval, 100, "Milliseconds between progress samples of one episode.\n0 emits a sample for every chunk"},
	{key.DownloadsSchedule, []string{}, "Speed limit windows, e.g. \"mon-fri 09:00-17:00 500\".\nThe first matching window overrides the speed limit"},

	{key.MergeAuto, true, "Merge downloaded episodes into a single file when a batch finishes"},
	{key.MergeDeleteAfter, false, "Delete episode files after a successful merge"},
	{key.MergeReencodeFallback, true, "Re-encode with libx264 when stream copy concatenation fails"},
	{key.MergeFFmpegPath, "", "Path to the ffmpeg binary.\nIf empty, a bundled ffmpeg next to the executable is tried, then PATH"},
	{key.MergeStallTimeout, 120, "Seconds ffmpeg may stay silent before the merge is aborted"},

	{key.HistorySave, true, "Record finished batches in the history"},
	{key.HistoryLimit, 100, "Maximum number of history records to keep"},

	{key.ResolverCacheTTL, 24, "Hours a resolved series is cached.\n0 disables the cache"},
	{key.ResolverTLSFingerprint, true, "Fetch series pages with a browser TLS fingerprint"},
	{key.SearchShowURLSuggestions, true, "Suggest previously fetched series URLs"},

	{key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)"},
	{key.CliColored, true, "Enable colored CLI output"},
	{key.CliVersionCheck, true, "Check for a newer release when showing help"},

	{key.LogsWrite, false, "Write logs"},
	{key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace"},
	{key.LogsJson, false, "Use json format for logs"},
}

// Default maps every key to its field.
var Default = lo.KeyBy(fields, func(f Field) string { return f.Key })

// EnvExposed lists the keys bound to environment variables.
var EnvExposed = lo.Map(fields, func(f Field, _ int) string { return f.Key })

func init() {
	if len(Default) != len(fields) {
		panic("duplicate config key")
	}
}
