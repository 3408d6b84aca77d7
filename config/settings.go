package config

import (
	"time"

	"github.com/anisan-cli/seriesdl/key"
	"github.com/anisan-cli/seriesdl/source"
	"github.com/anisan-cli/seriesdl/util"
	"github.com/spf13/viper"
)

// Concurrency bounds accepted for a batch.
const (
	MinConcurrent = 1
	MaxConcurrent = 5
)

// Settings is the typed view of the configuration consumed by the engine.
type Settings struct {
	OutputDir        string
	Concurrent       int
	SpeedLimitKB     int
	FileNaming       source.Naming
	ChunkTimeout     time.Duration
	ProgressInterval time.Duration
	Schedule         []string

	AutoMerge        bool
	DeleteAfterMerge bool
	ReencodeFallback bool
	FFmpegPath       string
	MergeStall       time.Duration

	SaveHistory  bool
	HistoryLimit int

	ResolverCacheTTL time.Duration
	TLSFingerprint   bool
}

// Load reads the current configuration into Settings and normalizes it.
func Load() Settings {
	s := Settings{
		OutputDir:        viper.GetString(key.DownloadsOutputDir),
		Concurrent:       viper.GetInt(key.DownloadsConcurrent),
		SpeedLimitKB:     viper.GetInt(key.DownloadsSpeedLimit),
		FileNaming:       source.Naming(viper.GetString(key.DownloadsFileNaming)),
		ChunkTimeout:     time.Duration(viper.GetInt(key.DownloadsChunkTimeout)) * time.Second,
		ProgressInterval: time.Duration(viper.GetInt(key.DownloadsProgressInterval)) * time.Millisecond,
		Schedule:         viper.GetStringSlice(key.DownloadsSchedule),
		AutoMerge:        viper.GetBool(key.MergeAuto),
		DeleteAfterMerge: viper.GetBool(key.MergeDeleteAfter),
		ReencodeFallback: viper.GetBool(key.MergeReencodeFallback),
		FFmpegPath:       viper.GetString(key.MergeFFmpegPath),
		MergeStall:       time.Duration(viper.GetInt(key.MergeStallTimeout)) * time.Second,
		SaveHistory:      viper.GetBool(key.HistorySave),
		HistoryLimit:     viper.GetInt(key.HistoryLimit),
		ResolverCacheTTL: time.Duration(viper.GetInt(key.ResolverCacheTTL)) * time.Hour,
		TLSFingerprint:   viper.GetBool(key.ResolverTLSFingerprint),
	}

	return s.Normalize()
}

// Normalize clamps out-of-range values to what the engine accepts.
func (s Settings) Normalize() Settings {
	s.Concurrent = ClampConcurrent(s.Concurrent)
	s.SpeedLimitKB = max(s.SpeedLimitKB, 0)
	s.FileNaming = s.FileNaming.Normalize()
	s.ChunkTimeout = max(s.ChunkTimeout, 0)
	s.ProgressInterval = max(s.ProgressInterval, 0)
	s.MergeStall = max(s.MergeStall, 0)
	s.HistoryLimit = max(s.HistoryLimit, 1)
	s.ResolverCacheTTL = max(s.ResolverCacheTTL, 0)
	s.OutputDir = util.ExpandHome(s.OutputDir)
	return s
}

// ClampConcurrent keeps n within [MinConcurrent, MaxConcurrent].
func ClampConcurrent(n int) int {
	return min(max(n, MinConcurrent), MaxConcurrent)
}
