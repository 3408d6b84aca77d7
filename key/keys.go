// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Downloads - these keys shape a download batch.
const (
	DownloadsOutputDir        = "downloads.output_dir"
	DownloadsConcurrent       = "downloads.concurrent"
	DownloadsSpeedLimit       = "downloads.speed_limit"
	DownloadsFileNaming       = "downloads.file_naming"
	DownloadsChunkTimeout     = "downloads.chunk_timeout"
	DownloadsProgressInterval = "downloads.progress_interval"
	DownloadsSchedule         = "downloads.schedule"
)

// Merge - these keys control the external concatenation step.
const (
	MergeAuto             = "merge.auto"
	MergeDeleteAfter      = "merge.delete_after"
	MergeReencodeFallback = "merge.reencode_fallback"
	MergeFFmpegPath       = "merge.ffmpeg_path"
	MergeStallTimeout     = "merge.stall_timeout"
)

// History Tracking - these keys configure the persistence of finished batches.
const (
	HistorySave  = "history.save"
	HistoryLimit = "history.limit"
)

// Resolver - these keys tune series page resolution.
const (
	ResolverCacheTTL       = "resolver.cache_ttl"
	ResolverTLSFingerprint = "resolver.tls_fingerprint"
)

// Search Interaction - these keys define suggestions for previously fetched series.
const (
	SearchShowURLSuggestions = "search.show_url_suggestions"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
