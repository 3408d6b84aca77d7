// Package where resolves the directories and files the program keeps on disk.
// Directories are created on first use through the filesystem backend.
package where

import (
	"os"
	"path/filepath"

	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath overrides the configuration directory.
const EnvConfigPath = "SERIESDL_CONFIG_PATH"

// mkdir joins elem and makes sure the directory exists.
func mkdir(elem ...string) string {
	path := filepath.Join(elem...)
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// userDir returns the result of lookup, or fallback when the platform has no such directory.
func userDir(lookup func() (string, error), fallback string) string {
	if dir, err := lookup(); err == nil {
		return dir
	}
	return fallback
}

func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return mkdir(custom)
	}
	return mkdir(lo.Must(os.UserConfigDir()), constant.App)
}

func Cache() string {
	return mkdir(userDir(os.UserCacheDir, "cache"), constant.App)
}

func Logs() string {
	return mkdir(Config(), "logs")
}

// Series holds cached series resolutions.
func Series() string {
	return mkdir(Cache(), "series")
}

// History is the batch history file.
func History() string {
	return filepath.Join(Config(), "history.json")
}

// Queries is the registry of remembered series URLs.
func Queries() string {
	return filepath.Join(Cache(), "queries.json")
}

// Temp holds transient artifacts such as merge lists.
func Temp() string {
	return mkdir(os.TempDir(), constant.App)
}

// Downloads is the output directory used when none is configured.
func Downloads() string {
	home := userDir(os.UserHomeDir, "")
	if home == "" {
		return mkdir("downloads")
	}
	return mkdir(home, "Downloads", constant.App)
}
