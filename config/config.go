// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"path/filepath"
	"strings"

	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/where"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvKeyReplacer is a strings.Replacer used to normalize configuration keys into environment variable naming conventions.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup initializes the global configuration state, including defaults, environment bindings, and localized file resolution.
func Setup() error {
	loadDotEnv()

	viper.SetConfigName(constant.App)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// loadDotEnv seeds the process environment from .env files. Variables that are
// already set win over the files.
func loadDotEnv() {
	candidates := []string{".env", filepath.Join(where.Config(), ".env")}

	var present []string
	for _, path := range candidates {
		if ok, _ := filesystem.API().Exists(path); ok {
			present = append(present, path)
		}
	}

	if len(present) == 0 {
		return
	}

	// godotenv reads through os, so an in-memory backend simply yields nothing here.
	_ = godotenv.Load(present...)
}
