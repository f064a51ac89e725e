// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads plcheck settings. Sources are layered, lowest priority
// first: built-in defaults, the YAML config file, PLCHECK_* environment
// variables and explicitly set command-line flags. Secrets do not belong in
// the file; the saved connection string lives in the OS keychain.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	apperr "plcheck/cli/internal/errors"
	"plcheck/cli/internal/logging"
	"plcheck/cli/internal/xdg"
)

// EnvPrefix prefixes every environment variable read by Load.
// Nested keys use a double underscore: PLCHECK_RATE_LIMIT__RPS.
const EnvPrefix = "PLCHECK_"

// Defaults.
const (
	DefaultListenAddr     = ":3000"
	DefaultScriptsDir     = "tests"
	DefaultLogLevel       = "info"
	DefaultConnectTimeout = 5 * time.Second
	DefaultRateLimitRPS   = 5.0
	DefaultRateLimitBurst = 10
)

// Config holds the resolved settings.
type Config struct {
	ListenAddr     string          `koanf:"listen_addr"`
	ScriptsDir     string          `koanf:"scripts_dir"`
	LogLevel       string          `koanf:"log_level"`
	LogFormat      string          `koanf:"log_format"`
	DSN            string          `koanf:"dsn"`
	ConnectTimeout time.Duration   `koanf:"connect_timeout"`
	Watch          bool            `koanf:"watch"`
	CORSOrigins    []string        `koanf:"cors_origins"`
	RateLimit      RateLimitConfig `koanf:"rate_limit"`

	// File is the config file that was read, or "".
	File string `koanf:"-"`
}

// RateLimitConfig limits POST /api/run-test per client.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

// flagKeys maps flag names whose config key is not the snake_case of the name.
var flagKeys = map[string]string{
	"addr": "listen_addr",
}

func defaults() map[string]any {
	addr := DefaultListenAddr
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	return map[string]any{
		"listen_addr":      addr,
		"scripts_dir":      DefaultScriptsDir,
		"log_level":        DefaultLogLevel,
		"log_format":       logging.FormatConsole,
		"dsn":              "",
		"connect_timeout":  DefaultConnectTimeout.String(),
		"watch":            true,
		"cors_origins":     []string{"*"},
		"rate_limit.rps":   DefaultRateLimitRPS,
		"rate_limit.burst": DefaultRateLimitBurst,
	}
}

// findConfigFile returns the explicit path, or the XDG file when it exists.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	candidate, err := xdg.ConfigFile()
	if err != nil {
		return "", nil
	}
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return candidate, nil
}

// Load resolves the configuration. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, apperr.Wrap(apperr.ConfigError, "cannot access config file", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, apperr.Wrap(apperr.ConfigError, fmt.Sprintf("error reading config file %s", path), err)
		}
	}

	// PLCHECK_SCRIPTS_DIR -> scripts_dir, PLCHECK_RATE_LIMIT__RPS -> rate_limit.rps
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, apperr.Wrap(apperr.ConfigError, "unable to decode config", err)
	}
	cfg.File = path
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.ListenAddr) == "":
		return apperr.New(apperr.ConfigError, "listen_addr is required")
	case strings.TrimSpace(c.ScriptsDir) == "":
		return apperr.New(apperr.ConfigError, "scripts_dir is required")
	case c.ConnectTimeout <= 0:
		return apperr.New(apperr.ConfigError, "connect_timeout must be positive")
	case c.RateLimit.RPS <= 0:
		return apperr.New(apperr.ConfigError, "rate_limit.rps must be positive")
	case c.RateLimit.Burst <= 0:
		return apperr.New(apperr.ConfigError, "rate_limit.burst must be positive")
	}
	switch c.LogFormat {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return apperr.New(apperr.ConfigError, fmt.Sprintf("log_format must be %s or %s", logging.FormatConsole, logging.FormatJSON))
	}
	return nil
}
