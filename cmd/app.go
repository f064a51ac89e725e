// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"os"
	"strings"

	"go.uber.org/zap"

	"plcheck/cli/internal/config"
	"plcheck/cli/internal/keychain"
	"plcheck/cli/internal/pgpool"
	"plcheck/cli/internal/runner"
	"plcheck/cli/internal/scripts"
	"plcheck/cli/internal/summary"
)

// DSN sources, in resolution order.
const (
	sourceConfig   = "configuration (--dsn, PLCHECK_DSN or config file)"
	sourceEnv      = "DATABASE_URL environment variable"
	sourceKeychain = "OS keychain"
)

// dsnLoader is the part of the keychain manager resolveDSN needs.
type dsnLoader interface {
	LoadDBDSN() (string, error)
}

// resolveDSN returns the connection string to use and where it came from.
// An empty result means nothing is configured.
func resolveDSN(cfg *config.Config, openKeychain func() (dsnLoader, error)) (string, string) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, sourceConfig
	}
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		return dsn, sourceEnv
	}
	if openKeychain == nil {
		return "", ""
	}
	km, err := openKeychain()
	if err != nil {
		logger.Debug("keychain unavailable", zap.Error(err))
		return "", ""
	}
	dsn, err := km.LoadDBDSN()
	if err != nil {
		if !errors.Is(err, keychain.ErrNotFound) {
			logger.Debug("keychain read failed", zap.Error(err))
		}
		return "", ""
	}
	return strings.TrimSpace(dsn), sourceKeychain
}

func systemKeychain() (dsnLoader, error) {
	return keychain.GetManager()
}

func newPoolManager(cfg *config.Config) *pgpool.Manager {
	return pgpool.NewManager(
		pgpool.WithProbeTimeout(cfg.ConnectTimeout),
		pgpool.WithLogger(logger),
	)
}

// newRunner builds the runner over the configured scripts directory.
func newRunner(cfg *config.Config, pool *pgpool.Manager, board *summary.Board) (*runner.Runner, *scripts.Loader, error) {
	loader, err := scripts.NewLoader(cfg.ScriptsDir)
	if err != nil {
		return nil, nil, err
	}
	return runner.New(pool, loader, board, logger), loader, nil
}
