// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plcheck/cli/internal/api"
	"plcheck/cli/internal/config"
	"plcheck/cli/internal/dberrors"
	"plcheck/cli/internal/logging"
	"plcheck/cli/internal/scripts"
	"plcheck/cli/internal/summary"
)

// serveCmd starts the HTTP test runner.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser test runner",
	Long: `The serve command starts the HTTP server that lists the scripts in the scripts
directory and runs them on request. When a connection string resolves (--dsn,
PLCHECK_DSN, the config file, DATABASE_URL or the OS keychain) the pool is opened
at startup; otherwise connect from the page.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pool := newPoolManager(appCfg)
		defer pool.Close()

		board := summary.NewBoard()
		r, loader, err := newRunner(appCfg, pool, board)
		if err != nil {
			return err
		}

		catalog := scripts.NewCatalog(loader.Dir(), logger)
		if err := catalog.Refresh(); err != nil {
			logger.Warn("cannot list scripts", zap.String("dir", loader.Dir()), zap.Error(err))
		}

		if dsn, source := resolveDSN(appCfg, systemKeychain); dsn != "" {
			logger.Info("connecting", zap.String("source", source), logging.DSN(dsn))
			if err := r.Connect(ctx, dsn); err != nil {
				_ = dberrors.Present(err, "connecting at startup")
			} else {
				pterm.Success.Printf("Connected to %s\n", r.Database())
			}
		}

		srv := api.NewServer(r, catalog, api.Options{
			Addr:        appCfg.ListenAddr,
			CORSOrigins: appCfg.CORSOrigins,
			RateLimit: api.RateLimitConfig{
				RequestsPerSecond: appCfg.RateLimit.RPS,
				Burst:             appCfg.RateLimit.Burst,
			},
			Watch: appCfg.Watch,
		}, logger)

		pterm.Info.Printf("Serving %d scripts from %s on %s\n", len(catalog.List()), loader.Dir(), appCfg.ListenAddr)
		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", config.DefaultListenAddr, "listen address")
	serveCmd.Flags().String("scripts-dir", config.DefaultScriptsDir, "directory holding *.sql test scripts")
	serveCmd.Flags().Bool("watch", true, "refresh the script list when files change")
	serveCmd.Flags().String("dsn", "", "PostgreSQL connection string")
}
