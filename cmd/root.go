// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for plcheck.
// It serves the browser test runner, runs SQL test scripts from the terminal and
// manages the saved database connection, using the Cobra CLI framework with a
// pterm terminal UI.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plcheck/cli/internal/config"
	apperr "plcheck/cli/internal/errors"
	"plcheck/cli/internal/logging"
)

var (
	showVersion bool
	cfgFile     string
	verbose     bool

	// appCfg and logger are set by the root PersistentPreRunE.
	appCfg *config.Config
	logger = zap.NewNop()
)

// errRunFailed is returned when at least one script reported a failure.
var errRunFailed = errors.New("one or more scripts failed")

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "plcheck",
	Short: "Run PostgreSQL test scripts and report PASSED/FAILED notices",
	Long: `plcheck executes SQL test scripts against PostgreSQL. A script reports its
assertions by raising notices containing PASSED or FAILED; plcheck collects them
per run and shows the verdict in the browser (plcheck serve) or the terminal
(plcheck run).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = "debug"
			pterm.EnableDebugMessages()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return apperr.Wrap(apperr.ConfigError, "cannot build logger", err)
		}
		appCfg = cfg
		logger = log
		if cfg.File != "" {
			logger.Debug("config loaded", zap.String("file", cfg.File))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("plcheck %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, userMessage(err))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/plcheck/config.yaml)")
	pf.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	pf.String("log-format", logging.FormatConsole, "log format: console or json")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug output")
}

// userMessage renders err for the terminal with secrets masked.
func userMessage(err error) string {
	var e *apperr.E
	if errors.As(err, &e) {
		if e.Err != nil {
			return logging.PresentError(e.Message, e.Err)
		}
		return logging.Mask(e.Message)
	}
	return logging.PresentError("", err)
}
