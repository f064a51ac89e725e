// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"plcheck/cli/internal/config"
	"plcheck/cli/internal/dberrors"
	apperr "plcheck/cli/internal/errors"
	"plcheck/cli/internal/scripts"
	"plcheck/cli/internal/summary"
)

// runCmd runs scripts from the terminal.
var runCmd = &cobra.Command{
	Use:   "run [script...]",
	Short: "Run test scripts and print their results",
	Long: `The run command executes the named scripts one at a time, in the order given,
and prints every notice they raise. With no arguments every *.sql file in the
scripts directory is run. The exit status is 1 when any script fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dsn, _ := resolveDSN(appCfg, systemKeychain)
		if dsn == "" {
			pterm.Warning.Println("No database connection configured")
			pterm.Println("   Pass --dsn, set DATABASE_URL or run: plcheck connect")
			return apperr.New(apperr.ConfigError, "no connection string")
		}

		pool := newPoolManager(appCfg)
		defer pool.Close()

		board := summary.NewBoard()
		r, loader, err := newRunner(appCfg, pool, board)
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			catalog := scripts.NewCatalog(loader.Dir(), logger)
			if err := catalog.Refresh(); err != nil {
				return err
			}
			names = catalog.List()
			if len(names) == 0 {
				pterm.Warning.Printf("No scripts found in %s\n", loader.Dir())
				return nil
			}
		}
		for _, name := range names {
			board.Register(scripts.BaseName(name))
		}

		stopSpinner := startSpinner("connecting")
		err = r.Connect(ctx, dsn)
		stopSpinner()
		if err != nil {
			return dberrors.Present(err, "connecting")
		}

		for _, name := range names {
			res, err := r.RunScript(ctx, name)
			if err != nil {
				pterm.Error.Println(userMessage(err))
				continue
			}
			printResult(res)
		}

		printSummary(board)
		if board.HasFailures() {
			return errRunFailed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("scripts-dir", config.DefaultScriptsDir, "directory holding *.sql test scripts")
	runCmd.Flags().String("dsn", "", "PostgreSQL connection string")
}
