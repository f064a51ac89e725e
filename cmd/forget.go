// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"plcheck/cli/internal/keychain"
)

// forgetCmd removes the connection string saved by connect.
var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove the saved database connection",
	Long: `The forget command deletes the connection string stored in the OS keychain by
plcheck connect. DSNs supplied through flags, PLCHECK_DSN, the config file or
DATABASE_URL are not affected.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			pterm.Error.Println("Secure storage is not available on this system")
			return err
		}
		if err := km.ClearDB(); err != nil {
			return err
		}
		pterm.Success.Println("Saved database connection removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}
