// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"plcheck/cli/internal/dsn"
	"plcheck/cli/internal/logging"
)

// dbinfoCmd shows the connection string plcheck would use, with secrets masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show current database connection string",
	Long: `The dbinfo command displays the connection string (DSN) plcheck would use and
where it was found, with the password masked. This helps verify which database
you're connected to without exposing sensitive credentials.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, source := resolveDSN(appCfg, systemKeychain)
		if conn == "" {
			pterm.Warning.Println("No database connection configured")
			pterm.Println("   Please run: plcheck connect")
			return nil
		}

		pterm.Printf("Using DSN from %s\n", source)
		pterm.Println()

		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Database Connection")).
			WithPadding(1).
			Println(describeDSN(conn))
		pterm.Println()
		pterm.Println("To update this connection, run: plcheck connect")
		pterm.Println()
		return nil
	},
}

// describeDSN renders the masked DSN followed by its parsed parts when it parses.
func describeDSN(conn string) string {
	var b strings.Builder
	b.WriteString(logging.Mask(conn))

	info, err := dsn.ParseInfo(conn)
	if err != nil {
		return b.String()
	}
	fmt.Fprintf(&b, "\n\nhost:     %s", info.Host)
	if info.Port != "" {
		fmt.Fprintf(&b, "\nport:     %s", info.Port)
	}
	fmt.Fprintf(&b, "\ndatabase: %s", info.Database)
	return b.String()
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
	dbinfoCmd.Flags().String("dsn", "", "PostgreSQL connection string")
}
