// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"plcheck/cli/internal/config"
	"plcheck/cli/internal/scripts"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the test scripts in the scripts directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := scripts.NewLoader(appCfg.ScriptsDir)
		if err != nil {
			return err
		}
		catalog := scripts.NewCatalog(loader.Dir(), logger)
		if err := catalog.Refresh(); err != nil {
			return err
		}

		names := catalog.List()
		if len(names) == 0 {
			pterm.Warning.Printf("No scripts found in %s\n", loader.Dir())
			return nil
		}

		items := make([]pterm.BulletListItem, 0, len(names))
		for _, n := range names {
			items = append(items, pterm.BulletListItem{Level: 0, Text: n})
		}
		pterm.Printf("%d scripts in %s\n", len(names), loader.Dir())
		return pterm.DefaultBulletList.WithItems(items).Render()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("scripts-dir", config.DefaultScriptsDir, "directory holding *.sql test scripts")
}
