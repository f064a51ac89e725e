// Package main is the entry point for the plcheck CLI application.
// It runs SQL test scripts against PostgreSQL and reports PASSED/FAILED notices.
package main

import (
	"plcheck/cli/cmd"
)

// main is the entry point for the plcheck CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
