// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"plcheck/cli/internal/notice"
	"plcheck/cli/internal/sqlexec"
	"plcheck/cli/internal/summary"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// startSpinner shows text behind a rotating frame in a pterm area until the
// returned function is called. The cursor is hidden while it runs.
func startSpinner(text string) func() {
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return func() {}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		i := 0
		area.Update(fmt.Sprintf("%s %s", spinnerFrames[0], text))
		for {
			select {
			case <-t.C:
				i++
				area.Update(fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text))
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			_ = area.Stop()
			cursor.Show()
		})
	}
}

// lineStyle returns the prefix and style an output line is printed with.
func lineStyle(kind notice.Kind) (string, *pterm.Style) {
	switch kind {
	case notice.Pass:
		return "✔", pterm.NewStyle(pterm.FgGreen)
	case notice.Fail:
		return "✘", pterm.NewStyle(pterm.FgRed)
	case notice.Error:
		return "!", pterm.NewStyle(pterm.FgRed, pterm.Bold)
	default:
		return "·", pterm.NewStyle(pterm.FgGray)
	}
}

// formatLine renders one output line without colour.
func formatLine(l sqlexec.Line) string {
	prefix, _ := lineStyle(l.Kind)
	return fmt.Sprintf("  %s %s", prefix, l.Text)
}

func printResult(res *sqlexec.Result) {
	header := pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(res.Script)
	pterm.Println(header)
	for _, l := range res.Output {
		_, style := lineStyle(l.Kind)
		style.Println(formatLine(l))
	}

	verdict := pterm.Success
	if !res.Success {
		verdict = pterm.Error
	}
	verdict.Printf("%s: %d passed, %d failed (%s)\n",
		res.Script, res.Counts.Passes, res.Counts.Failures, res.Duration.Round(time.Millisecond))
	pterm.Println()
}

// printSummary lists every script with its final status, then the totals.
func printSummary(board *summary.Board) {
	for _, name := range board.Names() {
		st, _ := board.Status(name)
		switch st {
		case summary.Success:
			pterm.Success.Println(name)
		case summary.Failed:
			pterm.Error.Println(name)
		default:
			pterm.Warning.Printf("%s (%s)\n", name, st)
		}
	}
	pterm.Println()

	s := board.Snapshot()
	data := pterm.TableData{
		{"Total", "Success", "Failed", "Pending"},
		{
			fmt.Sprint(s.Total),
			pterm.Green(fmt.Sprint(s.Success)),
			pterm.Red(fmt.Sprint(s.Failed)),
			fmt.Sprint(s.Pending),
		},
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
