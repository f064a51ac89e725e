// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package summary tracks the status of every known script and reduces it to
// pending/running/success/failed counts.
package summary

import (
	"sort"
	"sync"
)

// Status is the lifecycle state of one script.
type Status string

const (
	Pending Status = "pending"
	Running Status = "running"
	Success Status = "success"
	Failed  Status = "failed"
)

// Summary counts scripts per status.
type Summary struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Running int `json:"running"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Summarize counts statuses. Unknown values only add to Total.
func Summarize(statuses []Status) Summary {
	s := Summary{Total: len(statuses)}
	for _, st := range statuses {
		switch st {
		case Pending:
			s.Pending++
		case Running:
			s.Running++
		case Success:
			s.Success++
		case Failed:
			s.Failed++
		}
	}
	return s
}

// Board is the per-script status table shared by the HTTP handlers and the CLI.
type Board struct {
	mu       sync.Mutex
	statuses map[string]Status
}

// NewBoard creates an empty Board.
func NewBoard() *Board {
	return &Board{statuses: make(map[string]Status)}
}

// Register adds scripts as pending. Known scripts keep their status.
func (b *Board) Register(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range names {
		b.ensure(name)
	}
}

// Sync makes the board track exactly names: new ones start pending and
// scripts no longer present are dropped.
func (b *Board) Sync(names []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	keep := make(map[string]struct{}, len(names))
	for _, name := range names {
		keep[name] = struct{}{}
		b.ensure(name)
	}
	for name := range b.statuses {
		if _, ok := keep[name]; !ok {
			delete(b.statuses, name)
		}
	}
}

// Start marks a script as running, registering it if needed.
func (b *Board) Start(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensure(name)
	b.statuses[name] = Running
}

// Finish records the verdict of a run.
func (b *Board) Finish(name string, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensure(name)
	if success {
		b.statuses[name] = Success
	} else {
		b.statuses[name] = Failed
	}
}

// Fail marks a known script as failed and reports whether it was known.
// Unknown names are not added.
func (b *Board) Fail(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.statuses[name]; !ok {
		return false
	}
	b.statuses[name] = Failed
	return true
}

// Reset puts every script back to pending.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name := range b.statuses {
		b.statuses[name] = Pending
	}
}

// Status returns the status of one script and whether it is known.
func (b *Board) Status(name string) (Status, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.statuses[name]
	return st, ok
}

// Statuses returns a copy of the table.
func (b *Board) Statuses() map[string]Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]Status, len(b.statuses))
	for k, v := range b.statuses {
		out[k] = v
	}
	return out
}

// Names returns the tracked scripts sorted by name.
func (b *Board) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.statuses))
	for name := range b.statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot summarizes the current table.
func (b *Board) Snapshot() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	statuses := make([]Status, 0, len(b.statuses))
	for _, st := range b.statuses {
		statuses = append(statuses, st)
	}
	return Summarize(statuses)
}

// HasFailures reports whether any script failed.
func (b *Board) HasFailures() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, st := range b.statuses {
		if st == Failed {
			return true
		}
	}
	return false
}

func (b *Board) ensure(name string) {
	if _, ok := b.statuses[name]; !ok {
		b.statuses[name] = Pending
	}
}
