// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package notice classifies the asynchronous diagnostic messages PostgreSQL emits
// while a test script runs (RAISE NOTICE and friends). A script reports its own
// assertions by raising notices that contain PASSED or FAILED; everything else is
// informational.
package notice

import "strings"

// Kind is the classification of one output line.
type Kind string

const (
	// Pass marks a notice reporting a passed assertion.
	Pass Kind = "pass"
	// Fail marks a notice reporting a failed assertion.
	Fail Kind = "fail"
	// Info marks any other notice.
	Info Kind = "info"
	// Error marks the terminal line produced when the database rejects a script.
	// Classify never returns it.
	Error Kind = "error"
)

// Markers searched for in notice text. Matching is case-sensitive.
const (
	FailMarker = "FAILED"
	PassMarker = "PASSED"
)

// unknownNotice is the text recorded for a notice without a message.
const unknownNotice = "Unknown notice"

// Classify decides whether a raw notice signals a pass, a failure, or is informational.
// A message containing both markers is a failure.
func Classify(raw string) Kind {
	msg := strings.TrimSpace(raw)
	switch {
	case strings.Contains(msg, FailMarker):
		return Fail
	case strings.Contains(msg, PassMarker):
		return Pass
	default:
		return Info
	}
}

// Normalize returns the text stored for a notice: trimmed, or a placeholder when empty.
func Normalize(raw string) string {
	msg := strings.TrimSpace(raw)
	if msg == "" {
		return unknownNotice
	}
	return msg
}

// Counts reports whether a kind increments the pass or the failure counter.
func (k Kind) Counts() (pass, fail bool) {
	switch k {
	case Pass:
		return true, false
	case Fail, Error:
		return false, true
	default:
		return false, false
	}
}
