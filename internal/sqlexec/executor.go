// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlexec runs one test script on a pooled connection and turns the
// notices it raises into a verdict.
//
// A run checks out a connection, attaches a run-scoped notice subscription,
// submits the whole script as one request and classifies every notice in arrival
// order. A database error does not fail the call: it becomes the terminal
// "SQL Error" line of a failing Result. The subscription is detached and the
// connection released on every path.
package sqlexec

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	apperr "plcheck/cli/internal/errors"
	"plcheck/cli/internal/notice"
	"plcheck/cli/internal/pgpool"
)

// Line is one classified output line of a run.
type Line struct {
	Kind notice.Kind `json:"kind"`
	Text string      `json:"text"`
}

// Counts tallies pass and failure lines.
type Counts struct {
	Passes   int `json:"passes"`
	Failures int `json:"failures"`
}

// Result is the verdict of one run.
type Result struct {
	RunID    string        `json:"run_id"`
	Script   string        `json:"script,omitempty"`
	Success  bool          `json:"success"`
	Output   []Line        `json:"output"`
	Counts   Counts        `json:"counts"`
	Duration time.Duration `json:"-"`
}

func (r *Result) add(kind notice.Kind, text string) {
	r.Output = append(r.Output, Line{Kind: kind, Text: text})
	pass, fail := kind.Counts()
	if pass {
		r.Counts.Passes++
	}
	if fail {
		r.Counts.Failures++
		r.Success = false
	}
}

// ConnProvider lends connections for the duration of a callback.
// *pgpool.Manager implements it.
type ConnProvider interface {
	WithConn(ctx context.Context, fn func(pgpool.Conn) error) error
}

// Executor runs scripts against a ConnProvider.
type Executor struct {
	conns ConnProvider
	log   *zap.Logger
}

// New creates an Executor. A nil logger disables logging.
func New(conns ConnProvider, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{conns: conns, log: log}
}

// Run executes script as one unit and returns its classified output.
//
// The error is non-nil only when no connection could be checked out
// (NotConnected, ConnectionError); script failures are reported in the Result.
// ctx bounds the checkout only.
func (e *Executor) Run(ctx context.Context, script string) (*Result, error) {
	res := &Result{
		RunID:   uuid.NewString(),
		Success: true,
		Output:  []Line{},
	}
	start := time.Now()

	err := e.conns.WithConn(ctx, func(conn pgpool.Conn) error {
		sub := &subscription{}
		detach := conn.OnNotice(sub.push)
		defer detach()

		// A submitted script runs to completion or error.
		execErr := conn.Exec(context.WithoutCancel(ctx), script)
		detach()

		for _, n := range sub.drain() {
			res.add(notice.Classify(n.Message), notice.Normalize(n.Message))
		}
		if execErr != nil {
			wrapped := apperr.Wrap(apperr.ScriptExecution, "script failed", execErr)
			e.log.Debug("script execution error", zap.String("run_id", res.RunID), zap.Error(wrapped))
			res.add(notice.Error, "SQL Error: "+errorMessage(execErr))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	e.log.Info("script run finished",
		zap.String("run_id", res.RunID),
		zap.Bool("success", res.Success),
		zap.Int("passes", res.Counts.Passes),
		zap.Int("failures", res.Counts.Failures),
		zap.Int("lines", len(res.Output)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// errorMessage returns the server's message for database errors and the
// plain error text otherwise.
func errorMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	return err.Error()
}

// subscription queues the notices of one run in arrival order.
type subscription struct {
	mu      sync.Mutex
	notices []pgpool.Notice
}

func (s *subscription) push(n pgpool.Notice) {
	s.mu.Lock()
	s.notices = append(s.notices, n)
	s.mu.Unlock()
}

func (s *subscription) drain() []pgpool.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}
