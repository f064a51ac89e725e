// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package runner is the boundary both the HTTP API and the CLI call into. It
// checks a run request, resolves the script, executes it and records the
// verdict on the summary board.
package runner

import (
	"context"
	"strings"

	"go.uber.org/zap"

	apperr "plcheck/cli/internal/errors"
	"plcheck/cli/internal/logging"
	"plcheck/cli/internal/pgpool"
	"plcheck/cli/internal/scripts"
	"plcheck/cli/internal/sqlexec"
	"plcheck/cli/internal/summary"
)

// Runner wires the pool manager, script loader and execution engine together.
type Runner struct {
	pool   *pgpool.Manager
	loader *scripts.Loader
	exec   *sqlexec.Executor
	board  *summary.Board
	log    *zap.Logger
}

// New creates a Runner. board may be nil when no summary is kept.
func New(pool *pgpool.Manager, loader *scripts.Loader, board *summary.Board, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if board == nil {
		board = summary.NewBoard()
	}
	return &Runner{
		pool:   pool,
		loader: loader,
		exec:   sqlexec.New(pool, log),
		board:  board,
		log:    log,
	}
}

// Connect replaces the shared pool with one for connString.
func (r *Runner) Connect(ctx context.Context, connString string) error {
	if err := r.pool.Connect(ctx, connString); err != nil {
		r.log.Warn("connect failed",
			zap.String("kind", string(apperr.KindOf(err))),
			zap.String("error", logging.Mask(err.Error())),
		)
		return err
	}
	return nil
}

// Connected reports whether a pool is established.
func (r *Runner) Connected() bool { return r.pool.IsConnected() }

// Database returns the masked connection string of the current pool.
func (r *Runner) Database() string { return r.pool.Descriptor() }

// Board returns the summary board runs are recorded on.
func (r *Runner) Board() *summary.Board { return r.board }

// RunScript runs the script called name.
//
// Checks happen in this order: a pool must exist (NotConnected), the name must be
// non-empty (BadRequest), the script must resolve (ScriptNotFound). A rejected
// request for a script the board knows marks it failed.
func (r *Runner) RunScript(ctx context.Context, name string) (*sqlexec.Result, error) {
	base := scripts.BaseName(name)

	if !r.pool.IsConnected() {
		return nil, r.reject(base, apperr.New(apperr.NotConnected, "Database connection not established. Please connect first."))
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperr.New(apperr.BadRequest, "Script name is required")
	}

	script, err := r.loader.Resolve(name)
	if err != nil {
		return nil, r.reject(base, err)
	}

	r.log.Info("executing script", zap.String("script", base))
	r.board.Start(base)

	res, err := r.exec.Run(ctx, script)
	if err != nil {
		r.board.Finish(base, false)
		return nil, err
	}
	res.Script = base
	r.board.Finish(base, res.Success)
	return res, nil
}

func (r *Runner) reject(base string, err error) error {
	if base != "" && r.board.Fail(base) {
		r.log.Debug("run rejected", zap.String("script", base), zap.String("kind", string(apperr.KindOf(err))))
	}
	return err
}
