// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pgpool owns the single shared PostgreSQL connection pool of the process.
//
// A Manager holds at most one Pool. Connect replaces it (draining the previous
// one first) and WithConn lends one connection to a caller for the duration of a
// callback, returning it to the pool on every path. The pgx-backed Pool lives in
// pgx.go; tests substitute the scripted fake from pgpooltest.
package pgpool

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"plcheck/cli/internal/dsn"
	apperr "plcheck/cli/internal/errors"
	"plcheck/cli/internal/logging"
)

// DefaultProbeTimeout bounds the liveness query issued after opening a pool.
const DefaultProbeTimeout = 5 * time.Second

// Notice is one asynchronous diagnostic message emitted by the server while a
// statement runs.
type Notice struct {
	Severity string
	Code     string
	Message  string
}

// Conn is a checked-out connection.
type Conn interface {
	// Exec submits sql as a single request. Multi-statement text is allowed.
	Exec(ctx context.Context, sql string) error
	// OnNotice routes notices received on this connection to fn until detach is
	// called. detach may be called more than once.
	OnNotice(fn func(Notice)) (detach func())
}

// PooledConn is a Conn that must be handed back with Release.
type PooledConn interface {
	Conn
	Release()
}

// Pool is the engine behind a Manager.
type Pool interface {
	Acquire(ctx context.Context) (PooledConn, error)
	// Probe runs the liveness query (SELECT now()).
	Probe(ctx context.Context) error
	// Close blocks until every acquired connection is released.
	Close()
}

// OpenFunc opens a Pool for a normalized connection string.
type OpenFunc func(ctx context.Context, connString string) (Pool, error)

// Manager serializes pool replacement against checkouts.
type Manager struct {
	mu           sync.RWMutex
	pool         Pool
	descriptor   string
	open         OpenFunc
	probeTimeout time.Duration
	log          *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithOpenFunc replaces the pgx opener, mainly for tests.
func WithOpenFunc(open OpenFunc) Option {
	return func(m *Manager) { m.open = open }
}

// WithProbeTimeout sets the timeout of the liveness probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.probeTimeout = d
		}
	}
}

// WithLogger sets the logger used for pool lifecycle events.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager creates a Manager with no pool.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		open:         OpenPgx,
		probeTimeout: DefaultProbeTimeout,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect establishes a new pool for connString, replacing any existing one.
//
// The previous pool is closed before the new one is opened; the write lock makes
// Connect wait for every in-flight WithConn scope. If opening or probing fails the
// Manager is left without a pool.
func (m *Manager) Connect(ctx context.Context, connString string) error {
	if strings.TrimSpace(connString) == "" {
		return apperr.New(apperr.ConfigError, "connection string is required")
	}
	normalized, err := dsn.Parse(connString)
	if err != nil {
		return apperr.Wrap(apperr.ConfigError, "invalid connection string", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		m.log.Info("closing previous pool", zap.String("database", m.descriptor))
		m.pool.Close()
		m.pool = nil
		m.descriptor = ""
	}

	descriptor := logging.MaskUser(connString)
	pool, err := m.open(ctx, normalized)
	if err != nil {
		if apperr.Is(err, apperr.ConfigError) {
			return err
		}
		return apperr.Wrap(apperr.ConnectionError, "failed to open connection pool", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()
	start := time.Now()
	if err := pool.Probe(probeCtx); err != nil {
		pool.Close()
		m.log.Warn("connection probe failed", zap.String("database", descriptor), zap.Error(err))
		return apperr.Wrap(apperr.ConnectionError, "database did not answer the connection probe", err)
	}

	m.pool = pool
	m.descriptor = descriptor
	m.log.Info("connected", zap.String("database", descriptor), zap.Duration("probe", time.Since(start)))
	return nil
}

// WithConn checks out one connection, calls fn with it and releases it when fn
// returns or panics. Without a pool it fails with NotConnected and touches nothing.
func (m *Manager) WithConn(ctx context.Context, fn func(Conn) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.pool == nil {
		return apperr.New(apperr.NotConnected, "not connected to a database; connect first")
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return apperr.Wrap(apperr.ConnectionError, "failed to acquire a connection", err)
	}
	defer conn.Release()

	return fn(conn)
}

// IsConnected reports whether a pool is established.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pool != nil
}

// Descriptor returns the masked connection string of the current pool, or "".
func (m *Manager) Descriptor() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.descriptor
}

// Close drains and closes the current pool, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool == nil {
		return
	}
	m.pool.Close()
	m.pool = nil
	m.log.Info("pool closed", zap.String("database", m.descriptor))
	m.descriptor = ""
}
