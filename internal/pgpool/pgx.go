// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pgpool

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperr "plcheck/cli/internal/errors"
)

const applicationName = "plcheck"

// OpenPgx opens a pgxpool for connString with per-connection notice routing.
func OpenPgx(ctx context.Context, connString string) (Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, apperr.Wrap(apperr.ConfigError, "invalid connection string", err)
	}

	router := newNoticeRouter()
	cfg.ConnConfig.OnNotice = router.handle
	cfg.BeforeClose = func(c *pgx.Conn) { router.forget(c.PgConn()) }
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &pgxPool{pool: pool, router: router}, nil
}

type pgxPool struct {
	pool   *pgxpool.Pool
	router *noticeRouter
}

func (p *pgxPool) Acquire(ctx context.Context) (PooledConn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: c, router: p.router}, nil
}

func (p *pgxPool) Probe(ctx context.Context) error {
	var now time.Time
	return p.pool.QueryRow(ctx, "SELECT now()").Scan(&now)
}

func (p *pgxPool) Close() { p.pool.Close() }

type pgxConn struct {
	conn   *pgxpool.Conn
	router *noticeRouter
}

// Exec uses the simple query protocol so a script with several statements
// runs as one request.
func (c *pgxConn) Exec(ctx context.Context, sql string) error {
	_, err := c.conn.Conn().PgConn().Exec(ctx, sql).ReadAll()
	return err
}

func (c *pgxConn) OnNotice(fn func(Notice)) func() {
	return c.router.attach(c.conn.Conn().PgConn(), fn)
}

// Release returns the connection. pgxpool destroys it instead when the script
// left a transaction open.
func (c *pgxConn) Release() { c.conn.Release() }

type noticeSink struct {
	fn func(Notice)
}

// noticeRouter dispatches notices to the sink attached to the connection that
// received them. pgx calls handle on the goroutine reading that connection.
type noticeRouter struct {
	mu    sync.Mutex
	sinks map[*pgconn.PgConn]*noticeSink
}

func newNoticeRouter() *noticeRouter {
	return &noticeRouter{sinks: make(map[*pgconn.PgConn]*noticeSink)}
}

func (r *noticeRouter) handle(pc *pgconn.PgConn, n *pgconn.Notice) {
	r.mu.Lock()
	sink := r.sinks[pc]
	r.mu.Unlock()
	if sink == nil || n == nil {
		return
	}
	sink.fn(Notice{Severity: n.Severity, Code: n.Code, Message: n.Message})
}

func (r *noticeRouter) attach(pc *pgconn.PgConn, fn func(Notice)) func() {
	sink := &noticeSink{fn: fn}
	r.mu.Lock()
	r.sinks[pc] = sink
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.sinks[pc] == sink {
				delete(r.sinks, pc)
			}
		})
	}
}

func (r *noticeRouter) forget(pc *pgconn.PgConn) {
	r.mu.Lock()
	delete(r.sinks, pc)
	r.mu.Unlock()
}

func (r *noticeRouter) attached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sinks)
}
