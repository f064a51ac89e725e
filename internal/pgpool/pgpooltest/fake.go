// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pgpooltest provides an in-memory pgpool.Pool whose connections replay
// scripted notices and errors, and count every acquire, release, attach and detach.
package pgpooltest

import (
	"context"
	"errors"
	"sync"

	"plcheck/cli/internal/pgpool"
)

// Script describes how the fake server answers one SQL text.
type Script struct {
	Notices []string
	Err     error
	// Started, when set, receives a value once the script begins executing.
	Started chan<- struct{}
	// Gate, when set, holds execution until it is closed or receives.
	Gate <-chan struct{}
}

// Stats is a snapshot of the fake pool's counters.
type Stats struct {
	Acquired int
	Released int
	Attached int
	Detached int
	Probes   int
	Executed []string
	// Outstanding is the number of connections still checked out when Close ran.
	OutstandingAtClose int
}

// Pool is a scripted pgpool.Pool.
type Pool struct {
	mu      sync.Mutex
	scripts map[string]Script
	stats   Stats
	closed  bool

	ProbeErr   error
	AcquireErr error
}

// New returns an empty fake pool. Unknown SQL executes without notices.
func New() *Pool {
	return &Pool{scripts: make(map[string]Script)}
}

// On registers the behaviour for sql and returns the pool for chaining.
func (p *Pool) On(sql string, s Script) *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[sql] = s
	return p
}

// Stats returns a copy of the counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Executed = append([]string(nil), p.stats.Executed...)
	return s
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) Acquire(ctx context.Context) (pgpool.PooledConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("pgpooltest: pool is closed")
	}
	if p.AcquireErr != nil {
		return nil, p.AcquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.stats.Acquired++
	return &conn{pool: p}, nil
}

func (p *Pool) Probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Probes++
	return p.ProbeErr
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.stats.OutstandingAtClose = p.stats.Acquired - p.stats.Released
	}
	p.closed = true
}

type conn struct {
	pool     *Pool
	mu       sync.Mutex
	sink     func(pgpool.Notice)
	released bool
}

func (c *conn) Exec(ctx context.Context, sql string) error {
	c.pool.mu.Lock()
	s := c.pool.scripts[sql]
	c.pool.stats.Executed = append(c.pool.stats.Executed, sql)
	c.pool.mu.Unlock()

	if s.Started != nil {
		s.Started <- struct{}{}
	}
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, msg := range s.Notices {
		c.mu.Lock()
		sink := c.sink
		c.mu.Unlock()
		if sink != nil {
			sink(pgpool.Notice{Severity: "NOTICE", Code: "00000", Message: msg})
		}
	}
	return s.Err
}

func (c *conn) OnNotice(fn func(pgpool.Notice)) func() {
	c.mu.Lock()
	c.sink = fn
	c.mu.Unlock()

	c.pool.mu.Lock()
	c.pool.stats.Attached++
	c.pool.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.sink = nil
			c.mu.Unlock()

			c.pool.mu.Lock()
			c.pool.stats.Detached++
			c.pool.mu.Unlock()
		})
	}
}

func (c *conn) Release() {
	c.mu.Lock()
	already := c.released
	c.released = true
	c.mu.Unlock()
	if already {
		return
	}
	c.pool.mu.Lock()
	c.pool.stats.Released++
	c.pool.mu.Unlock()
}

// Opener returns an OpenFunc handing out pools in order; the last one is
// reused once the list is exhausted. It records every connection string it sees.
func Opener(pools ...*Pool) (pgpool.OpenFunc, *[]string) {
	var (
		mu   sync.Mutex
		next int
		seen []string
	)
	open := func(ctx context.Context, connString string) (pgpool.Pool, error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, connString)
		if len(pools) == 0 {
			return nil, errors.New("pgpooltest: no pools configured")
		}
		p := pools[next]
		if next < len(pools)-1 {
			next++
		}
		return p, nil
	}
	return open, &seen
}
