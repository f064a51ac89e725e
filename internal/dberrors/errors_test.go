// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dberrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	apperr "plcheck/cli/internal/errors"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Cause
	}{
		{"nil", nil, ""},
		{"config error", apperr.New(apperr.ConfigError, "invalid DSN format"), CauseInvalidDSN},
		{"bad password", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}, CauseAuth},
		{"no pg_hba entry", &pgconn.PgError{Code: "28000"}, CauseAuth},
		{"unknown database", fmt.Errorf("connect: %w", &pgconn.PgError{Code: "3D000"}), CauseUnknownDatabase},
		{"other sqlstate falls through", &pgconn.PgError{Code: "53300", Message: "too many connections"}, CauseUnknown},
		{"dns", &net.DNSError{Err: "no such host", Name: "db.invalid"}, CauseDNS},
		{"refused errno", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, CauseRefused},
		{"refused text", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), CauseRefused},
		{"deadline", fmt.Errorf("probe: %w", context.DeadlineExceeded), CauseTimeout},
		{"tls", errors.New("tls: failed to verify certificate"), CauseTLS},
		{"wrapped in connection error", apperr.Wrap(apperr.ConnectionError, "probe failed", &pgconn.PgError{Code: "28P01"}), CauseAuth},
		{"unknown", errors.New("something odd"), CauseUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.err))
		})
	}
}

func TestDescribe_TitleAndHints(t *testing.T) {
	d := Describe(errors.New("connection refused"), "connecting")
	assert.Equal(t, CauseRefused, d.Cause)
	assert.Equal(t, "Connection refused while connecting", d.Title)
	assert.NotEmpty(t, d.Hints)
}

func TestDescribe_DetailIsMasked(t *testing.T) {
	err := errors.New("failed to connect to postgres://alice:hunter2@db:5432/app: timeout")
	d := Describe(err, "connecting")

	assert.NotContains(t, d.Detail, "hunter2")
	assert.NotContains(t, d.Detail, "alice")
}

func TestDescribe_DetailIsShortened(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	d := Describe(errors.New(string(long)), "connecting")
	assert.Len(t, d.Detail, 203)
}

func TestPresent_ReturnsErr(t *testing.T) {
	assert.NoError(t, Present(nil, "connecting"))

	err := errors.New("boom")
	assert.Same(t, err, Present(err, "connecting"))
}
