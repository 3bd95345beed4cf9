// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	goredis "github.com/redis/go-redis/v9"

	"github.com/holomush/authd/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool and waits for it to answer.
	// Default: store.Open
	PoolFactory func(ctx context.Context, url string, retries uint64, logger *slog.Logger) (Pool, error)

	// RedisFactory connects the revocation list client. Only called when
	// redis-addr is set.
	// Default: authredis.Dial
	RedisFactory func(ctx context.Context, addr string) (*goredis.Client, error)

	// ObservabilityServerFactory creates the metrics and probe server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readiness observability.ReadinessChecker, regs ...observability.Registration) ObservabilityServer

	// APIServerFactory creates the users API server.
	// Default: web.NewServer
	APIServerFactory func(addr string, handler http.Handler, logger *slog.Logger) APIServer

	// LogWriter receives log output.
	// Default: os.Stderr
	LogWriter io.Writer
}

// Pool wraps the methods used from *pgxpool.Pool.
type Pool interface {
	Ping(ctx context.Context) error
	Close()
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// APIServer wraps the methods used from web.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
