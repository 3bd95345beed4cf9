// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errNoDatabase = errors.New("no database in unit tests")

// mockPool implements Pool for testing.
type mockPool struct {
	pingFunc func(ctx context.Context) error
	closed   atomic.Bool
}

func (m *mockPool) Ping(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

func (m *mockPool) Close() {
	m.closed.Store(true)
}

func (m *mockPool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNoDatabase
}

func (m *mockPool) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{}
}

type errRow struct{}

func (errRow) Scan(...any) error { return errNoDatabase }

// mockServer implements APIServer and ObservabilityServer for testing.
type mockServer struct {
	startFunc func() (<-chan error, error)
	stopFunc  func(ctx context.Context) error
	addr      string
	started   atomic.Bool
	stopped   atomic.Bool
}

func (m *mockServer) Start() (<-chan error, error) {
	m.started.Store(true)
	if m.startFunc != nil {
		return m.startFunc()
	}
	ch := make(chan error, 1)
	return ch, nil
}

func (m *mockServer) Stop(ctx context.Context) error {
	m.stopped.Store(true)
	if m.stopFunc != nil {
		return m.stopFunc(ctx)
	}
	return nil
}

func (m *mockServer) Addr() string {
	if m.addr != "" {
		return m.addr
	}
	return "127.0.0.1:3001"
}

// startedServer wraps an APIServer and publishes its bound address once
// Start succeeds.
type startedServer struct {
	APIServer
	addrCh chan<- string
}

func (s *startedServer) Start() (<-chan error, error) {
	errCh, err := s.APIServer.Start()
	if err == nil {
		s.addrCh <- s.APIServer.Addr()
	}
	return errCh, err
}
