// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/authd/internal/store"
)

var _ = Describe("Accounts schema", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("authd_test"),
			postgres.WithUsername("authd"),
			postgres.WithPassword("authd"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Open(ctx, connStr, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	insert := func(id, username, digest string) error {
		_, err := pool.Exec(ctx,
			`INSERT INTO accounts (id, username, password_digest) VALUES ($1, $2, $3)`,
			id, username, digest)
		return err
	}

	pgCode := func(err error) string {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return pgErr.Code
		}
		return ""
	}

	It("defaults is_banned to false", func() {
		Expect(insert("01J0000000000000000000000A", "defaults", "k.s")).To(Succeed())

		var banned bool
		Expect(pool.QueryRow(ctx, `SELECT is_banned FROM accounts WHERE username = 'defaults'`).Scan(&banned)).To(Succeed())
		Expect(banned).To(BeFalse())
	})

	It("rejects a duplicate username with a unique violation", func() {
		Expect(insert("01J0000000000000000000000B", "duplicate", "k.s")).To(Succeed())
		err := insert("01J0000000000000000000000C", "duplicate", "k.s")
		Expect(err).To(HaveOccurred())
		Expect(pgCode(err)).To(Equal(pgerrcode.UniqueViolation))
	})

	It("rejects usernames shorter than five characters", func() {
		err := insert("01J0000000000000000000000D", "abcd", "k.s")
		Expect(pgCode(err)).To(Equal(pgerrcode.CheckViolation))
	})

	It("rejects an empty digest", func() {
		err := insert("01J0000000000000000000000E", "nodigest", "")
		Expect(pgCode(err)).To(Equal(pgerrcode.CheckViolation))
	})
})
