// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/postgres"
	"github.com/holomush/authd/internal/config"
	"github.com/holomush/authd/internal/logging"
	"github.com/holomush/authd/internal/store"
	"github.com/holomush/authd/pkg/errutil"
)

// banSetter wraps the method used from auth.AccountRepository.
type banSetter interface {
	SetBanned(ctx context.Context, username string, banned bool) error
}

// accountStoreFactory opens the account store. The returned function
// releases it.
type accountStoreFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (banSetter, func(), error)

func defaultAccountStoreFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (banSetter, func(), error) {
	pool, err := store.Open(ctx, cfg.DatabaseURL, uint64(cfg.DBConnectRetries), logger) //nolint:gosec // validated non-negative
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // store.Open codes its errors
	}
	return postgres.NewAccountRepository(pool), pool.Close, nil
}

// NewAccountCmd creates the account subcommand.
func NewAccountCmd() *cobra.Command {
	return newAccountCmd(defaultAccountStoreFactory)
}

func newAccountCmd(factory accountStoreFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Administer accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ban USERNAME",
		Short: "Suspend an account; its sessions are rejected on the next request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setBanned(cmd, factory, args[0], true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "unban USERNAME",
		Short: "Restore a suspended account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setBanned(cmd, factory, args[0], false)
		},
	})
	return cmd
}

func setBanned(cmd *cobra.Command, factory accountStoreFactory, username string, banned bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(serviceName, version, cfg.LogFormat, cmd.ErrOrStderr())

	accounts, release, err := factory(cmd.Context(), cfg, logger)
	if err != nil {
		return oops.With("operation", "open account store").Wrap(err)
	}
	defer release()

	if err := accounts.SetBanned(cmd.Context(), username, banned); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Errorf("no account named %q", username)
		}
		err = oops.With("operation", "update ban flag").With("username", username).Wrap(err)
		errutil.LogError(logger, "update ban flag failed", err)
		return err
	}

	if banned {
		cmd.Printf("Account %s banned\n", username)
	} else {
		cmd.Printf("Account %s unbanned\n", username)
	}
	return nil
}
