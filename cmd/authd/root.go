// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authd",
		Short: "authd - account and session service",
		Long: `authd registers accounts, verifies credentials and issues signed
session cookies. Protected endpoints re-check the account on every request,
so a ban takes effect immediately.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAccountCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig resolves and validates the configuration shared by every
// command that talks to the database.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded CONFIG_LOAD_FAILED
	}
	if err := cfg.Validate(); err != nil {
		return nil, oops.With("operation", "validate configuration").Wrap(err)
	}
	return cfg, nil
}
