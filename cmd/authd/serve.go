// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/postgres"
	authredis "github.com/holomush/authd/internal/auth/redis"
	"github.com/holomush/authd/internal/config"
	"github.com/holomush/authd/internal/logging"
	"github.com/holomush/authd/internal/observability"
	"github.com/holomush/authd/internal/store"
	"github.com/holomush/authd/internal/web"
	"github.com/holomush/authd/pkg/errutil"
)

const (
	serviceName     = "authd"
	shutdownTimeout = 5 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the users API",
		Long: `Start the HTTP API for sign-up, sign-in, current user and sign-out,
plus the metrics and health probe server when metrics-addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err //nolint:wrapcheck // already coded CONFIG_LOAD_FAILED
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	if d == nil {
		d = &ServeDeps{}
	}
	if d.PoolFactory == nil {
		d.PoolFactory = func(ctx context.Context, url string, retries uint64, logger *slog.Logger) (Pool, error) {
			return store.Open(ctx, url, retries, logger)
		}
	}
	if d.RedisFactory == nil {
		d.RedisFactory = authredis.Dial
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readiness observability.ReadinessChecker, regs ...observability.Registration) ObservabilityServer {
			return observability.NewServer(addr, readiness, regs...)
		}
	}
	if d.APIServerFactory == nil {
		d.APIServerFactory = func(addr string, handler http.Handler, logger *slog.Logger) APIServer {
			return web.NewServer(addr, handler, logger)
		}
	}
	if d.LogWriter == nil {
		d.LogWriter = os.Stderr
	}
	return d
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if err := cfg.ValidateServe(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	// The signing key is checked before anything is opened or bound.
	codec, err := auth.NewJWTCodec([]byte(cfg.JWTKey), auth.WithTTL(cfg.SessionTTL))
	if err != nil {
		return oops.With("operation", "create session codec").Wrap(err)
	}

	logger := logging.SetDefault(serviceName, version, cfg.LogFormat, deps.LogWriter)
	logger.Info("starting authd",
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
		"session_ttl", cfg.SessionTTL,
		"revocation", cfg.RedisAddr != "")

	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL, uint64(cfg.DBConnectRetries), logger) //nolint:gosec // validated non-negative
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	var serviceOpts []auth.ServiceOption
	if cfg.RedisAddr != "" {
		client, err := deps.RedisFactory(ctx, cfg.RedisAddr)
		if err != nil {
			return oops.With("operation", "connect to redis").Wrap(err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Debug("error closing redis client", "error", closeErr)
			}
		}()
		serviceOpts = append(serviceOpts, auth.WithRevocationList(authredis.NewRevocationList(client)))
	}

	hasher := auth.NewScryptHasher(auth.WithHashConcurrency(cfg.HashConcurrency))
	svc, err := auth.NewServiceWithLogger(postgres.NewAccountRepository(pool), hasher, codec, logger, serviceOpts...)
	if err != nil {
		return oops.With("operation", "create auth service").Wrap(err)
	}

	router, err := web.NewRouter(web.RouterConfig{
		Auth:  svc,
		Codec: codec,
		Cookie: web.CookieOptions{
			Name:   cfg.CookieName,
			Secure: cfg.CookieSecure,
		},
		Logger: logger,
	})
	if err != nil {
		return oops.With("operation", "create router").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, pool.Ping, auth.RegisterMetrics, web.RegisterMetrics)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	apiServer := deps.APIServerFactory(cfg.HTTPAddr, router, logger)
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopServers(logger, nil, obsServer)
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("authd started")
	logger.Info("authd ready", "http_addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	stopServers(logger, apiServer, obsServer)
	logger.Info("shutdown complete")
	return nil
}

// stopServers shuts down whichever servers were started.
func stopServers(logger *slog.Logger, api APIServer, obs ObservabilityServer) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if api != nil {
		if err := api.Stop(ctx); err != nil {
			logger.Warn("error stopping api server", "error", err)
		}
	}
	if obs != nil {
		if err := obs.Stop(ctx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			errutil.LogError(slog.Default().With("server", serverName), "server error, triggering shutdown", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
