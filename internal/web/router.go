// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web is the HTTP boundary of authd: the users API, the
// authorization chain that guards it, and the JSON envelopes it answers with.
package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/samber/oops"

	"github.com/holomush/authd/internal/auth"
)

// corsMaxAge is how long browsers may cache a preflight response, in seconds.
const corsMaxAge = 300

// RouterConfig holds the router's dependencies.
type RouterConfig struct {
	Auth   Authenticator
	Codec  auth.SessionCodec
	Cookie CookieOptions
	Logger *slog.Logger
}

// NewRouter builds the users API:
//
//	POST /api/users/signup       create an account
//	POST /api/users/signin       verify credentials, set the session cookie
//	GET  /api/users/currentUser  report the revalidated caller
//	POST /api/users/signOut      clear the session cookie
//
// Paths match case-insensitively. Anything else is a 404 envelope.
func NewRouter(cfg RouterConfig) (*chi.Mux, error) {
	if cfg.Auth == nil {
		return nil, oops.Code("CONFIG_INVALID").Errorf("authenticator is required")
	}
	if cfg.Codec == nil {
		return nil, oops.Code("CONFIG_INVALID").Errorf("session codec is required")
	}
	if cfg.Cookie.Name == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("cookie name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{auth: cfg.Auth, cookie: cfg.Cookie, logger: logger}
	chain := NewChain(cfg.Codec, cfg.Auth, cfg.Cookie.Name, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(instrument(logger))
	r.Use(recoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(_ *http.Request, _ string) bool { return true },
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}))
	r.Use(caseInsensitiveRoutes)

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.notFound)

	r.Route("/api/users", func(r chi.Router) {
		r.With(chain.OptionalIdentity).Post("/signup", h.signUp)
		r.With(chain.OptionalIdentity).Post("/signin", h.signIn)

		r.Group(func(r chi.Router) {
			r.Use(chain.RequireIdentity)
			r.Get("/currentuser", h.currentUser)
			r.Post("/signout", h.signOut)
		})
	})

	return r, nil
}
