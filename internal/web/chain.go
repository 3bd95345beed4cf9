// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/authd/internal/apierror"
	"github.com/holomush/authd/internal/auth"
)

// Chain rejection messages.
const (
	msgNoSessionToken      = "No session token"
	msgInvalidSessionToken = "Invalid session token"
)

// Chain steps, used as the step label of rejection metrics.
const (
	StepPresence     = "presence"
	StepValidity     = "validity"
	StepRevalidation = "revalidation"
)

// Authenticator is the account service behind the HTTP handlers.
// *auth.Service implements it.
type Authenticator interface {
	SignUp(ctx context.Context, in auth.SignUpInput) (*auth.Account, error)
	SignIn(ctx context.Context, username, password string) (*auth.Account, string, error)
	Revalidate(ctx context.Context, claimed auth.SessionPayload) (*auth.Account, error)
	SignOut(ctx context.Context, claimed auth.SessionPayload) error
}

// Chain is the ordered authorization middleware for protected routes:
// TokenPresence, TokenValidity, IdentityAttachment, AccountRevalidation.
// Each step only runs when the previous one passed.
type Chain struct {
	codec      auth.SessionCodec
	accounts   Authenticator
	cookieName string
	logger     *slog.Logger
}

// NewChain creates a Chain that reads the session token from cookieName.
func NewChain(codec auth.SessionCodec, accounts Authenticator, cookieName string, logger *slog.Logger) *Chain {
	return &Chain{
		codec:      codec,
		accounts:   accounts,
		cookieName: cookieName,
		logger:     logger,
	}
}

// RequireIdentity runs the full chain before next.
func (c *Chain) RequireIdentity(next http.Handler) http.Handler {
	return c.TokenPresence(c.TokenValidity(c.IdentityAttachment(c.AccountRevalidation(next))))
}

// OptionalIdentity attaches the claimed identity when the request carries a
// valid token. Requests without one pass through unchanged.
func (c *Chain) OptionalIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := c.sessionToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		payload, err := c.codec.Verify(token)
		if err != nil {
			c.logger.DebugContext(r.Context(), "ignoring invalid session token", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaimedIdentity(r.Context(), payload)))
	})
}

// TokenPresence rejects requests without a non-empty session cookie.
func (c *Chain) TokenPresence(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := c.sessionToken(r)
		if !ok {
			c.reject(w, r, StepPresence, apierror.Unauthorized(msgNoSessionToken))
			return
		}
		next.ServeHTTP(w, r.WithContext(withRawToken(r.Context(), token)))
	})
}

// TokenValidity rejects tokens that fail signature or claim checks.
func (c *Chain) TokenValidity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := c.codec.Verify(rawToken(r.Context()))
		if err != nil {
			c.reject(w, r, StepValidity, apierror.Unauthorized(msgInvalidSessionToken).WithCause(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(withVerified(r.Context(), payload)))
	})
}

// IdentityAttachment publishes the verified payload as the claimed identity.
func (c *Chain) IdentityAttachment(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := verified(r.Context())
		if !ok {
			writeError(w, r, c.logger, oops.Code("CHAIN_OUT_OF_ORDER").
				Errorf("identity attachment ran before token validity"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaimedIdentity(r.Context(), payload)))
	})
}

// AccountRevalidation re-reads the claimed account. Missing, banned and
// revoked identities are rejected; store failures are internal errors.
func (c *Chain) AccountRevalidation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claimed, ok := ClaimedIdentity(r.Context())
		if !ok {
			writeError(w, r, c.logger, oops.Code("CHAIN_OUT_OF_ORDER").
				Errorf("account revalidation ran without a claimed identity"))
			return
		}
		account, err := c.accounts.Revalidate(r.Context(), claimed)
		if err != nil {
			if apierror.IsKind(err, apierror.KindUnauthorized) {
				c.reject(w, r, StepRevalidation, err)
				return
			}
			writeError(w, r, c.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithConfirmedIdentity(r.Context(), account)))
	})
}

func (c *Chain) sessionToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (c *Chain) reject(w http.ResponseWriter, r *http.Request, step string, err error) {
	AuthorizationRejections.WithLabelValues(step).Inc()
	c.logger.InfoContext(r.Context(), "authorization rejected", "step", step, "reason", err.Error())
	writeError(w, r, c.logger, err)
}
