// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionPayload is the identity carried inside a session token. It is a
// snapshot taken at issuance and is never trusted for ban status.
type SessionPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsBanned bool   `json:"isBanned"`

	// TokenID and ExpiresAt are set when a token is decoded.
	TokenID   string     `json:"-"`
	ExpiresAt *time.Time `json:"-"`
}

// SessionCodec issues and verifies session tokens.
type SessionCodec interface {
	// Issue signs the payload into an opaque token.
	Issue(payload SessionPayload) (string, error)

	// Verify checks the token signature and decodes its payload.
	// Every failure wraps ErrInvalidToken.
	Verify(token string) (SessionPayload, error)
}

// sessionClaims is the JWT body. AccountID is serialized as "id" and the
// registered ID as "jti".
type sessionClaims struct {
	AccountID string `json:"id"`
	Username  string `json:"username"`
	IsBanned  bool   `json:"isBanned"`
	jwt.RegisteredClaims
}

// JWTCodec implements SessionCodec with HS256 tokens and a single
// process-wide key.
type JWTCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// JWTOption configures a JWTCodec.
type JWTOption func(*JWTCodec)

// WithTTL adds an expiry claim to issued tokens. Zero issues tokens that
// never expire.
func WithTTL(ttl time.Duration) JWTOption {
	return func(c *JWTCodec) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) JWTOption {
	return func(c *JWTCodec) {
		c.now = now
	}
}

// NewJWTCodec creates a JWTCodec. An empty key is a configuration error.
func NewJWTCodec(key []byte, opts ...JWTOption) (*JWTCodec, error) {
	if len(key) == 0 {
		return nil, oops.Code("CONFIG_INVALID").Errorf("session signing key is required")
	}
	c := &JWTCodec{
		key: key,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ttl < 0 {
		return nil, oops.Code("CONFIG_INVALID").With("ttl", c.ttl.String()).Errorf("session ttl cannot be negative")
	}
	return c, nil
}

// Issue signs the payload. A fresh token ID is generated for each token.
func (c *JWTCodec) Issue(payload SessionPayload) (string, error) {
	now := c.now()
	claims := sessionClaims{
		AccountID: payload.ID,
		Username:  payload.Username,
		IsBanned:  payload.IsBanned,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       ulid.Make().String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_SIGN_FAILED").With("username", payload.Username).Wrap(err)
	}
	return token, nil
}

// Verify checks the signature, algorithm and, when present, expiry.
func (c *JWTCodec) Verify(token string) (SessionPayload, error) {
	if token == "" {
		return SessionPayload{}, oops.Code("AUTH_INVALID_TOKEN").With("reason", "empty").Wrap(ErrInvalidToken)
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return SessionPayload{}, oops.Code("AUTH_INVALID_TOKEN").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	if claims.AccountID == "" || claims.Username == "" {
		return SessionPayload{}, oops.Code("AUTH_INVALID_TOKEN").With("reason", "missing identity claims").Wrap(ErrInvalidToken)
	}

	payload := SessionPayload{
		ID:       claims.AccountID,
		Username: claims.Username,
		IsBanned: claims.IsBanned,
		TokenID:  claims.RegisteredClaims.ID,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		payload.ExpiresAt = &exp
	}
	return payload, nil
}

var _ SessionCodec = (*JWTCodec)(nil)
