// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/authd/internal/apierror"
)

// Client-facing messages.
const (
	msgUserNotFound       = "User not found"
	msgInvalidCredentials = "Invalid credentials"
	msgAccessSuspended    = "User access suspended"
)

// SignUpInput holds a validated sign-up request.
type SignUpInput struct {
	Username string
	Password string
	IsBanned bool
}

// Service provides sign-up, sign-in and revalidation.
type Service struct {
	accounts AccountRepository
	hasher   PasswordHasher
	codec    SessionCodec
	revoked  RevocationList
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRevocationList enables token revocation at sign-out.
func WithRevocationList(list RevocationList) ServiceOption {
	return func(s *Service) {
		s.revoked = list
	}
}

// NewService creates a new Service with the default logger.
func NewService(accounts AccountRepository, hasher PasswordHasher, codec SessionCodec, opts ...ServiceOption) (*Service, error) {
	return NewServiceWithLogger(accounts, hasher, codec, slog.Default(), opts...)
}

// NewServiceWithLogger creates a new Service. All dependencies are required.
func NewServiceWithLogger(accounts AccountRepository, hasher PasswordHasher, codec SessionCodec, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("accounts repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("session codec is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("logger is required")
	}

	s := &Service{
		accounts: accounts,
		hasher:   hasher,
		codec:    codec,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignUp hashes the password and stores a new account.
// A duplicate username is a BadRequestError whether it is caught by the
// existence check or by the store's unique constraint.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Account, error) {
	exists, err := s.accounts.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "check username").
			With("username", in.Username).
			Wrap(err)
	}
	if exists {
		return nil, usernameTaken(in.Username)
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(in.Username, digest, in.IsBanned)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "build account").Wrap(err)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, usernameTaken(in.Username).WithCause(err)
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create account").
			With("username", in.Username).
			Wrap(err)
	}

	SignUps.Inc()
	s.logger.InfoContext(ctx, "account created", "account_id", account.ID.String(), "username", account.Username)
	return account, nil
}

// SignIn verifies credentials and issues a session token.
// An unknown username is a BadRequestError; a wrong password is an
// UnauthorizedError.
func (s *Service) SignIn(ctx context.Context, username, password string) (*Account, string, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		recordSignIn(OutcomeUnknownUser)
		return nil, "", apierror.BadRequest(msgUserNotFound).WithCause(err)
	}
	if err != nil {
		recordSignIn(OutcomeError)
		return nil, "", oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "get account by username").
			With("username", username).
			Wrap(err)
	}

	ok, err := s.hasher.Verify(ctx, password, account.PasswordDigest)
	if err != nil {
		recordSignIn(OutcomeError)
		return nil, "", oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "verify password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if !ok {
		recordSignIn(OutcomeWrongPassword)
		s.logger.InfoContext(ctx, "sign-in rejected", "username", username, "reason", "wrong password")
		return nil, "", apierror.Unauthorized(msgInvalidCredentials)
	}

	token, err := s.codec.Issue(account.Payload())
	if err != nil {
		recordSignIn(OutcomeError)
		return nil, "", oops.Code("AUTH_SIGNIN_FAILED").With("operation", "issue token").Wrap(err)
	}

	recordSignIn(OutcomeSuccess)
	s.logger.InfoContext(ctx, "signed in", "account_id", account.ID.String())
	return account, token, nil
}

// Revalidate confirms that the account named by a decoded session still
// exists and is not banned. Ban status is always read from the store, never
// from the token.
func (s *Service) Revalidate(ctx context.Context, claimed SessionPayload) (*Account, error) {
	if s.revoked != nil && claimed.TokenID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claimed.TokenID)
		if err != nil {
			return nil, oops.Code("AUTH_REVALIDATE_FAILED").
				With("operation", "check revocation").
				Wrap(err)
		}
		if revoked {
			return nil, apierror.Unauthorized(msgAccessSuspended).WithCause(ErrRevoked)
		}
	}

	account, err := s.accounts.GetByUsername(ctx, claimed.Username)
	if errors.Is(err, ErrNotFound) {
		return nil, apierror.Unauthorized(msgAccessSuspended).WithCause(err)
	}
	if err != nil {
		return nil, oops.Code("AUTH_REVALIDATE_FAILED").
			With("operation", "get account by username").
			With("username", claimed.Username).
			Wrap(err)
	}
	if account.IsBanned {
		return nil, apierror.Unauthorized(msgAccessSuspended)
	}
	return account, nil
}

// SignOut revokes the session token when a revocation list is configured.
// Tokens without an expiry stay revoked indefinitely.
func (s *Service) SignOut(ctx context.Context, claimed SessionPayload) error {
	if s.revoked == nil || claimed.TokenID == "" {
		return nil
	}
	var until time.Time
	if claimed.ExpiresAt != nil {
		until = *claimed.ExpiresAt
	}
	if err := s.revoked.Revoke(ctx, claimed.TokenID, until); err != nil {
		return oops.Code("AUTH_SIGNOUT_FAILED").
			With("operation", "revoke token").
			With("username", claimed.Username).
			Wrap(err)
	}
	return nil
}

func usernameTaken(username string) *apierror.Error {
	return apierror.BadRequest(fmt.Sprintf("Username %s is already taken", username))
}
