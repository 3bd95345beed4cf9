// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Credential constraints applied to sign-up requests.
const (
	MinUsernameLength = 5
	MinPasswordLength = 6
)

// Account is a registered user.
type Account struct {
	ID             ulid.ULID `json:"id"`
	Username       string    `json:"username"`
	PasswordDigest string    `json:"-"`
	IsBanned       bool      `json:"isBanned"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"-"`
}

// NewAccount creates a validated Account with a fresh ID.
// The digest must come from PasswordHasher.Hash, never a plaintext password.
func NewAccount(username, digest string, banned bool) (*Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, oops.Code("ACCOUNT_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if digest == "" {
		return nil, oops.Code("ACCOUNT_INVALID_DIGEST").Errorf("password digest cannot be empty")
	}

	now := time.Now().UTC()
	return &Account{
		ID:             ulid.Make(),
		Username:       username,
		PasswordDigest: digest,
		IsBanned:       banned,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Payload returns the session identity snapshot for the account.
func (a *Account) Payload() SessionPayload {
	return SessionPayload{
		ID:       a.ID.String(),
		Username: a.Username,
		IsBanned: a.IsBanned,
	}
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns ErrUsernameTaken when the
	// username already exists.
	Create(ctx context.Context, account *Account) error

	// GetByUsername retrieves an account by exact username.
	// Returns ErrNotFound when no account matches.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// ExistsByUsername reports whether an account with the username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// SetBanned updates the ban flag. Returns ErrNotFound when no account matches.
	SetBanned(ctx context.Context, username string, banned bool) error
}
