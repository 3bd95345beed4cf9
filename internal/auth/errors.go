// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested account does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when an insert collides with an existing
// username. Repositories must return it for unique-constraint violations.
var ErrUsernameTaken = errors.New("username taken")

// ErrInvalidToken is returned for any session token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// ErrRevoked is returned when a session token was revoked at sign-out.
var ErrRevoked = errors.New("session token revoked")
