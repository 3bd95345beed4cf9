// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"runtime"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/sync/semaphore"
)

// scrypt parameters. Stored digests do not record them, so changing any of
// these invalidates every existing digest.
const (
	scryptN       = 16384 // CPU/memory cost
	scryptR       = 8     // block size
	scryptP       = 1     // parallelism
	scryptKeyLen  = 128   // derived key length in bytes
	scryptSaltLen = 16    // random bytes, hex encoded into the salt
)

// digestSeparator joins the hex key and the salt.
const digestSeparator = "."

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher derives and verifies password digests.
type PasswordHasher interface {
	// Hash produces a salted digest of the password.
	Hash(ctx context.Context, password string) (string, error)

	// Verify checks the password against a digest.
	// Returns (true, nil) on match and (false, nil) on mismatch or on a
	// malformed digest. An error means the check could not run at all.
	Verify(ctx context.Context, password, digest string) (bool, error)
}

// ScryptHasher implements PasswordHasher using scrypt.
//
// Key derivation is gated by a weighted semaphore so a burst of sign-ups
// cannot occupy every CPU at once; callers beyond the limit wait or give up
// when their context ends.
type ScryptHasher struct {
	n, r, p int
	sem     *semaphore.Weighted
}

// ScryptOption configures a ScryptHasher.
type ScryptOption func(*ScryptHasher)

// WithScryptCost overrides the scrypt cost parameters. Digests record only
// the key and salt, so a hasher must verify with the cost it hashed with.
func WithScryptCost(n, r, p int) ScryptOption {
	return func(h *ScryptHasher) {
		h.n, h.r, h.p = n, r, p
	}
}

// WithHashConcurrency limits concurrent key derivations. Values below one
// select GOMAXPROCS.
func WithHashConcurrency(limit int) ScryptOption {
	return func(h *ScryptHasher) {
		if limit < 1 {
			limit = runtime.GOMAXPROCS(0)
		}
		h.sem = semaphore.NewWeighted(int64(limit))
	}
}

// NewScryptHasher creates a new ScryptHasher.
func NewScryptHasher(opts ...ScryptOption) *ScryptHasher {
	h := &ScryptHasher{
		n:   scryptN,
		r:   scryptR,
		p:   scryptP,
		sem: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash produces "hex(key).salt" for the password.
func (h *ScryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	raw := make([]byte, scryptSaltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	salt := hex.EncodeToString(raw)

	start := time.Now()
	key, err := h.derive(ctx, password, salt, scryptKeyLen)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("operation", "hash").Wrap(err)
	}
	observeHash("hash", time.Since(start))

	return hex.EncodeToString(key) + digestSeparator + salt, nil
}

// Verify recomputes the key for password with the digest's salt and compares
// it in constant time.
func (h *ScryptHasher) Verify(ctx context.Context, password, digest string) (bool, error) {
	expected, salt, ok := splitDigest(digest)
	if !ok {
		return false, nil
	}

	start := time.Now()
	computed, err := h.derive(ctx, password, salt, len(expected))
	if err != nil {
		return false, oops.Code("AUTH_HASH_FAILED").With("operation", "verify").Wrap(err)
	}
	observeHash("verify", time.Since(start))

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func (h *ScryptHasher) derive(ctx context.Context, password, salt string, keyLen int) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by callers
	}
	defer h.sem.Release(1)

	//nolint:wrapcheck // wrapped by callers
	return scrypt.Key([]byte(password), []byte(salt), h.n, h.r, h.p, keyLen)
}

// splitDigest parses "hex(key).salt". Anything else is reported as not ok.
func splitDigest(digest string) (key []byte, salt string, ok bool) {
	parts := strings.Split(digest, digestSeparator)
	if len(parts) != 2 || parts[1] == "" {
		return nil, "", false
	}
	key, err := hex.DecodeString(parts[0])
	if err != nil || len(key) != scryptKeyLen {
		return nil, "", false
	}
	return key, parts[1], true
}
