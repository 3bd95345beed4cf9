// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redis stores revoked session token IDs in Redis.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/authd/internal/auth"
)

// KeyPrefix namespaces revocation keys.
const KeyPrefix = "authd:revoked:"

// cmdable is the subset of goredis.Cmdable used by RevocationList.
type cmdable interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Exists(ctx context.Context, keys ...string) *goredis.IntCmd
}

// RevocationList implements auth.RevocationList. Entries expire with the
// token they revoke; tokens without an expiry are kept indefinitely.
type RevocationList struct {
	client cmdable
	now    func() time.Time
}

// NewRevocationList creates a RevocationList over client.
func NewRevocationList(client cmdable) *RevocationList {
	return &RevocationList{client: client, now: time.Now}
}

// Revoke marks tokenID revoked until the given time. A zero until never
// expires. Tokens already past until are not stored.
func (l *RevocationList) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	var ttl time.Duration
	if !until.IsZero() {
		ttl = until.Sub(l.now())
		if ttl <= 0 {
			return nil
		}
	}
	if err := l.client.Set(ctx, KeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return oops.Code("REVOCATION_WRITE_FAILED").
			With("token_id", tokenID).
			Wrap(err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked.
func (l *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := l.client.Exists(ctx, KeyPrefix+tokenID).Result()
	if err != nil {
		return false, oops.Code("REVOCATION_READ_FAILED").
			With("token_id", tokenID).
			Wrap(err)
	}
	return n > 0, nil
}

// Dial connects to Redis at addr and verifies it with a ping.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", addr).Wrap(err)
	}
	return client, nil
}

var _ auth.RevocationList = (*RevocationList)(nil)
