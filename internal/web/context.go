// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"

	"github.com/holomush/authd/internal/auth"
)

type contextKey int

const (
	rawTokenKey contextKey = iota
	verifiedKey
	claimedKey
	confirmedKey
)

// WithClaimedIdentity returns a context carrying the identity decoded from a
// valid session token.
func WithClaimedIdentity(ctx context.Context, payload auth.SessionPayload) context.Context {
	return context.WithValue(ctx, claimedKey, payload)
}

// ClaimedIdentity returns the identity the caller's token claims. It has
// not been checked against the account store.
func ClaimedIdentity(ctx context.Context) (auth.SessionPayload, bool) {
	payload, ok := ctx.Value(claimedKey).(auth.SessionPayload)
	return payload, ok
}

// WithConfirmedIdentity returns a context carrying the account that passed
// revalidation.
func WithConfirmedIdentity(ctx context.Context, account *auth.Account) context.Context {
	return context.WithValue(ctx, confirmedKey, account)
}

// ConfirmedIdentity returns the revalidated account for the request.
func ConfirmedIdentity(ctx context.Context) (*auth.Account, bool) {
	account, ok := ctx.Value(confirmedKey).(*auth.Account)
	return account, ok && account != nil
}

func withRawToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, rawTokenKey, token)
}

func rawToken(ctx context.Context) string {
	token, _ := ctx.Value(rawTokenKey).(string) //nolint:errcheck // absent means empty
	return token
}

func withVerified(ctx context.Context, payload auth.SessionPayload) context.Context {
	return context.WithValue(ctx, verifiedKey, payload)
}

func verified(ctx context.Context) (auth.SessionPayload, bool) {
	payload, ok := ctx.Value(verifiedKey).(auth.SessionPayload)
	return payload, ok
}
