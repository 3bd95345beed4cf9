// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides account credentials and session primitives for authd.
//
// # Domain Types
//
// Account is the persistent record. Create it with NewAccount, which
// validates the username and requires a digest produced by a PasswordHasher.
// SessionPayload is the transient identity carried inside a session token.
//
// # Components
//
//   - ScryptHasher - derives and verifies password digests
//   - JWTCodec - issues and verifies signed session tokens
//   - Service - sign-up, sign-in and per-request account revalidation
//
// Persistence is behind AccountRepository; the PostgreSQL implementation
// lives in the postgres subpackage. Token revocation is optional and is
// behind RevocationList.
package auth
