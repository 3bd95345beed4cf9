// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/authd/internal/apierror"
)

// Success messages.
const (
	msgUserCreated    = "User created"
	msgUserSignedIn   = "User signed in"
	msgUserAuthorized = "user is authorized"
	msgUserSignedOut  = "User signed out"
)

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
}

type handlers struct {
	auth   Authenticator
	cookie CookieOptions
	logger *slog.Logger
}

// signUp handles POST /api/users/signup.
func (h *handlers) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	account, err := h.auth.SignUp(r.Context(), req.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, r, http.StatusCreated, msgUserCreated, account)
}

// signIn handles POST /api/users/signin. A caller that already holds a
// valid session gets it replaced.
func (h *handlers) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	account, token, err := h.auth.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if previous, ok := ClaimedIdentity(r.Context()); ok {
		h.logger.InfoContext(r.Context(), "replacing session",
			"previous_account_id", previous.ID,
			"account_id", account.ID.String())
	}
	http.SetCookie(w, h.sessionCookie(token))
	respond(w, r, http.StatusOK, msgUserSignedIn, account)
}

// currentUser handles GET /api/users/currentUser behind the full chain.
func (h *handlers) currentUser(w http.ResponseWriter, r *http.Request) {
	account, ok := ConfirmedIdentity(r.Context())
	if !ok {
		writeError(w, r, h.logger, oops.Code("CHAIN_OUT_OF_ORDER").Errorf("no confirmed identity"))
		return
	}
	respond(w, r, http.StatusOK, msgUserAuthorized, account)
}

// signOut handles POST /api/users/signOut behind the full chain.
func (h *handlers) signOut(w http.ResponseWriter, r *http.Request) {
	account, ok := ConfirmedIdentity(r.Context())
	claimed, claimedOK := ClaimedIdentity(r.Context())
	if !ok || !claimedOK {
		writeError(w, r, h.logger, oops.Code("CHAIN_OUT_OF_ORDER").Errorf("no confirmed identity"))
		return
	}
	if err := h.auth.SignOut(r.Context(), claimed); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	http.SetCookie(w, h.expiredCookie())
	h.logger.InfoContext(r.Context(), "signed out", "account_id", account.ID.String())
	respond(w, r, http.StatusOK, msgUserSignedOut, account)
}

// notFound handles unmatched routes and unsupported methods.
func (h *handlers) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, h.logger, apierror.NotFound("The URL "+r.URL.RequestURI()+" was not found."))
}

func (h *handlers) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *handlers) expiredCookie() *http.Cookie {
	c := h.sessionCookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}
