// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/authd/internal/apierror"
	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/web"
)

const (
	testCookie = "session"
	testKey    = "test-signing-key"
)

// memoryAccounts is an in-memory auth.AccountRepository.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]auth.Account
	getErr   error
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{accounts: map[string]auth.Account{}}
}

func (m *memoryAccounts) Create(_ context.Context, account *auth.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.Username]; ok {
		return auth.ErrUsernameTaken
	}
	m.accounts[account.Username] = *account
	return nil
}

func (m *memoryAccounts) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	account, ok := m.accounts[username]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &account, nil
}

func (m *memoryAccounts) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[username]
	return ok, nil
}

func (m *memoryAccounts) SetBanned(_ context.Context, username string, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[username]
	if !ok {
		return auth.ErrNotFound
	}
	account.IsBanned = banned
	m.accounts[username] = account
	return nil
}

func (m *memoryAccounts) failGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

func (m *memoryAccounts) delete(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, username)
}

func (m *memoryAccounts) digest(username string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[username].PasswordDigest
}

// memoryRevocations is an in-memory auth.RevocationList.
type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (m *memoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = map[string]time.Time{}
	}
	m.revoked[tokenID] = until
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

type harness struct {
	t        *testing.T
	accounts *memoryAccounts
	codec    *auth.JWTCodec
	router   http.Handler
	logs     *bytes.Buffer
}

func newHarness(t *testing.T, opts ...auth.ServiceOption) *harness {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	accounts := newMemoryAccounts()
	codec, err := auth.NewJWTCodec([]byte(testKey))
	require.NoError(t, err)
	hasher := auth.NewScryptHasher(auth.WithScryptCost(16, 1, 1))
	svc, err := auth.NewServiceWithLogger(accounts, hasher, codec, logger, opts...)
	require.NoError(t, err)

	router, err := web.NewRouter(web.RouterConfig{
		Auth:   svc,
		Codec:  codec,
		Cookie: web.CookieOptions{Name: testCookie},
		Logger: logger,
	})
	require.NoError(t, err)

	return &harness{t: t, accounts: accounts, codec: codec, router: router, logs: logs}
}

func (h *harness) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(h *harness, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) signUp(username, password string, banned bool) {
	h.t.Helper()
	body, err := json.Marshal(map[string]any{"username": username, "password": password, "isBanned": banned})
	require.NoError(h.t, err)
	rec := h.do(http.MethodPost, "/api/users/signup", string(body))
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (h *harness) signIn(username, password string) *http.Cookie {
	h.t.Helper()
	body, err := json.Marshal(map[string]any{"username": username, "password": password})
	require.NoError(h.t, err)
	rec := h.do(http.MethodPost, "/api/users/signin", string(body))
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := findCookie(rec, testCookie)
	require.NotNil(h.t, cookie, "signin must set the session cookie")
	return cookie
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func session(token string) *http.Cookie {
	return &http.Cookie{Name: testCookie, Value: token}
}

type successBody struct {
	Success  bool `json:"success"`
	Status   int  `json:"status"`
	Messages []struct {
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	} `json:"messages"`
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder) successBody {
	t.Helper()
	var body successBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	require.True(t, body.Success)
	require.Len(t, body.Messages, 1)
	return body
}

func decodeFailure(t *testing.T, rec *httptest.ResponseRecorder) apierror.Envelope {
	t.Helper()
	var body apierror.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	require.False(t, body.Success)
	require.NotEmpty(t, body.Messages)
	return body
}

func decodeAccount(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var account map[string]any
	require.NoError(t, json.Unmarshal(raw, &account))
	return account
}
