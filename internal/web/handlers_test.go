// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authd/internal/apierror"
	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/web"
)

func TestSignUp_CreatesAccount(t *testing.T) {
	h := newHarness(t)
	before := testutil.ToFloat64(web.HTTPRequests.WithLabelValues("/api/users/signup", "201"))

	rec := h.do(http.MethodPost, "/api/users/signup", `{"username":"  ermis  ","password":"  hunter22  "}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeSuccess(t, rec)
	assert.Equal(t, http.StatusCreated, body.Status)
	assert.Equal(t, "User created", body.Messages[0].Msg)

	account := decodeAccount(t, body.Messages[0].Data)
	assert.Equal(t, "ermis", account["username"])
	assert.Equal(t, false, account["isBanned"])
	assert.NotEmpty(t, account["id"])
	assert.NotContains(t, account, "passwordDigest")

	digest := h.accounts.digest("ermis")
	require.NotEmpty(t, digest)
	assert.NotContains(t, rec.Body.String(), digest)
	assert.Equal(t, before+1, testutil.ToFloat64(web.HTTPRequests.WithLabelValues("/api/users/signup", "201")))

	// The stored password is the trimmed one.
	h.signIn("ermis", "hunter22")
}

func TestSignUp_BanFlag(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/users/signup", `{"username":"banned1","password":"secret1","isBanned":true,"nickname":"ignored"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decodeAccount(t, decodeSuccess(t, rec).Messages[0].Data)
	assert.Equal(t, true, account["isBanned"])
}

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []apierror.Message
	}{
		{
			name: "short username",
			body: `{"username":"abcd","password":"secret1"}`,
			want: []apierror.Message{{Msg: "Username must be at least 5 characters long", Field: "username"}},
		},
		{
			name: "password short after trimming",
			body: `{"username":"ermis","password":"  abc   "}`,
			want: []apierror.Message{{Msg: "Password must be at least 6 characters long", Field: "password"}},
		},
		{
			name: "empty body",
			body: "",
			want: []apierror.Message{
				{Msg: "Username must be at least 5 characters long", Field: "username"},
				{Msg: "Password must be at least 6 characters long", Field: "password"},
			},
		},
		{
			name: "non boolean ban flag",
			body: `{"username":"ermis","password":"secret1","isBanned":"yes"}`,
			want: []apierror.Message{{Msg: "isBanned must be a boolean", Field: "isBanned"}},
		},
		{
			name: "malformed json",
			body: `{"username":`,
			want: []apierror.Message{{Msg: "Request body must be valid JSON"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(http.MethodPost, "/api/users/signup", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decodeFailure(t, rec)
			assert.Equal(t, apierror.KindRequestValidation, env.Kind)
			assert.Equal(t, http.StatusBadRequest, env.Status)
			assert.Equal(t, tt.want, env.Messages)
		})
	}
}

func TestSignUp_DuplicateUsername(t *testing.T) {
	h := newHarness(t)
	h.signUp("ermis", "secret1", false)

	rec := h.do(http.MethodPost, "/api/users/signup", `{"username":"ermis","password":"another1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeFailure(t, rec)
	assert.Equal(t, apierror.KindBadRequest, env.Kind)
	assert.Equal(t, "Username ermis is already taken", env.Messages[0].Msg)
}

func TestSignIn_SetsSessionCookie(t *testing.T) {
	h := newHarness(t)
	h.signUp("ermis", "secret1", false)

	rec := h.do(http.MethodPost, "/api/users/signin", `{"username":"ermis","password":"secret1"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeSuccess(t, rec)
	assert.Equal(t, "User signed in", body.Messages[0].Msg)
	assert.Equal(t, "ermis", decodeAccount(t, body.Messages[0].Data)["username"])
	assert.NotContains(t, rec.Body.String(), h.accounts.digest("ermis"))

	cookie := findCookie(rec, testCookie)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.False(t, cookie.Secure)

	payload, err := h.codec.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "ermis", payload.Username)
	assert.False(t, payload.IsBanned)
	assert.Nil(t, payload.ExpiresAt, "sessions do not expire by default")
}

func TestSignIn_Failures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   apierror.Kind
		wantMsgs   []string
	}{
		{
			name:       "unknown username",
			body:       `{"username":"nobody","password":"secret1"}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   apierror.KindBadRequest,
			wantMsgs:   []string{"User not found"},
		},
		{
			name:       "wrong password",
			body:       `{"username":"ermis","password":"wrong-password"}`,
			wantStatus: http.StatusUnauthorized,
			wantKind:   apierror.KindUnauthorized,
			wantMsgs:   []string{"Invalid credentials"},
		},
		{
			name:       "blank fields",
			body:       `{"username":"   ","password":""}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   apierror.KindRequestValidation,
			wantMsgs:   []string{"Username is required", "Password is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.signUp("ermis", "secret1", false)

			rec := h.do(http.MethodPost, "/api/users/signin", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Nil(t, findCookie(rec, testCookie))
			env := decodeFailure(t, rec)
			assert.Equal(t, tt.wantKind, env.Kind)
			msgs := make([]string, 0, len(env.Messages))
			for _, m := range env.Messages {
				msgs = append(msgs, m.Msg)
			}
			assert.Equal(t, tt.wantMsgs, msgs)
		})
	}
}

func TestRoutes_MatchCaseInsensitively(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/users/signUp", `{"username":"ermis","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/API/Users/SignIn", `{"username":"ermis","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := findCookie(rec, testCookie)
	require.NotNil(t, cookie)

	rec = h.do(http.MethodGet, "/api/users/currentUser", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCurrentUser_ReturnsConfirmedAccount(t *testing.T) {
	h := newHarness(t)
	h.signUp("ermis", "secret1", false)
	cookie := h.signIn("ermis", "secret1")

	rec := h.do(http.MethodGet, "/api/users/currentUser", "", cookie)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeSuccess(t, rec)
	assert.Equal(t, "user is authorized", body.Messages[0].Msg)
	account := decodeAccount(t, body.Messages[0].Data)
	assert.Equal(t, "ermis", account["username"])
	assert.NotContains(t, rec.Body.String(), h.accounts.digest("ermis"))
}

func TestCurrentUser_Rejections(t *testing.T) {
	otherCodec, err := auth.NewJWTCodec([]byte("some-other-key"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		setup    func(t *testing.T, h *harness) []*http.Cookie
		wantStep string
		wantMsg  string
	}{
		{
			name:     "no cookie",
			setup:    func(*testing.T, *harness) []*http.Cookie { return nil },
			wantStep: web.StepPresence,
			wantMsg:  "No session token",
		},
		{
			name:     "empty cookie",
			setup:    func(*testing.T, *harness) []*http.Cookie { return []*http.Cookie{session("")} },
			wantStep: web.StepPresence,
			wantMsg:  "No session token",
		},
		{
			name:     "garbage token",
			setup:    func(*testing.T, *harness) []*http.Cookie { return []*http.Cookie{session("not.a.token")} },
			wantStep: web.StepValidity,
			wantMsg:  "Invalid session token",
		},
		{
			name: "claims edited without re-signing",
			setup: func(t *testing.T, h *harness) []*http.Cookie {
				h.signUp("admin", "secret1", false)
				cookie := h.signIn("ermis", "secret1")
				return []*http.Cookie{session(forgeUsername(t, cookie.Value, "admin"))}
			},
			wantStep: web.StepValidity,
			wantMsg:  "Invalid session token",
		},
		{
			name: "signature tail changed in its padding bits",
			setup: func(t *testing.T, h *harness) []*http.Cookie {
				cookie := h.signIn("ermis", "secret1")
				altered := flipSignatureTail(cookie.Value)
				require.NotEqual(t, cookie.Value, altered)
				return []*http.Cookie{session(altered)}
			},
			wantStep: web.StepValidity,
			wantMsg:  "Invalid session token",
		},
		{
			name: "token signed with another key",
			setup: func(t *testing.T, h *harness) []*http.Cookie {
				token, err := otherCodec.Issue(auth.SessionPayload{ID: "01J", Username: "ermis"})
				require.NoError(t, err)
				return []*http.Cookie{session(token)}
			},
			wantStep: web.StepValidity,
			wantMsg:  "Invalid session token",
		},
		{
			name: "banned after issuance",
			setup: func(t *testing.T, h *harness) []*http.Cookie {
				cookie := h.signIn("ermis", "secret1")
				require.NoError(t, h.accounts.SetBanned(t.Context(), "ermis", true))
				return []*http.Cookie{cookie}
			},
			wantStep: web.StepRevalidation,
			wantMsg:  "User access suspended",
		},
		{
			name: "account deleted after issuance",
			setup: func(t *testing.T, h *harness) []*http.Cookie {
				cookie := h.signIn("ermis", "secret1")
				h.accounts.delete("ermis")
				return []*http.Cookie{cookie}
			},
			wantStep: web.StepRevalidation,
			wantMsg:  "User access suspended",
		},
		{
			name: "validly signed token for unknown account",
			setup: func(t *testing.T, h *harness) []*http.Cookie {
				token, err := h.codec.Issue(auth.SessionPayload{ID: "01J", Username: "ghost"})
				require.NoError(t, err)
				return []*http.Cookie{session(token)}
			},
			wantStep: web.StepRevalidation,
			wantMsg:  "User access suspended",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.signUp("ermis", "secret1", false)
			cookies := tt.setup(t, h)
			rejections := web.AuthorizationRejections.WithLabelValues(tt.wantStep)
			before := testutil.ToFloat64(rejections)

			rec := h.do(http.MethodGet, "/api/users/currentUser", "", cookies...)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			env := decodeFailure(t, rec)
			assert.Equal(t, apierror.KindUnauthorized, env.Kind)
			assert.Equal(t, http.StatusUnauthorized, env.Status)
			assert.Equal(t, tt.wantMsg, env.Messages[0].Msg)
			assert.Equal(t, before+1, testutil.ToFloat64(rejections))
		})
	}
}

func TestCurrentUser_BanSetAtSignUpIsEnforced(t *testing.T) {
	h := newHarness(t)
	h.signUp("banned1", "secret1", true)
	cookie := h.signIn("banned1", "secret1")

	rec := h.do(http.MethodGet, "/api/users/currentUser", "", cookie)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User access suspended", decodeFailure(t, rec).Messages[0].Msg)
}

func TestCurrentUser_UnbanRestoresAccess(t *testing.T) {
	h := newHarness(t)
	h.signUp("ermis", "secret1", false)
	cookie := h.signIn("ermis", "secret1")
	require.NoError(t, h.accounts.SetBanned(t.Context(), "ermis", true))

	rec := h.do(http.MethodGet, "/api/users/currentUser", "", cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, h.accounts.SetBanned(t.Context(), "ermis", false))
	rec = h.do(http.MethodGet, "/api/users/currentUser", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCurrentUser_StoreFailureIsInternal(t *testing.T) {
	h := newHarness(t)
	h.signUp("ermis", "secret1", false)
	cookie := h.signIn("ermis", "secret1")
	h.accounts.failGets(errors.New("connection refused to 10.0.0.5"))

	rec := h.do(http.MethodGet, "/api/users/currentUser", "", cookie)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeFailure(t, rec)
	assert.Equal(t, apierror.KindInternal, env.Kind)
	assert.Equal(t, "Something went wrong", env.Messages[0].Msg)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, h.logs.String(), "10.0.0.5", "cause is logged")
}

func TestSignOut_ClearsCookie(t *testing.T) {
	h := newHarness(t)
	h.signUp("ermis", "secret1", false)
	cookie := h.signIn("ermis", "secret1")

	rec := h.do(http.MethodPost, "/api/users/signOut", "", cookie)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeSuccess(t, rec)
	assert.Equal(t, "User signed out", body.Messages[0].Msg)
	assert.Equal(t, "ermis", decodeAccount(t, body.Messages[0].Data)["username"])

	cleared := findCookie(rec, testCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Expires=Thu, 01 Jan 1970 00:00:00 GMT")
}

func TestSignOut_Unauthenticated(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/users/signOut", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No session token", decodeFailure(t, rec).Messages[0].Msg)
	assert.Nil(t, findCookie(rec, testCookie))
}

func TestSignOut_WithoutRevocationTokenStaysValid(t *testing.T) {
	h := newHarness(t)
	h.signUp("ermis", "secret1", false)
	cookie := h.signIn("ermis", "secret1")

	rec := h.do(http.MethodPost, "/api/users/signOut", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/users/currentUser", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignOut_RevokesToken(t *testing.T) {
	revocations := &memoryRevocations{}
	h := newHarness(t, auth.WithRevocationList(revocations))
	h.signUp("ermis", "secret1", false)
	cookie := h.signIn("ermis", "secret1")

	rec := h.do(http.MethodPost, "/api/users/signOut", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/users/currentUser", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User access suspended", decodeFailure(t, rec).Messages[0].Msg)

	fresh := h.signIn("ermis", "secret1")
	rec = h.do(http.MethodGet, "/api/users/currentUser", "", fresh)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignIn_ReplacesExistingSession(t *testing.T) {
	h := newHarness(t)
	h.signUp("ermis", "secret1", false)
	h.signUp("other", "secret2", false)
	first := h.signIn("ermis", "secret1")

	rec := h.do(http.MethodPost, "/api/users/signin", `{"username":"other","password":"secret2"}`, first)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, h.logs.String(), "replacing session")
	second := findCookie(rec, testCookie)
	require.NotNil(t, second)
	payload, err := h.codec.Verify(second.Value)
	require.NoError(t, err)
	assert.Equal(t, "other", payload.Username)
}

func TestNotFound(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		wantMsg string
	}{
		{"unknown path", http.MethodGet, "/api/users/unknown", "The URL /api/users/unknown was not found."},
		{"root", http.MethodGet, "/", "The URL / was not found."},
		{"query is kept", http.MethodGet, "/nope?x=1", "The URL /nope?x=1 was not found."},
		{"wrong method on known path", http.MethodGet, "/api/users/signin", "The URL /api/users/signin was not found."},
		{"delete current user", http.MethodDelete, "/api/users/currentUser", "The URL /api/users/currentUser was not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(tt.method, tt.path, "")

			assert.Equal(t, http.StatusNotFound, rec.Code)
			env := decodeFailure(t, rec)
			assert.Equal(t, apierror.KindNotFound, env.Kind)
			assert.Equal(t, http.StatusNotFound, env.Status)
			assert.Equal(t, tt.wantMsg, env.Messages[0].Msg)
		})
	}
}

func TestCORS_AllowsCredentialedOrigins(t *testing.T) {
	h := newHarness(t)
	req := newRequest(http.MethodOptions, "/api/users/signin")
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	rec := serve(h, req)

	assert.Less(t, rec.Code, http.StatusMultipleChoices)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_LogsRequests(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/nowhere", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, h.logs.String(), `"path":"/nowhere"`)
	assert.Contains(t, h.logs.String(), `"status":404`)
}

func TestSession_ExpiresWhenTTLConfigured(t *testing.T) {
	h := newHarness(t)
	h.signUp("ermis", "secret1", false)

	issuedAt := time.Now().Add(-2 * time.Hour)
	stale, err := auth.NewJWTCodec([]byte(testKey), auth.WithTTL(time.Hour),
		auth.WithClock(func() time.Time { return issuedAt }))
	require.NoError(t, err)
	token, err := stale.Issue(auth.SessionPayload{ID: "01J", Username: "ermis"})
	require.NoError(t, err)

	rec := h.do(http.MethodGet, "/api/users/currentUser", "", session(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid session token", decodeFailure(t, rec).Messages[0].Msg)

	fresh, err := auth.NewJWTCodec([]byte(testKey), auth.WithTTL(time.Hour))
	require.NoError(t, err)
	token, err = fresh.Issue(auth.SessionPayload{ID: "01J", Username: "ermis"})
	require.NoError(t, err)

	rec = h.do(http.MethodGet, "/api/users/currentUser", "", session(token))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// forgeUsername rewrites the username claim and keeps the old signature.
func forgeUsername(t *testing.T, token, username string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var claims map[string]any
	require.NoError(t, json.Unmarshal(raw, &claims))
	claims["username"] = username
	raw, err = json.Marshal(claims)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(raw)
	return strings.Join(parts, ".")
}

// flipSignatureTail swaps the token's last character for its neighbour in
// the base64url alphabet, touching only the signature's unused low bits.
func flipSignatureTail(token string) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := strings.IndexByte(alphabet, token[len(token)-1])
	return token[:len(token)-1] + string(alphabet[last^1])
}
