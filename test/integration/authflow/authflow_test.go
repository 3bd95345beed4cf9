// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package authflow_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

type envelope struct {
	Success  bool   `json:"success"`
	Kind     string `json:"kind"`
	Status   int    `json:"status"`
	Messages []struct {
		Msg   string          `json:"msg"`
		Field string          `json:"field"`
		Data  json.RawMessage `json:"data"`
	} `json:"messages"`
}

type account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsBanned bool   `json:"isBanned"`
}

func newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &http.Client{Jar: jar}
}

func call(client *http.Client, method, path string, body any) (*http.Response, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	var out envelope
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return resp, out
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func decodeAccount(e envelope) account {
	Expect(e.Messages).NotTo(BeEmpty())
	var a account
	Expect(json.Unmarshal(e.Messages[0].Data, &a)).To(Succeed())
	return a
}

func uniqueUsername() string {
	return "user_" + ulid.Make().String()[20:]
}

var _ = Describe("Account lifecycle", func() {
	var (
		client   *http.Client
		username string
	)
	const password = "hunter22"

	BeforeEach(func() {
		client = newClient()
		username = uniqueUsername()
	})

	It("signs up, signs in and reports the current user", func() {
		resp, body := call(client, http.MethodPost, "/api/users/signup",
			map[string]any{"username": username, "password": password})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(body.Success).To(BeTrue())
		created := decodeAccount(body)
		Expect(created.Username).To(Equal(username))

		resp, body = call(client, http.MethodPost, "/api/users/signin",
			map[string]any{"username": username, "password": password})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body.Messages[0].Msg).To(Equal("User signed in"))
		cookie := sessionCookie(resp)
		Expect(cookie).NotTo(BeNil())
		Expect(cookie.HttpOnly).To(BeTrue())

		resp, body = call(client, http.MethodGet, "/api/users/currentUser", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(decodeAccount(body).ID).To(Equal(created.ID))
	})

	It("rejects a duplicate username", func() {
		resp, _ := call(client, http.MethodPost, "/api/users/signup",
			map[string]any{"username": username, "password": password})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		resp, body := call(newClient(), http.MethodPost, "/api/users/signup",
			map[string]any{"username": username, "password": "another1"})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(body.Kind).To(Equal("BadRequestError"))
		Expect(body.Messages[0].Msg).To(ContainSubstring(username))
	})

	It("rejects a live session once the account is banned", func() {
		call(client, http.MethodPost, "/api/users/signup",
			map[string]any{"username": username, "password": password})
		resp, _ := call(client, http.MethodPost, "/api/users/signin",
			map[string]any{"username": username, "password": password})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		Expect(env.accounts.SetBanned(env.ctx, username, true)).To(Succeed())

		resp, body := call(client, http.MethodGet, "/api/users/currentuser", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(body.Messages[0].Msg).To(Equal("User access suspended"))

		Expect(env.accounts.SetBanned(env.ctx, username, false)).To(Succeed())

		resp, _ = call(client, http.MethodGet, "/api/users/currentuser", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("revokes the token on sign-out", func() {
		call(client, http.MethodPost, "/api/users/signup",
			map[string]any{"username": username, "password": password})
		resp, _ := call(client, http.MethodPost, "/api/users/signin",
			map[string]any{"username": username, "password": password})
		stolen := sessionCookie(resp)
		Expect(stolen).NotTo(BeNil())

		resp, body := call(client, http.MethodPost, "/api/users/signout", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body.Messages[0].Msg).To(Equal("User signed out"))

		resp, _ = call(client, http.MethodGet, "/api/users/currentuser", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))

		replay := newClient()
		req, err := http.NewRequestWithContext(env.ctx, http.MethodGet, env.server.URL+"/api/users/currentuser", nil)
		Expect(err).NotTo(HaveOccurred())
		req.AddCookie(&http.Cookie{Name: cookieName, Value: stolen.Value})
		replayResp, err := replay.Do(req)
		Expect(err).NotTo(HaveOccurred())
		_ = replayResp.Body.Close()
		Expect(replayResp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("returns not found for unknown routes", func() {
		resp, body := call(client, http.MethodGet, "/api/users/unknown?x=1", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(body.Kind).To(Equal("NotFoundError"))
		Expect(body.Messages[0].Msg).To(Equal("The URL /api/users/unknown?x=1 was not found."))
	})
})
