package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"cyberguard.org/internal/audit"
	"cyberguard.org/internal/auth"
	"cyberguard.org/internal/ids"
	"cyberguard.org/internal/settings"
	"cyberguard.org/internal/store/memory"
	"cyberguard.org/internal/stream"
	"cyberguard.org/internal/threat"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	store   *memory.Store
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	store := memory.New()
	seedIdentity(t, store, "admin", "admin", auth.RoleAdmin)
	seedIdentity(t, store, "analyst", "analyst", auth.RoleAnalyst)
	seedIdentity(t, store, "ghost", "ghost", auth.RoleAnalyst)
	disableIdentity(t, store, "ghost")

	recorder := audit.NewSink(store.Audit())
	tokens := auth.NewTokenService([]byte("test-secret"))
	deps := Deps{
		Auth:       auth.NewService(store.Identities(), tokens, recorder),
		Tokens:     tokens,
		Identities: store.Identities(),
		Threats:    threat.NewService(store.Threats()),
		Settings:   settings.NewService(store.Settings()),
		AuditStore: store.Audit(),
		Recorder:   recorder,
		Stream:     stream.New(),
	}

	api := New(ReadyProbe{}, "test", deps)
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		store:   store,
		t:       t,
	}
}

func seedIdentity(t *testing.T, store *memory.Store, username, password, role string) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	err = store.Identities().Create(context.Background(), &auth.Identity{
		ID:           ids.New(),
		Username:     username,
		Email:        username + "@cyberguard.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed identity %s: %v", username, err)
	}
}

func disableIdentity(t *testing.T, store *memory.Store, username string) {
	t.Helper()
	identity, err := store.Identities().FindByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("find %s: %v", username, err)
	}
	inactive := false
	if _, err := store.Identities().Update(context.Background(), identity.ID, auth.IdentityUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("disable %s: %v", username, err)
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) login(username, password string) (string, map[string]string) {
	c.t.Helper()
	resp := c.post("/api/auth/login", map[string]any{
		"username": username,
		"password": password,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected login status: %d", resp.StatusCode)
	}
	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode login response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return payload.Token, map[string]string{"Authorization": "Bearer " + payload.Token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}
