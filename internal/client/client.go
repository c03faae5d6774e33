// Package client is the Go SDK for the dashboard API. It keeps the session
// token from Login and attaches it to every later call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cyberguard.org/internal/auth"
	"cyberguard.org/internal/rbac"
	"cyberguard.org/internal/threat"
)

var (
	// ErrUnauthorized means the session is missing, expired or invalid. The
	// client drops its stored session when it sees this.
	ErrUnauthorized = errors.New("client: unauthorized")
	// ErrForbidden means the session is valid but the role lacks the grant.
	ErrForbidden = errors.New("client: forbidden")
	ErrNotFound  = errors.New("client: not found")
)

// Client talks to one dashboard API server.
type Client struct {
	baseURL  string
	http     *http.Client
	token    string
	identity *auth.Identity
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identity returns the identity captured at login, nil before login.
func (c *Client) Identity() *auth.Identity { return c.identity }

// Role returns the logged-in role, empty before login.
func (c *Client) Role() string {
	if c.identity == nil {
		return ""
	}
	return c.identity.Role
}

type loginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Identity  *auth.Identity `json:"identity"`
}

// Login authenticates and stores the session for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*auth.Identity, error) {
	var resp loginResponse
	err := c.call(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	c.identity = resp.Identity
	return resp.Identity, nil
}

// Logout records the logout server side and drops the local session.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, struct{}{}, nil)
	c.token = ""
	c.identity = nil
	return err
}

// Menu returns the navigation entries visible to the logged-in role. The
// filtering is local; it mirrors what the server enforces per request.
func (c *Client) Menu() []rbac.MenuItem {
	return rbac.FilterMenuItems(c.Role(), rbac.DefaultMenu)
}

// CanAccessRoute reports whether the logged-in role may open a UI route.
func (c *Client) CanAccessRoute(route string) bool {
	return rbac.CanAccessRoute(c.Role(), route)
}

// Threats lists threats matching the filter.
func (c *Client) Threats(ctx context.Context, f threat.Filter) ([]*threat.Threat, error) {
	params := url.Values{}
	if f.Severity != "" {
		params.Set("severity", f.Severity)
	}
	if f.Type != "" {
		params.Set("type", f.Type)
	}
	if f.Status != "" {
		params.Set("status", f.Status)
	}
	var resp struct {
		Threats []*threat.Threat `json:"threats"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/threats", params, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Threats, nil
}

// CreateThreat reports a new detection.
func (c *Client) CreateThreat(ctx context.Context, in threat.CreateInput) (*threat.Threat, error) {
	var th threat.Threat
	if err := c.call(ctx, http.MethodPost, "/api/threats", nil, in, &th); err != nil {
		return nil, err
	}
	return &th, nil
}

// ResolveThreat marks a threat resolved.
func (c *Client) ResolveThreat(ctx context.Context, id string) (*threat.Threat, error) {
	var th threat.Threat
	body := map[string]string{"status": threat.StatusResolved}
	if err := c.call(ctx, http.MethodPatch, "/api/threats/"+id, nil, body, &th); err != nil {
		return nil, err
	}
	return &th, nil
}

// Users lists all accounts. Requires the users:read grant.
func (c *Client) Users(ctx context.Context) ([]*auth.Identity, error) {
	var resp struct {
		Users []*auth.Identity `json:"users"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/users", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Stats fetches the dashboard counters.
func (c *Client) Stats(ctx context.Context) (*threat.Stats, error) {
	var stats threat.Stats
	if err := c.call(ctx, http.MethodGet, "/api/dashboard/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) call(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusUnauthorized:
		// The session is dead; keeping it would only repeat the failure.
		c.token = ""
		c.identity = nil
		return fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(resp.Body))
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, errorMessage(resp.Body))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, errorMessage(resp.Body))
	default:
		return fmt.Errorf("client: %s %s failed with status %d: %s", method, path, resp.StatusCode, errorMessage(resp.Body))
	}
}

func errorMessage(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil || payload.Error == "" {
		return "no error detail"
	}
	return payload.Error
}
