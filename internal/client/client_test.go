package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"net/http/httptest"

	"cyberguard.org/internal/audit"
	"cyberguard.org/internal/auth"
	"cyberguard.org/internal/httpapi"
	"cyberguard.org/internal/ids"
	"cyberguard.org/internal/settings"
	"cyberguard.org/internal/store/memory"
	"cyberguard.org/internal/stream"
	"cyberguard.org/internal/threat"
)

func newTestServer(t *testing.T) *Client {
	t.Helper()

	store := memory.New()
	for _, acc := range []struct{ username, password, role string }{
		{"admin", "admin", auth.RoleAdmin},
		{"analyst", "analyst", auth.RoleAnalyst},
	} {
		hash, err := auth.HashPassword(acc.password)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		err = store.Identities().Create(context.Background(), &auth.Identity{
			ID:           ids.New(),
			Username:     acc.username,
			Email:        acc.username + "@cyberguard.com",
			PasswordHash: hash,
			Role:         acc.role,
			IsActive:     true,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("seed %s: %v", acc.username, err)
		}
	}

	recorder := audit.NewSink(store.Audit())
	tokens := auth.NewTokenService([]byte("test-secret"))
	api := httpapi.New(httpapi.ReadyProbe{}, "test", httpapi.Deps{
		Auth:       auth.NewService(store.Identities(), tokens, recorder),
		Tokens:     tokens,
		Identities: store.Identities(),
		Threats:    threat.NewService(store.Threats()),
		Settings:   settings.NewService(store.Settings()),
		AuditStore: store.Audit(),
		Recorder:   recorder,
		Stream:     stream.New(),
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(srv.Client()))
}

func TestLoginStoresSession(t *testing.T) {
	c := newTestServer(t)

	identity, err := c.Login(context.Background(), "admin", "admin")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if identity.Username != "admin" || c.Role() != auth.RoleAdmin {
		t.Fatalf("unexpected session: %+v, role %q", identity, c.Role())
	}

	threats, err := c.Threats(context.Background(), threat.Filter{})
	if err != nil {
		t.Fatalf("threats: %v", err)
	}
	if len(threats) != 0 {
		t.Fatalf("threats = %d, want 0", len(threats))
	}
}

func TestLoginFailure(t *testing.T) {
	c := newTestServer(t)

	if _, err := c.Login(context.Background(), "admin", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if c.Identity() != nil {
		t.Fatal("identity stored after failed login")
	}
}

func TestUnauthenticatedCallDropsNothing(t *testing.T) {
	c := newTestServer(t)

	if _, err := c.Threats(context.Background(), threat.Filter{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestForbiddenKeepsSession(t *testing.T) {
	c := newTestServer(t)

	if _, err := c.Login(context.Background(), "analyst", "analyst"); err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err := c.Users(context.Background())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	// A 403 is not a broken session; later allowed calls still work.
	if c.Identity() == nil {
		t.Fatal("session dropped after 403")
	}
	if _, err := c.Threats(context.Background(), threat.Filter{}); err != nil {
		t.Fatalf("threats after 403: %v", err)
	}
}

func TestThreatRoundTrip(t *testing.T) {
	c := newTestServer(t)
	if _, err := c.Login(context.Background(), "admin", "admin"); err != nil {
		t.Fatalf("login: %v", err)
	}

	th, err := c.CreateThreat(context.Background(), threat.CreateInput{
		Title:       "Unusual Network Traffic",
		Description: "High bandwidth usage detected on UDP port 53",
		Severity:    threat.SeverityMedium,
		Type:        threat.TypeDDoS,
		SourceIP:    "10.0.0.100",
		RiskScore:   54,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := c.ResolveThreat(context.Background(), th.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != threat.StatusResolved || resolved.ResolvedAt == nil {
		t.Fatalf("unexpected threat: %+v", resolved)
	}

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ThreatCount != 1 || stats.ResolvedThreats != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMenuAndRoutesFollowRole(t *testing.T) {
	c := newTestServer(t)
	if _, err := c.Login(context.Background(), "analyst", "analyst"); err != nil {
		t.Fatalf("login: %v", err)
	}

	menu := c.Menu()
	if len(menu) != 4 {
		t.Fatalf("analyst menu = %d entries, want 4", len(menu))
	}
	if !c.CanAccessRoute("/dashboard") {
		t.Fatal("analyst cannot open /dashboard")
	}
	if c.CanAccessRoute("/settings") {
		t.Fatal("analyst can open /settings")
	}

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(c.Menu()) != 0 {
		t.Fatal("menu visible after logout")
	}
}
