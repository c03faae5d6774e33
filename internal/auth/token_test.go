package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testIdentity() *Identity {
	return &Identity{
		ID:       "01HZXV3E8MQ4YJ5Y0T6W7R8S9A",
		Username: "admin",
		Role:     RoleAdmin,
		IsActive: true,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService([]byte("secret"), WithClock(fixedClock(now)))

	token, expiresAt, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if got, want := expiresAt, now.Add(DefaultTokenTTL); !got.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", got, want)
	}

	sess, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sess.IdentityID != "01HZXV3E8MQ4YJ5Y0T6W7R8S9A" || sess.Username != "admin" || sess.Role != RoleAdmin {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestTokenExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	svc := NewTokenService([]byte("secret"), WithClock(func() time.Time { return clock }))

	token, _, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock = now.Add(DefaultTokenTTL - time.Minute)
	if _, err := svc.Verify(token); err != nil {
		t.Fatalf("verify before expiry: %v", err)
	}

	clock = now.Add(DefaultTokenTTL + time.Minute)
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("verify after expiry = %v, want ErrInvalidToken", err)
	}
}

func TestTokenTamperRejected(t *testing.T) {
	svc := NewTokenService([]byte("secret"))
	token, _, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := svc.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("verify tampered = %v, want ErrInvalidToken", err)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer := NewTokenService([]byte("secret-a"))
	verifier := NewTokenService([]byte("secret-b"))

	token, _, err := issuer.Issue(testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("verify = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	svc := NewTokenService([]byte("secret"))
	if _, err := svc.Verify(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("verify empty = %v, want ErrMissingToken", err)
	}
}

func TestTokenKeepsRoleAtIssueTime(t *testing.T) {
	svc := NewTokenService([]byte("secret"))
	identity := testIdentity()

	token, _, err := svc.Issue(identity)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// A later role change in the store must not affect tokens that are
	// already in circulation.
	identity.Role = RoleAnalyst

	sess, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sess.Role != RoleAdmin {
		t.Fatalf("session role = %q, want %q", sess.Role, RoleAdmin)
	}
}
