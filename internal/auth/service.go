package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cyberguard.org/internal/audit"
	"cyberguard.org/internal/obs"
)

// ClientInfo carries the request attributes recorded alongside auth events.
type ClientInfo struct {
	SourceIP  string
	UserAgent string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  *Identity
}

// Service implements login, logout and identity lookup on top of an
// identity store and a token service. Every attempt, successful or not,
// produces an audit event.
type Service struct {
	identities IdentityStore
	tokens     *TokenService
	recorder   audit.Recorder
	now        func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source, for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service. recorder may not be nil; pass a no-op recorder
// if auditing is not wanted.
func NewService(identities IdentityStore, tokens *TokenService, recorder audit.Recorder, opts ...ServiceOption) *Service {
	s := &Service{
		identities: identities,
		tokens:     tokens,
		recorder:   recorder,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies the credentials and issues a session token. All failure
// paths return ErrInvalidCredentials so the response does not reveal whether
// the account exists or is disabled.
func (s *Service) Login(ctx context.Context, username, password string, client ClientInfo) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	identity, err := s.identities.FindByUsername(ctx, username)
	if err != nil || identity == nil || !identity.IsActive || !VerifyPassword(identity.PasswordHash, password) {
		s.recorder.Record(ctx, audit.Event{
			EventType:   audit.EventSecurity,
			Description: fmt.Sprintf("failed login attempt for username %q", username),
			SourceIP:    client.SourceIP,
			UserAgent:   client.UserAgent,
			Status:      audit.StatusFailed,
		})
		obs.ObserveLogin("failure")
		if err != nil && !errors.Is(err, ErrNotFound) {
			obs.LogRequest(map[string]any{
				"level": "error",
				"msg":   "login_store_lookup_failed",
				"error": err.Error(),
			})
		}
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.identities.UpdateLastLogin(ctx, identity.ID, now); err != nil {
		obs.LogRequest(map[string]any{
			"level": "error",
			"msg":   "last_login_update_failed",
			"error": err.Error(),
		})
	} else {
		identity.LastLogin = &now
	}

	token, expiresAt, err := s.tokens.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.recorder.Record(ctx, audit.Event{
		IdentityID:  identity.ID,
		EventType:   audit.EventAuthentication,
		Description: fmt.Sprintf("user %s logged in", identity.Username),
		SourceIP:    client.SourceIP,
		UserAgent:   client.UserAgent,
		Status:      audit.StatusSuccess,
	})
	obs.ObserveLogin("success")

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Identity: identity}, nil
}

// Logout records the logout for the audit trail. Tokens are not revocable;
// the session remains valid until its expiry.
func (s *Service) Logout(ctx context.Context, sess *Session, client ClientInfo) {
	s.recorder.Record(ctx, audit.Event{
		IdentityID:  sess.IdentityID,
		EventType:   audit.EventAuthentication,
		Description: fmt.Sprintf("user %s logged out", sess.Username),
		SourceIP:    client.SourceIP,
		UserAgent:   client.UserAgent,
		Status:      audit.StatusSuccess,
	})
}

// Identity returns the stored identity for id.
func (s *Service) Identity(ctx context.Context, id string) (*Identity, error) {
	identity, err := s.identities.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, ErrNotFound
	}
	return identity, nil
}
