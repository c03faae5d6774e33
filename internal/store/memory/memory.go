// Package memory provides an in-process store used for development and
// tests. It implements the same store interfaces as the Postgres backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cyberguard.org/internal/audit"
	"cyberguard.org/internal/auth"
	"cyberguard.org/internal/settings"
	"cyberguard.org/internal/threat"
)

// Store holds all domain data behind a single mutex. Access the per-domain
// interfaces through the accessor methods.
type Store struct {
	mu         sync.RWMutex
	identities map[string]*auth.Identity
	threats    map[string]*threat.Threat
	events     []audit.Event
	settings   map[string]*settings.Setting
}

// New returns an empty store.
func New() *Store {
	return &Store{
		identities: map[string]*auth.Identity{},
		threats:    map[string]*threat.Threat{},
		settings:   map[string]*settings.Setting{},
	}
}

// Identities returns the identity store view.
func (s *Store) Identities() auth.IdentityStore { return (*identityStore)(s) }

// Threats returns the threat store view.
func (s *Store) Threats() threat.Store { return (*threatStore)(s) }

// Audit returns the audit store view.
func (s *Store) Audit() audit.Store { return (*auditStore)(s) }

// Settings returns the settings store view.
func (s *Store) Settings() settings.Store { return (*settingsStore)(s) }

type identityStore Store

var _ auth.IdentityStore = (*identityStore)(nil)

func (s *identityStore) Create(ctx context.Context, identity *auth.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.identities {
		if existing.Username == identity.Username || existing.Email == identity.Email {
			return auth.ErrAlreadyExists
		}
	}
	cp := *identity
	s.identities[identity.ID] = &cp
	return nil
}

func (s *identityStore) Find(ctx context.Context, id string) (*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *identity
	return &cp, nil
}

func (s *identityStore) FindByUsername(ctx context.Context, username string) (*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, identity := range s.identities {
		if identity.Username == username {
			cp := *identity
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *identityStore) List(ctx context.Context) ([]*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*auth.Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		cp := *identity
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *identityStore) Update(ctx context.Context, id string, upd auth.IdentityUpdate) (*auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Email != nil {
		for otherID, other := range s.identities {
			if otherID != id && other.Email == *upd.Email {
				return nil, auth.ErrAlreadyExists
			}
		}
		identity.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		identity.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		identity.Role = *upd.Role
	}
	if upd.IsActive != nil {
		identity.IsActive = *upd.IsActive
	}
	cp := *identity
	return &cp, nil
}

func (s *identityStore) UpdateLastLogin(ctx context.Context, id string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return auth.ErrNotFound
	}
	t := when
	identity.LastLogin = &t
	return nil
}

func (s *identityStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.identities, id)
	return nil
}

type threatStore Store

var _ threat.Store = (*threatStore)(nil)

func (s *threatStore) Create(ctx context.Context, th *threat.Threat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *th
	s.threats[th.ID] = &cp
	return nil
}

func (s *threatStore) Find(ctx context.Context, id string) (*threat.Threat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.threats[id]
	if !ok {
		return nil, threat.ErrNotFound
	}
	cp := *th
	return &cp, nil
}

func (s *threatStore) List(ctx context.Context, f threat.Filter) ([]*threat.Threat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*threat.Threat, 0, len(s.threats))
	for _, th := range s.threats {
		if f.Severity != "" && th.Severity != f.Severity {
			continue
		}
		if f.Type != "" && th.Type != f.Type {
			continue
		}
		if f.Status != "" && th.Status != f.Status {
			continue
		}
		cp := *th
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	return out, nil
}

func (s *threatStore) Update(ctx context.Context, id string, upd threat.Update) (*threat.Threat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.threats[id]
	if !ok {
		return nil, threat.ErrNotFound
	}
	if upd.Title != nil {
		th.Title = *upd.Title
	}
	if upd.Description != nil {
		th.Description = *upd.Description
	}
	if upd.Severity != nil {
		th.Severity = *upd.Severity
	}
	if upd.Type != nil {
		th.Type = *upd.Type
	}
	if upd.Status != nil {
		th.Status = *upd.Status
	}
	if upd.RiskScore != nil {
		th.RiskScore = *upd.RiskScore
	}
	if upd.Metadata != nil {
		th.Metadata = upd.Metadata
	}
	if upd.SetResolvedAt {
		th.ResolvedAt = upd.ResolvedAt
	}
	cp := *th
	return &cp, nil
}

func (s *threatStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threats[id]; !ok {
		return threat.ErrNotFound
	}
	delete(s.threats, id)
	return nil
}

type auditStore Store

var _ audit.Store = (*auditStore)(nil)

func (s *auditStore) Append(ctx context.Context, ev *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

func (s *auditStore) List(ctx context.Context, f audit.Filter) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, 0, len(s.events))
	// Stored oldest first; walk backwards for newest-first output.
	for i := len(s.events) - 1; i >= 0; i-- {
		ev := s.events[i]
		if f.EventType != "" && ev.EventType != f.EventType {
			continue
		}
		if f.IdentityID != "" && ev.IdentityID != f.IdentityID {
			continue
		}
		if f.Status != "" && ev.Status != f.Status {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

type settingsStore Store

var _ settings.Store = (*settingsStore)(nil)

func (s *settingsStore) Get(ctx context.Context, key string) (*settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.settings[key]
	if !ok {
		return nil, settings.ErrNotFound
	}
	cp := *setting
	return &cp, nil
}

func (s *settingsStore) List(ctx context.Context) ([]*settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*settings.Setting, 0, len(s.settings))
	for _, setting := range s.settings {
		cp := *setting
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *settingsStore) Upsert(ctx context.Context, setting *settings.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *setting
	s.settings[setting.Key] = &cp
	return nil
}
