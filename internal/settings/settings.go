// Package settings stores the key/value configuration admins edit from the
// dashboard.
package settings

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("settings: not found")
	ErrInvalidInput = errors.New("settings: invalid input")
)

// Setting is one named configuration value. UpdatedBy records the identity
// that last changed it.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store describes settings persistence. Keys are unique; Upsert inserts or
// replaces the value for a key.
type Store interface {
	Get(ctx context.Context, key string) (*Setting, error)
	List(ctx context.Context) ([]*Setting, error)
	Upsert(ctx context.Context, s *Setting) error
}

// Service validates settings writes and stamps update metadata.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service around a store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns one setting by key.
func (s *Service) Get(ctx context.Context, key string) (*Setting, error) {
	if key == "" {
		return nil, ErrInvalidInput
	}
	return s.store.Get(ctx, key)
}

// List returns all settings.
func (s *Service) List(ctx context.Context) ([]*Setting, error) {
	return s.store.List(ctx)
}

// Set writes a setting value, recording who changed it and when. It returns
// the previous value, empty if the key is new.
func (s *Service) Set(ctx context.Context, key, value, updatedBy string) (previous string, _ *Setting, _ error) {
	if key == "" {
		return "", nil, ErrInvalidInput
	}
	current, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		previous = current.Value
	case errors.Is(err, ErrNotFound):
	default:
		return "", nil, err
	}

	setting := &Setting{
		Key:       key,
		Value:     value,
		UpdatedBy: updatedBy,
		UpdatedAt: s.now().UTC(),
	}
	if current != nil {
		setting.Description = current.Description
	}
	if err := s.store.Upsert(ctx, setting); err != nil {
		return "", nil, err
	}
	return previous, setting, nil
}
