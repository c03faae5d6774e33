package threat

import (
	"context"
	"fmt"
	"time"

	"cyberguard.org/internal/ids"
)

// Service validates and persists threats. All writes go through it so the
// enum and risk-score constraints hold no matter which store backs it.
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

// CreateInput is the payload for a new threat. Status defaults to active.
type CreateInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Severity    string         `json:"severity"`
	Type        string         `json:"type"`
	SourceIP    string         `json:"source_ip"`
	TargetIP    string         `json:"target_ip"`
	Port        int            `json:"port"`
	RiskScore   int            `json:"risk_score"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata"`
}

// Create validates the input and stores a new threat.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Threat, error) {
	if in.Title == "" || in.Description == "" || in.SourceIP == "" {
		return nil, fmt.Errorf("%w: title, description and source_ip are required", ErrInvalidInput)
	}
	if !validSeverity(in.Severity) {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, in.Severity)
	}
	if !validType(in.Type) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, in.Type)
	}
	if in.Status == "" {
		in.Status = StatusActive
	}
	if !validStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if in.RiskScore < 0 || in.RiskScore > 100 {
		return nil, fmt.Errorf("%w: risk_score must be between 0 and 100", ErrInvalidInput)
	}
	if in.Port < 0 || in.Port > 65535 {
		return nil, fmt.Errorf("%w: port out of range", ErrInvalidInput)
	}

	th := &Threat{
		ID:          ids.New(),
		Title:       in.Title,
		Description: in.Description,
		Severity:    in.Severity,
		Type:        in.Type,
		SourceIP:    in.SourceIP,
		TargetIP:    in.TargetIP,
		Port:        in.Port,
		RiskScore:   in.RiskScore,
		Status:      in.Status,
		DetectedAt:  s.now().UTC(),
		Metadata:    in.Metadata,
	}
	if err := s.store.Create(ctx, th); err != nil {
		return nil, err
	}
	return th, nil
}

// Get returns one threat by id.
func (s *Service) Get(ctx context.Context, id string) (*Threat, error) {
	return s.store.Find(ctx, id)
}

// List returns threats matching the filter, newest first. Filter values are
// validated so a typo returns an error instead of an empty list.
func (s *Service) List(ctx context.Context, f Filter) ([]*Threat, error) {
	if f.Severity != "" && !validSeverity(f.Severity) {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, f.Severity)
	}
	if f.Type != "" && !validType(f.Type) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, f.Type)
	}
	if f.Status != "" && !validStatus(f.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	return s.store.List(ctx, f)
}

// Update applies partial changes. Moving the status to resolved stamps
// ResolvedAt; moving it away clears it.
func (s *Service) Update(ctx context.Context, id string, upd Update) (*Threat, error) {
	if upd.Severity != nil && !validSeverity(*upd.Severity) {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, *upd.Severity)
	}
	if upd.Type != nil && !validType(*upd.Type) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, *upd.Type)
	}
	if upd.Status != nil && !validStatus(*upd.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *upd.Status)
	}
	if upd.RiskScore != nil && (*upd.RiskScore < 0 || *upd.RiskScore > 100) {
		return nil, fmt.Errorf("%w: risk_score must be between 0 and 100", ErrInvalidInput)
	}

	if upd.Status != nil {
		upd.SetResolvedAt = true
		if *upd.Status == StatusResolved {
			now := s.now().UTC()
			upd.ResolvedAt = &now
		} else {
			upd.ResolvedAt = nil
		}
	}
	return s.store.Update(ctx, id, upd)
}

// Delete removes a threat permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
