// Package threat holds the detection records shown on the dashboard and the
// aggregations derived from them.
package threat

import (
	"context"
	"errors"
	"time"
)

const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

const (
	TypeMalware   = "malware"
	TypeIntrusion = "intrusion"
	TypeDDoS      = "ddos"
	TypePhishing  = "phishing"
)

const (
	StatusActive        = "active"
	StatusInvestigating = "investigating"
	StatusResolved      = "resolved"
)

var (
	ErrNotFound     = errors.New("threat: not found")
	ErrInvalidInput = errors.New("threat: invalid input")
)

// Threat is one detection record. Metadata carries free-form attributes such
// as country, bandwidth or coordinates.
type Threat struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Severity    string         `json:"severity"`
	Type        string         `json:"type"`
	SourceIP    string         `json:"source_ip"`
	TargetIP    string         `json:"target_ip,omitempty"`
	Port        int            `json:"port,omitempty"`
	RiskScore   int            `json:"risk_score"`
	Status      string         `json:"status"`
	DetectedAt  time.Time      `json:"detected_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Filter narrows a threat listing. Empty fields match everything.
type Filter struct {
	Severity string
	Type     string
	Status   string
}

// Update applies partial changes to a threat. Nil fields are left untouched.
// SetResolvedAt distinguishes "stamp or clear ResolvedAt" from "leave it".
type Update struct {
	Title         *string
	Description   *string
	Severity      *string
	Type          *string
	Status        *string
	RiskScore     *int
	Metadata      map[string]any
	SetResolvedAt bool
	ResolvedAt    *time.Time
}

// Store describes threat persistence. List returns newest detections first.
type Store interface {
	Create(ctx context.Context, th *Threat) error
	Find(ctx context.Context, id string) (*Threat, error)
	List(ctx context.Context, f Filter) ([]*Threat, error)
	Update(ctx context.Context, id string, upd Update) (*Threat, error)
	Delete(ctx context.Context, id string) error
}

func validSeverity(s string) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

func validType(t string) bool {
	switch t {
	case TypeMalware, TypeIntrusion, TypeDDoS, TypePhishing:
		return true
	}
	return false
}

func validStatus(s string) bool {
	switch s {
	case StatusActive, StatusInvestigating, StatusResolved:
		return true
	}
	return false
}
