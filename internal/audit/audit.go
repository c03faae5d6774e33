package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"cyberguard.org/internal/ids"
	"cyberguard.org/internal/obs"
)

// Event types recognised by the dashboard.
const (
	EventAuthentication = "authentication"
	EventSecurity       = "security"
	EventConfiguration  = "configuration"
	EventSystem         = "system"
)

// Event outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusWarning = "warning"
)

// Event is an immutable record of a security-relevant occurrence. Events are
// append-only; nothing in the service mutates or deletes them.
type Event struct {
	ID          string         `json:"id"`
	IdentityID  string         `json:"identity_id,omitempty"`
	EventType   string         `json:"event_type"`
	Description string         `json:"description"`
	SourceIP    string         `json:"source_ip"`
	UserAgent   string         `json:"user_agent,omitempty"`
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	EventType  string
	IdentityID string
	Status     string
	Limit      int
}

// Store appends immutable events and lists them newest first.
type Store interface {
	Append(ctx context.Context, event *Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// Recorder is the sink contract handed to components that emit audit events.
// Record is best-effort: implementations must never fail the operation that
// triggered the write.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Sink adapts a Store into a best-effort Recorder. Store failures are logged
// and swallowed so an unreachable audit backend never turns a legitimate
// operation into a failure.
type Sink struct {
	store Store
	now   func() time.Time
}

// NewSink constructs a Sink over the given store.
func NewSink(store Store) *Sink {
	return &Sink{store: store, now: time.Now}
}

// Record fills in the event identity fields and appends it to the store.
func (s *Sink) Record(ctx context.Context, event Event) {
	if s == nil || s.store == nil {
		return
	}
	if event.ID == "" {
		event.ID = ids.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if err := s.store.Append(ctx, &event); err != nil {
		obs.LogRequest(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": "error",
			"msg":   "audit_write_failed",
			"event": event.EventType,
			"error": err.Error(),
		})
	}
}

// LogEvent writes an audit entry to the shared JSON log. It is the side
// channel used when no database-backed sink is configured.
func LogEvent(ctx context.Context, event Event) error {
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": strings.TrimSpace(event.EventType),
	}
	if event.IdentityID != "" {
		entry["identity_id"] = event.IdentityID
	}
	if event.Description != "" {
		entry["description"] = event.Description
	}
	if event.SourceIP != "" {
		entry["source_ip"] = event.SourceIP
	}
	if event.Status != "" {
		entry["status"] = event.Status
	}
	if len(event.Metadata) > 0 {
		entry["metadata"] = event.Metadata
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
