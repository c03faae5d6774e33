package threat

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubStore struct {
	threats []*Threat
}

func (s *stubStore) Create(ctx context.Context, th *Threat) error {
	s.threats = append([]*Threat{th}, s.threats...)
	return nil
}

func (s *stubStore) Find(ctx context.Context, id string) (*Threat, error) {
	for _, th := range s.threats {
		if th.ID == id {
			return th, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubStore) List(ctx context.Context, f Filter) ([]*Threat, error) {
	out := make([]*Threat, 0, len(s.threats))
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
		out = append(out, th)
	}
	return out, nil
}

func (s *stubStore) Update(ctx context.Context, id string, upd Update) (*Threat, error) {
	th, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		th.Title = *upd.Title
	}
	if upd.Status != nil {
		th.Status = *upd.Status
	}
	if upd.RiskScore != nil {
		th.RiskScore = *upd.RiskScore
	}
	if upd.SetResolvedAt {
		th.ResolvedAt = upd.ResolvedAt
	}
	return th, nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	for i, th := range s.threats {
		if th.ID == id {
			s.threats = append(s.threats[:i], s.threats[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func validInput() CreateInput {
	return CreateInput{
		Title:       "Malware Detection: Trojan.Win32.Agent",
		Description: "Critical malware detected attempting to access system files",
		Severity:    SeverityCritical,
		Type:        TypeMalware,
		SourceIP:    "192.168.100.45",
		RiskScore:   92,
	}
}

func TestCreateDefaultsAndStamps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &stubStore{}
	svc := NewService(store, WithClock(func() time.Time { return now }))

	th, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if th.ID == "" {
		t.Fatal("no id assigned")
	}
	if th.Status != StatusActive {
		t.Fatalf("status = %q, want %q", th.Status, StatusActive)
	}
	if !th.DetectedAt.Equal(now) {
		t.Fatalf("detectedAt = %v, want %v", th.DetectedAt, now)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(&stubStore{})
	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing title", func(in *CreateInput) { in.Title = "" }},
		{"missing source ip", func(in *CreateInput) { in.SourceIP = "" }},
		{"bad severity", func(in *CreateInput) { in.Severity = "urgent" }},
		{"bad type", func(in *CreateInput) { in.Type = "worm" }},
		{"bad status", func(in *CreateInput) { in.Status = "open" }},
		{"risk score too high", func(in *CreateInput) { in.RiskScore = 101 }},
		{"risk score negative", func(in *CreateInput) { in.RiskScore = -1 }},
		{"port out of range", func(in *CreateInput) { in.Port = 70000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestListRejectsUnknownFilter(t *testing.T) {
	svc := NewService(&stubStore{})
	if _, err := svc.List(context.Background(), Filter{Severity: "urgent"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateStampsResolution(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &stubStore{}
	svc := NewService(store, WithClock(func() time.Time { return now }))

	th, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := svc.Update(context.Background(), th.ID, Update{Status: strp(StatusResolved)})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(now) {
		t.Fatalf("resolvedAt = %v, want %v", resolved.ResolvedAt, now)
	}

	reopened, err := svc.Update(context.Background(), th.ID, Update{Status: strp(StatusActive)})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.ResolvedAt != nil {
		t.Fatalf("resolvedAt = %v after reopening, want nil", reopened.ResolvedAt)
	}
}

func TestStats(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &stubStore{threats: []*Threat{
		{ID: "1", Severity: SeverityCritical, Status: StatusActive},
		{ID: "2", Severity: SeverityHigh, Status: StatusInvestigating},
		{ID: "3", Severity: SeverityMedium, Status: StatusActive},
		{ID: "4", Severity: SeverityCritical, Status: StatusResolved},
	}}
	svc := NewService(store, WithClock(func() time.Time { return now }))

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ThreatCount != 4 || stats.ActiveThreats != 2 || stats.CriticalAlerts != 2 || stats.ResolvedThreats != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.NotificationCount != stats.CriticalAlerts {
		t.Fatalf("notificationCount = %d, want %d", stats.NotificationCount, stats.CriticalAlerts)
	}
}

func TestTimelineBucketsLast24Hours(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	store := &stubStore{threats: []*Threat{
		{ID: "recent", Severity: SeverityCritical, DetectedAt: now.Add(-10 * time.Minute)},
		{ID: "older", Severity: SeverityLow, DetectedAt: now.Add(-5 * time.Hour)},
		{ID: "ancient", Severity: SeverityHigh, DetectedAt: now.Add(-48 * time.Hour)},
	}}
	svc := NewService(store, WithClock(func() time.Time { return now }))

	buckets, err := svc.Timeline(context.Background())
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(buckets) != 24 {
		t.Fatalf("buckets = %d, want 24", len(buckets))
	}

	var total, critical, low, high int
	for _, b := range buckets {
		total += b.Total
		critical += b.Critical
		low += b.Low
		high += b.High
	}
	if total != 2 || critical != 1 || low != 1 {
		t.Fatalf("total = %d, critical = %d, low = %d", total, critical, low)
	}
	if high != 0 {
		t.Fatal("threat outside the window was counted")
	}

	last := buckets[23]
	if len(last.Threats) != 1 || last.Threats[0].ID != "recent" {
		t.Fatalf("last bucket threats = %+v", last.Threats)
	}
}

func TestGeographicSkipsThreatsWithoutCoordinates(t *testing.T) {
	store := &stubStore{threats: []*Threat{
		{ID: "geo", Title: "Intrusion", Metadata: map[string]any{"lat": 55.75, "lng": 37.61, "country": "Russia"}},
		{ID: "nogeo", Title: "Malware", Metadata: map[string]any{"country": "Unknown"}},
		{ID: "nil", Title: "DDoS"},
	}}
	svc := NewService(store)

	points, err := svc.Geographic(context.Background())
	if err != nil {
		t.Fatalf("geographic: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("points = %d, want 1", len(points))
	}
	p := points[0]
	if p.ID != "geo" || p.Lat != 55.75 || p.Lng != 37.61 || p.Country != "Russia" {
		t.Fatalf("unexpected point: %+v", p)
	}
	if p.City != "Unknown" {
		t.Fatalf("city = %q, want Unknown fallback", p.City)
	}
}
