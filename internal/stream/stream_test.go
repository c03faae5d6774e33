package stream

import (
	"context"
	"testing"
	"time"

	"cyberguard.org/internal/threat"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := s.Subscribe(ctx)
	b := s.Subscribe(ctx)

	evt := Event{ID: "t1", Title: "Suspicious Login Activity", Severity: threat.SeverityHigh}
	s.Publish(evt)

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.ID != "t1" {
				t.Fatalf("subscriber %s got %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s received nothing", name)
		}
	}
}

func TestSubscribeClosesOnContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received event instead of close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after unsubscribe must not panic.
	s.Publish(Event{ID: "t2"})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Subscribe(ctx) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(Event{ID: "flood"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestRandomDemoEventIsValid(t *testing.T) {
	s := New()
	evt := s.RandomDemoEvent()
	if evt.Title == "" || evt.SourceIP == "" {
		t.Fatalf("incomplete event: %+v", evt)
	}
	if evt.Status != threat.StatusActive {
		t.Fatalf("status = %q, want %q", evt.Status, threat.StatusActive)
	}
	if evt.RiskScore < 0 || evt.RiskScore > 100 {
		t.Fatalf("risk score %d out of range", evt.RiskScore)
	}
}

func TestFromThreat(t *testing.T) {
	now := time.Now().UTC()
	th := &threat.Threat{
		ID:         "t3",
		Title:      "Unusual Network Traffic",
		Severity:   threat.SeverityMedium,
		Type:       threat.TypeDDoS,
		SourceIP:   "10.0.0.100",
		RiskScore:  54,
		Status:     threat.StatusActive,
		DetectedAt: now,
	}
	evt := FromThreat(th)
	if evt.ID != th.ID || evt.Severity != th.Severity || !evt.DetectedAt.Equal(now) {
		t.Fatalf("unexpected event: %+v", evt)
	}
}
