// Package stream fans live threat detections out to dashboard clients over
// server-sent events.
package stream

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"cyberguard.org/internal/threat"
)

// Event is one live detection pushed to subscribers.
type Event struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Severity   string    `json:"severity"`
	Type       string    `json:"type"`
	SourceIP   string    `json:"source_ip"`
	RiskScore  int       `json:"risk_score"`
	Status     string    `json:"status"`
	DetectedAt time.Time `json:"detected_at"`
}

// FromThreat converts a stored threat into its stream representation.
func FromThreat(th *threat.Threat) Event {
	return Event{
		ID:         th.ID,
		Title:      th.Title,
		Severity:   th.Severity,
		Type:       th.Type,
		SourceIP:   th.SourceIP,
		RiskScore:  th.RiskScore,
		Status:     th.Status,
		DetectedAt: th.DetectedAt,
	}
}

// Stream fan-outs threat events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
	rnd  *rand.Rand
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{
		subs: make(map[int]chan Event),
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

var demoThreats = []struct {
	title    string
	severity string
	typ      string
	score    int
}{
	{"Malware Detection: Trojan.Win32.Agent", threat.SeverityCritical, threat.TypeMalware, 92},
	{"Suspicious Login Activity", threat.SeverityHigh, threat.TypeIntrusion, 78},
	{"Unusual Network Traffic", threat.SeverityMedium, threat.TypeDDoS, 54},
	{"Phishing Campaign Detected", threat.SeverityHigh, threat.TypePhishing, 71},
	{"Port Scan from External Host", threat.SeverityLow, threat.TypeIntrusion, 33},
}

// RandomDemoEvent creates an artificial detection for demo mode.
func (s *Stream) RandomDemoEvent() Event {
	s.mu.Lock()
	tpl := demoThreats[s.rnd.Intn(len(demoThreats))]
	ip := randomIP(s.rnd)
	s.mu.Unlock()

	return Event{
		Title:      tpl.title,
		Severity:   tpl.severity,
		Type:       tpl.typ,
		SourceIP:   ip,
		RiskScore:  tpl.score,
		Status:     threat.StatusActive,
		DetectedAt: time.Now().UTC(),
	}
}

func randomIP(rnd *rand.Rand) string {
	return fmt.Sprintf("203.%d.%d.%d", rnd.Intn(256), rnd.Intn(256), 1+rnd.Intn(254))
}

// StartDemo emits random events at the provided interval until the returned
// stop function is called.
func (s *Stream) StartDemo(interval time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Publish(s.RandomDemoEvent())
			}
		}
	}()
	return cancel
}
