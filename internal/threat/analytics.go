package threat

import (
	"context"
	"encoding/json"
	"time"
)

// Stats summarizes the threat table for the dashboard header.
type Stats struct {
	ActiveThreats     int `json:"active_threats"`
	CriticalAlerts    int `json:"critical_alerts"`
	ThreatCount       int `json:"threat_count"`
	ResolvedThreats   int `json:"resolved_threats"`
	NotificationCount int `json:"notification_count"`
}

// Stats computes dashboard counters over the full threat table.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	threats, err := s.store.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	stats := &Stats{ThreatCount: len(threats)}
	for _, th := range threats {
		if th.Status == StatusActive {
			stats.ActiveThreats++
		}
		if th.Status == StatusResolved {
			stats.ResolvedThreats++
		}
		if th.Severity == SeverityCritical {
			stats.CriticalAlerts++
		}
	}
	stats.NotificationCount = stats.CriticalAlerts
	return stats, nil
}

// TimelineRef is the compact threat shape embedded in timeline buckets.
type TimelineRef struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Severity  string `json:"severity"`
	Type      string `json:"type"`
	SourceIP  string `json:"source_ip"`
	RiskScore int    `json:"risk_score"`
}

// TimelineBucket is one hour of detections with per-severity counts.
type TimelineBucket struct {
	Time     time.Time     `json:"time"`
	Hour     int           `json:"hour"`
	Total    int           `json:"total"`
	Critical int           `json:"critical"`
	High     int           `json:"high"`
	Medium   int           `json:"medium"`
	Low      int           `json:"low"`
	Threats  []TimelineRef `json:"threats"`
}

// Timeline buckets the last 24 hours of detections into hourly slots, oldest
// first. Empty hours are included so charts stay aligned.
func (s *Service) Timeline(ctx context.Context) ([]TimelineBucket, error) {
	threats, err := s.store.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	buckets := make([]TimelineBucket, 0, 24)
	for i := 23; i >= 0; i-- {
		start := now.Add(-time.Duration(i) * time.Hour)
		end := start.Add(time.Hour)
		bucket := TimelineBucket{
			Time:    start,
			Hour:    start.Hour(),
			Threats: []TimelineRef{},
		}
		for _, th := range threats {
			if th.DetectedAt.Before(start) || !th.DetectedAt.Before(end) {
				continue
			}
			bucket.Total++
			switch th.Severity {
			case SeverityCritical:
				bucket.Critical++
			case SeverityHigh:
				bucket.High++
			case SeverityMedium:
				bucket.Medium++
			case SeverityLow:
				bucket.Low++
			}
			bucket.Threats = append(bucket.Threats, TimelineRef{
				ID:        th.ID,
				Title:     th.Title,
				Severity:  th.Severity,
				Type:      th.Type,
				SourceIP:  th.SourceIP,
				RiskScore: th.RiskScore,
			})
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

// GeoPoint is a threat with map coordinates drawn from its metadata.
type GeoPoint struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Severity   string    `json:"severity"`
	Type       string    `json:"type"`
	SourceIP   string    `json:"source_ip"`
	RiskScore  int       `json:"risk_score"`
	Status     string    `json:"status"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Country    string    `json:"country"`
	City       string    `json:"city"`
	DetectedAt time.Time `json:"detected_at"`
}

// Geographic returns the threats that carry lat/lng metadata, for the map
// view. Threats without coordinates are skipped.
func (s *Service) Geographic(ctx context.Context) ([]GeoPoint, error) {
	threats, err := s.store.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	points := make([]GeoPoint, 0, len(threats))
	for _, th := range threats {
		lat, okLat := metaFloat(th.Metadata, "lat")
		lng, okLng := metaFloat(th.Metadata, "lng")
		if !okLat || !okLng {
			continue
		}
		points = append(points, GeoPoint{
			ID:         th.ID,
			Title:      th.Title,
			Severity:   th.Severity,
			Type:       th.Type,
			SourceIP:   th.SourceIP,
			RiskScore:  th.RiskScore,
			Status:     th.Status,
			Lat:        lat,
			Lng:        lng,
			Country:    metaString(th.Metadata, "country", "Unknown"),
			City:       metaString(th.Metadata, "city", "Unknown"),
			DetectedAt: th.DetectedAt,
		})
	}
	return points, nil
}

func metaFloat(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func metaString(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
