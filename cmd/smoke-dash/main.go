package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"cyberguard.org/internal/client"
	"cyberguard.org/internal/threat"
)

func main() {
	baseURL := os.Getenv("CYBERGUARD_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin := client.New(baseURL)
	if _, err := admin.Login(ctx, "admin", "admin"); err != nil {
		log.Fatalf("admin login: %v", err)
	}

	before, err := admin.Stats(ctx)
	if err != nil {
		log.Fatalf("stats: %v", err)
	}

	title := fmt.Sprintf("Smoke test threat %d", rand.Int())
	created, err := admin.CreateThreat(ctx, threat.CreateInput{
		Title:       title,
		Description: "Synthetic event emitted by the smoke test.",
		Severity:    threat.SeverityLow,
		Type:        threat.TypeIntrusion,
		SourceIP:    "192.0.2.77",
		RiskScore:   5,
	})
	if err != nil {
		log.Fatalf("create threat: %v", err)
	}

	after, err := admin.Stats(ctx)
	if err != nil {
		log.Fatalf("stats after create: %v", err)
	}
	if after.ThreatCount != before.ThreatCount+1 {
		log.Fatalf("threat count did not grow: before=%d after=%d", before.ThreatCount, after.ThreatCount)
	}

	resolved, err := admin.ResolveThreat(ctx, created.ID)
	if err != nil {
		log.Fatalf("resolve threat: %v", err)
	}
	if resolved.Status != threat.StatusResolved || resolved.ResolvedAt == nil {
		log.Fatalf("threat not resolved: status=%s", resolved.Status)
	}

	analyst := client.New(baseURL)
	if _, err := analyst.Login(ctx, "analyst", "analyst"); err != nil {
		log.Fatalf("analyst login: %v", err)
	}
	if _, err := analyst.Users(ctx); !errors.Is(err, client.ErrForbidden) {
		log.Fatalf("analyst listing users: want forbidden, got %v", err)
	}

	fmt.Printf("✅ dashboard smoke test passed: threat=%s\n", created.ID)
}
