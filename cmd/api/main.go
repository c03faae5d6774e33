package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyberguard.org/internal/audit"
	"cyberguard.org/internal/auth"
	"cyberguard.org/internal/httpapi"
	"cyberguard.org/internal/ids"
	"cyberguard.org/internal/obs"
	"cyberguard.org/internal/settings"
	"cyberguard.org/internal/store/memory"
	"cyberguard.org/internal/store/pg"
	"cyberguard.org/internal/stream"
	"cyberguard.org/internal/threat"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

// backend abstracts the two store implementations so wiring below does not
// care whether we run on Postgres or in memory.
type backend interface {
	Identities() auth.IdentityStore
	Threats() threat.Store
	Audit() audit.Store
	Settings() settings.Store
}

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("CYBERGUARD_AUTH_SECRET")
	if secret == "" {
		log.Fatal("CYBERGUARD_AUTH_SECRET is required")
	}

	addr := os.Getenv("CYBERGUARD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var (
		store backend
		db    *sql.DB
	)
	if dsn := os.Getenv("CYBERGUARD_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		db = pgStore.DB()
	} else {
		log.Println("CYBERGUARD_PG_DSN not set, using in-memory store")
		store = memory.New()
	}

	tokenOpts := []auth.TokenOption{}
	if ttl := os.Getenv("CYBERGUARD_TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			log.Fatalf("parse CYBERGUARD_TOKEN_TTL: %v", err)
		}
		tokenOpts = append(tokenOpts, auth.WithTokenTTL(d))
	}

	tokens := auth.NewTokenService([]byte(secret), tokenOpts...)
	recorder := audit.NewSink(store.Audit())
	authSvc := auth.NewService(store.Identities(), tokens, recorder)
	threats := threat.NewService(store.Threats())
	settingsSvc := settings.NewService(store.Settings())
	threatStream := stream.New()

	if os.Getenv("CYBERGUARD_DEMO") == "1" {
		if err := seedDemoData(context.Background(), store, settingsSvc); err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
		stop := threatStream.StartDemo(10 * time.Second)
		defer stop()
		log.Println("demo mode: seeded accounts admin/admin and analyst/analyst")
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, httpapi.Deps{
		Auth:       authSvc,
		Tokens:     tokens,
		Identities: store.Identities(),
		Threats:    threats,
		Settings:   settingsSvc,
		AuditStore: store.Audit(),
		Recorder:   recorder,
		Stream:     threatStream,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting cyberguard-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

// seedDemoData loads the demo accounts, a handful of open threats and the
// default settings. Safe to call on a non-empty store; duplicates are skipped.
func seedDemoData(ctx context.Context, store backend, settingsSvc *settings.Service) error {
	now := time.Now().UTC()

	accounts := []struct {
		username, email, password, role string
	}{
		{"admin", "admin@cyberguard.local", "admin", auth.RoleAdmin},
		{"analyst", "analyst@cyberguard.local", "analyst", auth.RoleAnalyst},
	}
	for _, acc := range accounts {
		hash, err := auth.HashPassword(acc.password)
		if err != nil {
			return err
		}
		err = store.Identities().Create(ctx, &auth.Identity{
			ID:           ids.New(),
			Username:     acc.username,
			Email:        acc.email,
			PasswordHash: hash,
			Role:         acc.role,
			IsActive:     true,
			CreatedAt:    now,
		})
		if err != nil && !errors.Is(err, auth.ErrAlreadyExists) {
			return err
		}
	}

	threats := []*threat.Threat{
		{
			ID:          ids.New(),
			Title:       "Trojan.Win32.Agent detected",
			Description: "Malicious executable blocked on workstation WS-0412.",
			Severity:    threat.SeverityCritical,
			Type:        threat.TypeMalware,
			SourceIP:    "185.220.101.45",
			TargetIP:    "10.0.4.12",
			RiskScore:   92,
			Status:      threat.StatusActive,
			DetectedAt:  now.Add(-36 * time.Minute),
			Metadata:    map[string]any{"lat": 55.7558, "lng": 37.6173, "country": "Russia", "city": "Moscow"},
		},
		{
			ID:          ids.New(),
			Title:       "Suspicious Login Activity",
			Description: "Repeated failed logins followed by a success from a new location.",
			Severity:    threat.SeverityHigh,
			Type:        threat.TypeIntrusion,
			SourceIP:    "103.41.124.18",
			RiskScore:   78,
			Status:      threat.StatusInvestigating,
			DetectedAt:  now.Add(-2 * time.Hour),
			Metadata:    map[string]any{"lat": 39.9042, "lng": 116.4074, "country": "China", "city": "Beijing"},
		},
		{
			ID:          ids.New(),
			Title:       "Unusual Network Traffic",
			Description: "Outbound traffic spike consistent with amplification activity.",
			Severity:    threat.SeverityMedium,
			Type:        threat.TypeDDoS,
			SourceIP:    "198.51.100.23",
			RiskScore:   54,
			Status:      threat.StatusActive,
			DetectedAt:  now.Add(-5 * time.Hour),
		},
	}
	existing, err := store.Threats().List(ctx, threat.Filter{})
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, th := range threats {
			if err := store.Threats().Create(ctx, th); err != nil {
				return err
			}
		}
	}

	defaults := map[string]string{
		"twoFactorAuth":      "false",
		"autoBlockThreats":   "true",
		"emailNotifications": "true",
		"sessionTimeout":     "30",
	}
	for key, value := range defaults {
		if _, err := settingsSvc.Get(ctx, key); err == nil {
			continue
		}
		if _, _, err := settingsSvc.Set(ctx, key, value, "system"); err != nil {
			return err
		}
	}
	return nil
}
