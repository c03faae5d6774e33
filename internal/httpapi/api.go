// Package httpapi is the HTTP surface of the dashboard backend. Every /api
// route except login runs behind bearer-token authentication; writes are
// additionally gated by the role permission table.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"cyberguard.org/internal/audit"
	"cyberguard.org/internal/auth"
	"cyberguard.org/internal/obs"
	"cyberguard.org/internal/settings"
	"cyberguard.org/internal/stream"
	"cyberguard.org/internal/threat"
)

// ReadyProbe checks readiness, typically a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries everything the API serves.
type Deps struct {
	Auth       *auth.Service
	Tokens     *auth.TokenService
	Identities auth.IdentityStore
	Threats    *threat.Service
	Settings   *settings.Service
	AuditStore audit.Store
	Recorder   audit.Recorder
	Stream     *stream.Stream
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	deps       Deps
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, deps Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		deps:       deps,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/api/auth/me", a.handleMe)
	a.mux.HandleFunc("/api/menu", a.handleMenu)

	// threats
	a.mux.HandleFunc("/api/threats", a.handleThreats)
	a.mux.HandleFunc("/api/threats/", a.handleThreatByID)

	// audit trail
	a.mux.HandleFunc("/api/audit-logs", a.handleAuditLogs)
	a.mux.HandleFunc("/api/audit-logs/export", a.handleAuditExport)

	// user administration
	a.mux.HandleFunc("/api/users", a.handleUsers)
	a.mux.HandleFunc("/api/users/", a.handleUserByID)

	// settings
	a.mux.HandleFunc("/api/settings", a.handleSettings)
	a.mux.HandleFunc("/api/settings/", a.handleSettingByKey)

	// dashboard + analytics
	a.mux.HandleFunc("/api/dashboard/stats", a.handleDashboardStats)
	a.mux.HandleFunc("/api/analytics/timeline", a.handleTimeline)
	a.mux.HandleFunc("/api/analytics/geographic", a.handleGeographic)

	// live threat feed
	a.mux.HandleFunc("/api/stream/threats", a.StreamThreats)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- base handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "cyberguard-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func (a *API) clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{
		SourceIP:  clientIP(r),
		UserAgent: r.UserAgent(),
	}
}
