package httpapi

import "net/http"

func (a *API) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireGrant(w, r, "dashboard", "read"); !ok {
		return
	}
	stats, err := a.deps.Threats.Stats(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "stats computation failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireGrant(w, r, "analytics", "read"); !ok {
		return
	}
	buckets, err := a.deps.Threats.Timeline(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "timeline computation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeline": buckets})
}

func (a *API) handleGeographic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireGrant(w, r, "analytics", "read"); !ok {
		return
	}
	points, err := a.deps.Threats.Geographic(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "geographic computation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}
