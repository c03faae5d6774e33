package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cyberguard.org/internal/audit"
	"cyberguard.org/internal/stream"
	"cyberguard.org/internal/threat"
)

type updateThreatRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Severity    *string        `json:"severity"`
	Type        *string        `json:"type"`
	Status      *string        `json:"status"`
	RiskScore   *int           `json:"risk_score"`
	Metadata    map[string]any `json:"metadata"`
}

func (a *API) handleThreats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listThreats(w, r)
	case http.MethodPost:
		a.createThreat(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listThreats(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireGrant(w, r, "threats", "read"); !ok {
		return
	}
	q := r.URL.Query()
	threats, err := a.deps.Threats.List(r.Context(), threat.Filter{
		Severity: q.Get("severity"),
		Type:     q.Get("type"),
		Status:   q.Get("status"),
	})
	if err != nil {
		handleThreatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threats": threats})
}

func (a *API) createThreat(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireGrant(w, r, "threats", "write")
	if !ok {
		return
	}
	var req threat.CreateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	th, err := a.deps.Threats.Create(r.Context(), req)
	if err != nil {
		handleThreatError(w, r, err)
		return
	}

	a.deps.Recorder.Record(r.Context(), audit.Event{
		IdentityID:  sess.IdentityID,
		EventType:   audit.EventSecurity,
		Description: fmt.Sprintf("threat %q reported", th.Title),
		SourceIP:    clientIP(r),
		UserAgent:   r.UserAgent(),
		Status:      audit.StatusWarning,
		Metadata:    map[string]any{"threat_id": th.ID, "severity": th.Severity},
	})
	if a.deps.Stream != nil {
		a.deps.Stream.Publish(stream.FromThreat(th))
	}

	w.Header().Set("Location", "/api/threats/"+th.ID)
	writeJSON(w, http.StatusCreated, th)
}

func (a *API) handleThreatByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/threats/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getThreat(w, r, id)
	case http.MethodPatch:
		a.updateThreat(w, r, id)
	case http.MethodDelete:
		a.deleteThreat(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) getThreat(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.requireGrant(w, r, "threats", "read"); !ok {
		return
	}
	th, err := a.deps.Threats.Get(r.Context(), id)
	if err != nil {
		handleThreatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, th)
}

func (a *API) updateThreat(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := a.requireGrant(w, r, "threats", "write")
	if !ok {
		return
	}
	var req updateThreatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	th, err := a.deps.Threats.Update(r.Context(), id, threat.Update{
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		Type:        req.Type,
		Status:      req.Status,
		RiskScore:   req.RiskScore,
		Metadata:    req.Metadata,
	})
	if err != nil {
		handleThreatError(w, r, err)
		return
	}

	if req.Status != nil && *req.Status == threat.StatusResolved {
		a.deps.Recorder.Record(r.Context(), audit.Event{
			IdentityID:  sess.IdentityID,
			EventType:   audit.EventSecurity,
			Description: fmt.Sprintf("threat %q resolved", th.Title),
			SourceIP:    clientIP(r),
			UserAgent:   r.UserAgent(),
			Status:      audit.StatusSuccess,
			Metadata:    map[string]any{"threat_id": th.ID},
		})
	}
	writeJSON(w, http.StatusOK, th)
}

func (a *API) deleteThreat(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := a.requireGrant(w, r, "threats", "delete")
	if !ok {
		return
	}
	if err := a.deps.Threats.Delete(r.Context(), id); err != nil {
		handleThreatError(w, r, err)
		return
	}
	a.deps.Recorder.Record(r.Context(), audit.Event{
		IdentityID:  sess.IdentityID,
		EventType:   audit.EventSecurity,
		Description: "threat record deleted",
		SourceIP:    clientIP(r),
		UserAgent:   r.UserAgent(),
		Status:      audit.StatusSuccess,
		Metadata:    map[string]any{"threat_id": id},
	})
	w.WriteHeader(http.StatusNoContent)
}

func handleThreatError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, threat.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, threat.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "threat not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "threat operation failed")
	}
}
