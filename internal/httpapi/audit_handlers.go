package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cyberguard.org/internal/audit"
)

const defaultAuditLimit = 100

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireGrant(w, r, "logs", "read"); !ok {
		return
	}

	f, err := auditFilterFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	events, err := a.deps.AuditStore.List(r.Context(), f)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "audit lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *API) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	sess, ok := a.requireGrant(w, r, "logs", "export")
	if !ok {
		return
	}

	f, err := auditFilterFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	events, err := a.deps.AuditStore.List(r.Context(), f)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "audit lookup failed")
		return
	}

	a.deps.Recorder.Record(r.Context(), audit.Event{
		IdentityID:  sess.IdentityID,
		EventType:   audit.EventSystem,
		Description: fmt.Sprintf("audit log exported (%d events)", len(events)),
		SourceIP:    clientIP(r),
		UserAgent:   r.UserAgent(),
		Status:      audit.StatusSuccess,
	})

	filename := fmt.Sprintf("audit-log-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := audit.WriteCSV(w, events); err != nil {
		// Headers are already out; nothing sensible left to send.
		return
	}
}

func auditFilterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	f := audit.Filter{
		EventType:  q.Get("event_type"),
		IdentityID: q.Get("identity_id"),
		Status:     q.Get("status"),
		Limit:      defaultAuditLimit,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			return audit.Filter{}, fmt.Errorf("limit must be a number between 1 and 1000")
		}
		f.Limit = n
	}
	return f, nil
}
