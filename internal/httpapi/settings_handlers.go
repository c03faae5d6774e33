package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cyberguard.org/internal/audit"
	"cyberguard.org/internal/settings"
)

type updateSettingRequest struct {
	Value string `json:"value"`
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireGrant(w, r, "settings", "read"); !ok {
		return
	}
	list, err := a.deps.Settings.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "settings lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": list})
}

func (a *API) handleSettingByKey(w http.ResponseWriter, r *http.Request) {
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/settings/"), "/")
	if key == "" || strings.Contains(key, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getSetting(w, r, key)
	case http.MethodPut:
		a.updateSetting(w, r, key)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) getSetting(w http.ResponseWriter, r *http.Request, key string) {
	if _, ok := a.requireGrant(w, r, "settings", "read"); !ok {
		return
	}
	setting, err := a.deps.Settings.Get(r.Context(), key)
	if err != nil {
		handleSettingsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

func (a *API) updateSetting(w http.ResponseWriter, r *http.Request, key string) {
	sess, ok := a.requireGrant(w, r, "settings", "write")
	if !ok {
		return
	}
	var req updateSettingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	previous, setting, err := a.deps.Settings.Set(r.Context(), key, req.Value, sess.IdentityID)
	if err != nil {
		handleSettingsError(w, r, err)
		return
	}

	a.deps.Recorder.Record(r.Context(), audit.Event{
		IdentityID:  sess.IdentityID,
		EventType:   audit.EventConfiguration,
		Description: fmt.Sprintf("setting %s changed", key),
		SourceIP:    clientIP(r),
		UserAgent:   r.UserAgent(),
		Status:      audit.StatusSuccess,
		Metadata:    map[string]any{"key": key, "old_value": previous, "new_value": setting.Value},
	})
	writeJSON(w, http.StatusOK, setting)
}

func handleSettingsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, settings.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, settings.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "setting not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "settings operation failed")
	}
}
