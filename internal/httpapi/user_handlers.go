package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cyberguard.org/internal/audit"
	"cyberguard.org/internal/auth"
	"cyberguard.org/internal/ids"
)

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireGrant(w, r, "users", "read"); !ok {
		return
	}
	identities, err := a.deps.Identities.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "user lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": identities})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireGrant(w, r, "users", "write")
	if !ok {
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username, email and password are required")
		return
	}
	if !auth.ValidRole(req.Role) {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown role %q", req.Role))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "user creation failed")
		return
	}
	identity := &auth.Identity{
		ID:           ids.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.deps.Identities.Create(r.Context(), identity); err != nil {
		handleUserError(w, r, err)
		return
	}

	a.deps.Recorder.Record(r.Context(), audit.Event{
		IdentityID:  sess.IdentityID,
		EventType:   audit.EventConfiguration,
		Description: fmt.Sprintf("user %s created with role %s", identity.Username, identity.Role),
		SourceIP:    clientIP(r),
		UserAgent:   r.UserAgent(),
		Status:      audit.StatusSuccess,
		Metadata:    map[string]any{"user_id": identity.ID},
	})

	w.Header().Set("Location", "/api/users/"+identity.ID)
	writeJSON(w, http.StatusCreated, identity)
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, id)
	case http.MethodPatch:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.requireGrant(w, r, "users", "read"); !ok {
		return
	}
	identity, err := a.deps.Identities.Find(r.Context(), id)
	if err != nil {
		handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := a.requireGrant(w, r, "users", "write")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role != nil && !auth.ValidRole(*req.Role) {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown role %q", *req.Role))
		return
	}

	upd := auth.IdentityUpdate{
		Email:    req.Email,
		Role:     req.Role,
		IsActive: req.IsActive,
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "user update failed")
			return
		}
		upd.PasswordHash = &hash
	}
	identity, err := a.deps.Identities.Update(r.Context(), id, upd)
	if err != nil {
		handleUserError(w, r, err)
		return
	}

	a.deps.Recorder.Record(r.Context(), audit.Event{
		IdentityID:  sess.IdentityID,
		EventType:   audit.EventConfiguration,
		Description: fmt.Sprintf("user %s updated", identity.Username),
		SourceIP:    clientIP(r),
		UserAgent:   r.UserAgent(),
		Status:      audit.StatusSuccess,
		Metadata:    map[string]any{"user_id": identity.ID},
	})
	writeJSON(w, http.StatusOK, identity)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := a.requireGrant(w, r, "users", "delete")
	if !ok {
		return
	}
	if id == sess.IdentityID {
		writeError(w, r, http.StatusBadRequest, "cannot delete own account")
		return
	}
	if err := a.deps.Identities.Delete(r.Context(), id); err != nil {
		handleUserError(w, r, err)
		return
	}
	a.deps.Recorder.Record(r.Context(), audit.Event{
		IdentityID:  sess.IdentityID,
		EventType:   audit.EventConfiguration,
		Description: "user account deleted",
		SourceIP:    clientIP(r),
		UserAgent:   r.UserAgent(),
		Status:      audit.StatusWarning,
		Metadata:    map[string]any{"user_id": id},
	})
	w.WriteHeader(http.StatusNoContent)
}

func handleUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "username or email already in use")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "user operation failed")
	}
}
