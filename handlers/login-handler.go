package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"taskboard/sync-service/auth"
	"taskboard/sync-service/logging"
	"taskboard/sync-service/models"
	"taskboard/sync-service/realtime"
	"taskboard/sync-service/store"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type LoginHandler struct {
	Provider *auth.Provider
	Resolver *auth.Resolver
	Registry *SessionRegistry
	Store    store.DocumentStore
}

// Login signs the principal in, resolves its directory record and wires up a
// fresh subscription manager for the session. The principal-change callback
// keeps the manager scoped: sign-out or expiry replaces the scope with
// nothing, it never merges.
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, models.NewValidationError("email and password are required"))
		return
	}

	session := auth.NewSession(h.Provider)
	manager := realtime.NewManager(h.Store)
	session.OnPrincipalChange(func(p *auth.Principal) {
		id := ""
		if p != nil {
			id = p.ID
		}
		if err := manager.SetPrincipal(context.Background(), id); err != nil {
			logging.Logger.Errorf("Event ID: SCOPE_ACTIVATION_FAILED, Description: Membership scope activation failed: %v", err)
		}
	})

	principal, token, err := session.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.Resolver.Resolve(r.Context(), principal)
	if err != nil {
		session.SignOut(token)
		writeError(w, err)
		return
	}

	h.Registry.Put(&ClientSession{
		Token:   token,
		Auth:    session,
		User:    user,
		Manager: manager,
	})

	logging.Logger.Infof("Event ID: USER_SIGNED_IN, Description: Principal %s signed in with role %s", principal.ID, user.Role)
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// Logout revokes the token and disposes the session's scopes.
func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	cs.Auth.SignOut(cs.Token)
	h.Registry.Remove(cs.Token)
	w.WriteHeader(http.StatusOK)
}
