package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/sync-service/models"
	"taskboard/sync-service/services"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// GetUsers lists every directory record, for the assign-members view.
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)

	var req struct {
		Username string      `json:"username"`
		Email    string      `json:"email"`
		Role     models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("invalid request body"))
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}

	id, err := h.service.CreateUser(r.Context(), cs.User.Role, req.Username, req.Email, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	userID := mux.Vars(r)["userID"]

	if err := h.service.DeleteUser(r.Context(), cs.User.Role, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	userID := mux.Vars(r)["userID"]

	var req struct {
		Role models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("invalid request body"))
		return
	}

	if err := h.service.SetRole(r.Context(), cs.User.Role, userID, req.Role); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
