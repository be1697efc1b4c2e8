package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/sync-service/models"
	"taskboard/sync-service/services"
)

type ProjectHandler struct {
	service *services.ProjectService
}

func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// GetProjects serves the session's materialized membership list. It reads
// whatever the subscription manager last delivered; it never queries the
// store directly.
func (h *ProjectHandler) GetProjects(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	writeJSON(w, http.StatusOK, cs.Manager.Projects())
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("invalid request body"))
		return
	}

	id, err := h.service.CreateProject(r.Context(), cs.User.Role, req.Name, cs.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *ProjectHandler) RenameProject(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	projectID := mux.Vars(r)["projectID"]

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("invalid request body"))
		return
	}

	if err := h.service.RenameProject(r.Context(), cs.User.Role, projectID, req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	projectID := mux.Vars(r)["projectID"]

	if err := h.service.DeleteProject(r.Context(), cs.User.Role, projectID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// AssignMembers replaces the membership list with exactly the posted set.
func (h *ProjectHandler) AssignMembers(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	projectID := mux.Vars(r)["projectID"]

	var req struct {
		Users []string `json:"users"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("invalid request body"))
		return
	}

	if err := h.service.AssignMembers(r.Context(), cs.User.Role, projectID, req.Users); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ViewProject re-scopes the session's task subscription to this project.
func (h *ProjectHandler) ViewProject(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	projectID := mux.Vars(r)["projectID"]

	if err := cs.Manager.SetProject(r.Context(), projectID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// CloseProjectView deactivates the task scope, as when the view navigates
// away from a project.
func (h *ProjectHandler) CloseProjectView(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	if err := cs.Manager.SetProject(r.Context(), ""); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
