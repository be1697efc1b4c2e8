package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/sync-service/models"
	"taskboard/sync-service/services"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// GetTasks serves the materialized task list of the viewed project.
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	writeJSON(w, http.StatusOK, cs.Manager.Tasks())
}

// CreateTask creates a task in the viewed project (or an explicit one). The
// response carries only the new id; the task itself shows up with the next
// snapshot, not before.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)

	var req struct {
		ProjectID string `json:"projectId"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("invalid request body"))
		return
	}
	if req.ProjectID == "" {
		req.ProjectID = cs.Manager.ProjectID()
	}

	id, err := h.service.CreateTask(r.Context(), cs.User.Role, req.ProjectID, req.Text, cs.User.DisplayName())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	taskID := mux.Vars(r)["taskID"]

	var req struct {
		Status models.TaskStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("invalid request body"))
		return
	}

	if err := h.service.UpdateStatus(r.Context(), cs.User.Role, taskID, req.Status, cs.User.DisplayName()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *TaskHandler) UpdateText(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	taskID := mux.Vars(r)["taskID"]

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("invalid request body"))
		return
	}

	if err := h.service.UpdateText(r.Context(), cs.User.Role, taskID, req.Text, cs.User.DisplayName()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)
	taskID := mux.Vars(r)["taskID"]

	if err := h.service.DeleteTask(r.Context(), cs.User.Role, taskID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
