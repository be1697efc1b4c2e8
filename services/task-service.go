package services

import (
	"context"
	"strings"

	"taskboard/sync-service/auth"
	"taskboard/sync-service/models"
	"taskboard/sync-service/store"
)

const tasksCollection = "tasks"

// TaskService issues task mutations against the document store. Effects are
// observed only through the subscription manager's next snapshot; nothing is
// applied locally before the remote write is confirmed.
type TaskService struct {
	store store.DocumentStore
}

func NewTaskService(docStore store.DocumentStore) *TaskService {
	return &TaskService{store: docStore}
}

// CreateTask creates a pending task in the given project. Both timestamps are
// server-assigned and equal at creation, which keeps snapshot ordering
// authoritative.
func (s *TaskService) CreateTask(ctx context.Context, role models.Role, projectID, text, authorName string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewValidationError("task text is required")
	}
	if projectID == "" {
		return "", models.NewValidationError("project id is required")
	}
	if err := auth.Require(role, auth.ActionCreateTask); err != nil {
		return "", err
	}

	fields := store.Fields{
		"projectId": projectID,
		"text":      text,
		"status":    string(models.StatusPending),
		"updatedBy": authorName,
		"createdAt": store.ServerTime(),
		"updatedAt": store.ServerTime(),
	}
	id, err := s.store.AddDoc(ctx, tasksCollection, fields)
	if err != nil {
		return "", models.NewRemoteError("failed to create task", err)
	}
	return id, nil
}

// UpdateStatus sets the task status. Any status is reachable from any status;
// there is deliberately no transition workflow.
func (s *TaskService) UpdateStatus(ctx context.Context, role models.Role, taskID string, status models.TaskStatus, authorName string) error {
	if !models.ValidStatus(status) {
		return models.NewValidationError("unknown task status")
	}
	if err := auth.Require(role, auth.ActionUpdateTask); err != nil {
		return err
	}

	fields := store.Fields{
		"status":    string(status),
		"updatedBy": authorName,
		"updatedAt": store.ServerTime(),
	}
	if err := s.store.Update(ctx, tasksCollection, taskID, fields); err != nil {
		return models.NewRemoteError("failed to update task status", err)
	}
	return nil
}

// UpdateText rewrites the task text with the same audit stamping as
// UpdateStatus.
func (s *TaskService) UpdateText(ctx context.Context, role models.Role, taskID, text, authorName string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.NewValidationError("task text is required")
	}
	if err := auth.Require(role, auth.ActionUpdateTask); err != nil {
		return err
	}

	fields := store.Fields{
		"text":      text,
		"updatedBy": authorName,
		"updatedAt": store.ServerTime(),
	}
	if err := s.store.Update(ctx, tasksCollection, taskID, fields); err != nil {
		return models.NewRemoteError("failed to update task text", err)
	}
	return nil
}

// DeleteTask removes the task document. Hard delete, no tombstone.
func (s *TaskService) DeleteTask(ctx context.Context, role models.Role, taskID string) error {
	if err := auth.Require(role, auth.ActionDeleteTask); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, tasksCollection, taskID); err != nil {
		return models.NewRemoteError("failed to delete task", err)
	}
	return nil
}
