package services

import (
	"context"
	"strings"

	"taskboard/sync-service/auth"
	"taskboard/sync-service/logging"
	"taskboard/sync-service/models"
	"taskboard/sync-service/store"
)

const projectsCollection = "projects"

// ProjectService issues project and membership mutations, all admin-gated.
type ProjectService struct {
	store store.DocumentStore
}

func NewProjectService(docStore store.DocumentStore) *ProjectService {
	return &ProjectService{store: docStore}
}

// CreateProject creates a project whose membership list starts as exactly the
// creator.
func (s *ProjectService) CreateProject(ctx context.Context, role models.Role, name, creatorID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.NewValidationError("project name is required")
	}
	if err := auth.Require(role, auth.ActionCreateProject); err != nil {
		return "", err
	}

	fields := store.Fields{
		"name":      name,
		"createdBy": creatorID,
		"users":     []string{creatorID},
		"createdAt": store.ServerTime(),
	}
	id, err := s.store.AddDoc(ctx, projectsCollection, fields)
	if err != nil {
		return "", models.NewRemoteError("failed to create project", err)
	}
	return id, nil
}

func (s *ProjectService) RenameProject(ctx context.Context, role models.Role, projectID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.NewValidationError("project name is required")
	}
	if err := auth.Require(role, auth.ActionRenameProject); err != nil {
		return err
	}

	if err := s.store.Update(ctx, projectsCollection, projectID, store.Fields{"name": name}); err != nil {
		return models.NewRemoteError("failed to rename project", err)
	}
	return nil
}

// DeleteProject removes the project after a best-effort cleanup of its tasks,
// since the store has no native cascade. A task that fails to delete is
// logged and left orphaned rather than blocking the project delete.
func (s *ProjectService) DeleteProject(ctx context.Context, role models.Role, projectID string) error {
	if err := auth.Require(role, auth.ActionDeleteProject); err != nil {
		return err
	}

	tasks, err := s.store.Find(ctx, store.Query{
		Collection: tasksCollection,
		Wheres:     []store.Where{{Field: "projectId", Op: store.OpEqual, Value: projectID}},
	})
	if err != nil {
		return models.NewRemoteError("failed to list project tasks for cleanup", err)
	}
	for _, task := range tasks {
		if err := s.store.Delete(ctx, tasksCollection, task.ID); err != nil {
			logging.Logger.Warnf("Event ID: TASK_CASCADE_DELETE_FAILED, Description: Task %s of project %s left orphaned: %v", task.ID, projectID, err)
		}
	}

	if err := s.store.Delete(ctx, projectsCollection, projectID); err != nil {
		return models.NewRemoteError("failed to delete project", err)
	}
	return nil
}

// AssignMembers replaces the project's membership list wholesale. Concurrent
// assignment edits by two admins resolve last-write-wins; there is no merge.
// The last member may be removed, the list has no defensive floor.
func (s *ProjectService) AssignMembers(ctx context.Context, role models.Role, projectID string, memberIDs []string) error {
	if err := auth.Require(role, auth.ActionAssignMembers); err != nil {
		return err
	}
	if memberIDs == nil {
		memberIDs = []string{}
	}

	if err := s.store.Update(ctx, projectsCollection, projectID, store.Fields{"users": memberIDs}); err != nil {
		return models.NewRemoteError("failed to assign members", err)
	}
	return nil
}
