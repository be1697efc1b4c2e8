package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/sync-service/models"
	"taskboard/sync-service/store"
)

func pinnedStore(t *testing.T, at time.Time) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	s.Clock = func() time.Time { return at }
	return s
}

func TestCreateTaskDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	memStore := pinnedStore(t, now)
	service := NewTaskService(memStore)
	ctx := context.Background()

	id, err := service.CreateTask(ctx, models.RoleMember, "p1", "  write the report  ", "alice")
	require.NoError(t, err)

	doc, err := memStore.Get(ctx, "tasks", id)
	require.NoError(t, err)

	var task models.Task
	require.NoError(t, doc.Decode(&task))
	assert.Equal(t, "write the report", task.Text)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, "p1", task.ProjectID)
	assert.Equal(t, "alice", task.UpdatedBy)
	// Server-assigned and equal at creation.
	assert.Equal(t, now, task.CreatedAt)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestCreateTaskValidation(t *testing.T) {
	service := NewTaskService(store.NewMemoryStore())
	ctx := context.Background()

	_, err := service.CreateTask(ctx, models.RoleMember, "p1", "   ", "alice")
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	_, err = service.CreateTask(ctx, models.RoleMember, "", "text", "alice")
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestUpdateStatusStampsAudit(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	memStore := pinnedStore(t, created)
	service := NewTaskService(memStore)
	ctx := context.Background()

	id, err := service.CreateTask(ctx, models.RoleMember, "p1", "task", "alice")
	require.NoError(t, err)

	later := created.Add(5 * time.Minute)
	memStore.Clock = func() time.Time { return later }

	require.NoError(t, service.UpdateStatus(ctx, models.RoleMember, id, models.StatusInProgress, "bob"))

	doc, err := memStore.Get(ctx, "tasks", id)
	require.NoError(t, err)
	var task models.Task
	require.NoError(t, doc.Decode(&task))
	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Equal(t, "bob", task.UpdatedBy)
	assert.Equal(t, later, task.UpdatedAt)
	assert.Equal(t, created, task.CreatedAt)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	service := NewTaskService(store.NewMemoryStore())

	err := service.UpdateStatus(context.Background(), models.RoleMember, "t1", "Done", "alice")
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

// Any status is reachable from any status; Completed back to Pending is
// legal.
func TestStatusTransitionsAreOpen(t *testing.T) {
	memStore := store.NewMemoryStore()
	service := NewTaskService(memStore)
	ctx := context.Background()

	id, err := service.CreateTask(ctx, models.RoleMember, "p1", "task", "alice")
	require.NoError(t, err)

	require.NoError(t, service.UpdateStatus(ctx, models.RoleMember, id, models.StatusCompleted, "alice"))
	require.NoError(t, service.UpdateStatus(ctx, models.RoleMember, id, models.StatusPending, "alice"))

	doc, err := memStore.Get(ctx, "tasks", id)
	require.NoError(t, err)
	var task models.Task
	require.NoError(t, doc.Decode(&task))
	assert.Equal(t, models.StatusPending, task.Status)
}

func TestUpdateText(t *testing.T) {
	memStore := store.NewMemoryStore()
	service := NewTaskService(memStore)
	ctx := context.Background()

	id, err := service.CreateTask(ctx, models.RoleMember, "p1", "old", "alice")
	require.NoError(t, err)

	require.NoError(t, service.UpdateText(ctx, models.RoleMember, id, "new text", "bob"))

	doc, err := memStore.Get(ctx, "tasks", id)
	require.NoError(t, err)
	var task models.Task
	require.NoError(t, doc.Decode(&task))
	assert.Equal(t, "new text", task.Text)
	assert.Equal(t, "bob", task.UpdatedBy)

	err = service.UpdateText(ctx, models.RoleMember, id, "  ", "bob")
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestDeleteTaskIsHardDelete(t *testing.T) {
	memStore := store.NewMemoryStore()
	service := NewTaskService(memStore)
	ctx := context.Background()

	id, err := service.CreateTask(ctx, models.RoleMember, "p1", "task", "alice")
	require.NoError(t, err)

	require.NoError(t, service.DeleteTask(ctx, models.RoleMember, id))

	_, err = memStore.Get(ctx, "tasks", id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateMissingTaskIsRemoteError(t *testing.T) {
	service := NewTaskService(store.NewMemoryStore())

	err := service.UpdateStatus(context.Background(), models.RoleMember, "missing", models.StatusCompleted, "alice")
	require.Error(t, err)
	assert.Equal(t, models.KindRemote, models.KindOf(err))
}
