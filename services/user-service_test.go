package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/sync-service/auth"
	"taskboard/sync-service/models"
	"taskboard/sync-service/store"
)

func newUserService(t *testing.T) (*UserService, *auth.Provider, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	provider := auth.NewProvider(memStore, auth.NewJWTService("test-secret"))
	return NewUserService(memStore, provider), provider, memStore
}

func TestCreateUserProvisionsCredentialAndRecord(t *testing.T) {
	service, provider, memStore := newUserService(t)
	ctx := context.Background()

	id, err := service.CreateUser(ctx, models.RoleAdmin, "alice", "alice@example.com", models.RoleMember)
	require.NoError(t, err)

	doc, err := memStore.Get(ctx, "users", id)
	require.NoError(t, err)
	var user models.User
	require.NoError(t, doc.Decode(&user))
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.RoleMember, user.Role)

	// The new user can sign in with the bootstrap password.
	principal, _, err := provider.SignIn(ctx, "alice@example.com", auth.BootstrapPassword)
	require.NoError(t, err)
	assert.Equal(t, id, principal.ID)
}

func TestCreateUserDeniedForMember(t *testing.T) {
	service, _, memStore := newUserService(t)
	ctx := context.Background()

	_, err := service.CreateUser(ctx, models.RoleMember, "bob", "bob@example.com", models.RoleMember)
	require.Error(t, err)
	assert.Equal(t, models.KindAuthz, models.KindOf(err))

	// Denial happens before provisioning: no credential either.
	docs, err := memStore.Find(ctx, store.Query{Collection: "credentials"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCreateUserValidation(t *testing.T) {
	service, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := service.CreateUser(ctx, models.RoleAdmin, "", "alice@example.com", models.RoleMember)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	_, err = service.CreateUser(ctx, models.RoleAdmin, "alice", "alice@example.com", models.Role("owner"))
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

// failingRecordStore lets the credential write through but fails the
// directory record write, the half-failure mode of two-phase provisioning.
type failingRecordStore struct {
	*store.MemoryStore
}

func (f *failingRecordStore) Set(ctx context.Context, collection, id string, fields store.Fields, merge bool) error {
	if collection == "users" {
		return errors.New("write timed out")
	}
	return f.MemoryStore.Set(ctx, collection, id, fields, merge)
}

func TestCreateUserOrphanedCredential(t *testing.T) {
	memStore := store.NewMemoryStore()
	failing := &failingRecordStore{MemoryStore: memStore}
	provider := auth.NewProvider(failing, auth.NewJWTService("test-secret"))
	service := NewUserService(failing, provider)
	ctx := context.Background()

	_, err := service.CreateUser(ctx, models.RoleAdmin, "alice", "alice@example.com", models.RoleMember)
	require.Error(t, err)
	assert.Equal(t, models.KindOrphanProvisioning, models.KindOf(err))

	// The credential exists without a directory record.
	creds, findErr := memStore.Find(ctx, store.Query{Collection: "credentials"})
	require.NoError(t, findErr)
	assert.Len(t, creds, 1)
	users, findErr := memStore.Find(ctx, store.Query{Collection: "users"})
	require.NoError(t, findErr)
	assert.Empty(t, users)
}

func TestDeleteUserLeavesCredential(t *testing.T) {
	service, _, memStore := newUserService(t)
	ctx := context.Background()

	id, err := service.CreateUser(ctx, models.RoleAdmin, "alice", "alice@example.com", models.RoleMember)
	require.NoError(t, err)

	require.NoError(t, service.DeleteUser(ctx, models.RoleAdmin, id))

	_, err = memStore.Get(ctx, "users", id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Asymmetric delete: the credential survives.
	creds, err := memStore.Find(ctx, store.Query{Collection: "credentials"})
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestSetRole(t *testing.T) {
	service, _, memStore := newUserService(t)
	ctx := context.Background()

	id, err := service.CreateUser(ctx, models.RoleAdmin, "alice", "alice@example.com", models.RoleMember)
	require.NoError(t, err)

	require.NoError(t, service.SetRole(ctx, models.RoleAdmin, id, models.RoleAdmin))

	doc, err := memStore.Get(ctx, "users", id)
	require.NoError(t, err)
	var user models.User
	require.NoError(t, doc.Decode(&user))
	assert.Equal(t, models.RoleAdmin, user.Role)

	err = service.SetRole(ctx, models.RoleMember, id, models.RoleMember)
	require.Error(t, err)
	assert.Equal(t, models.KindAuthz, models.KindOf(err))
}

func TestListUsers(t *testing.T) {
	service, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := service.CreateUser(ctx, models.RoleAdmin, "alice", "alice@example.com", models.RoleMember)
	require.NoError(t, err)
	_, err = service.CreateUser(ctx, models.RoleAdmin, "bob", "bob@example.com", models.RoleAdmin)
	require.NoError(t, err)

	users, err := service.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
