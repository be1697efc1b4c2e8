package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/sync-service/models"
	"taskboard/sync-service/store"
)

func TestResolveExistingUser(t *testing.T) {
	memStore := store.NewMemoryStore()
	ctx := context.Background()

	err := memStore.Set(ctx, "users", "u1", store.Fields{
		"username":  "alice",
		"email":     "alice@example.com",
		"role":      "admin",
		"createdAt": store.ServerTime(),
	}, false)
	require.NoError(t, err)

	resolver := NewResolver(memStore)
	user, err := resolver.Resolve(ctx, Principal{ID: "u1", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

// An authenticated principal with no directory record must still resolve,
// with role member — never admin.
func TestResolveUnprovisionedPrincipalDefaultsToMember(t *testing.T) {
	resolver := NewResolver(store.NewMemoryStore())

	user, err := resolver.Resolve(context.Background(), Principal{ID: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ghost", user.ID)
	assert.Equal(t, "ghost@example.com", user.Email)
	assert.Equal(t, models.RoleMember, user.Role)
}

func TestResolveEmptyRoleDefaultsToMember(t *testing.T) {
	memStore := store.NewMemoryStore()
	ctx := context.Background()

	err := memStore.Set(ctx, "users", "u2", store.Fields{
		"username": "bob",
		"email":    "bob@example.com",
	}, false)
	require.NoError(t, err)

	resolver := NewResolver(memStore)
	user, err := resolver.Resolve(ctx, Principal{ID: "u2", Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, user.Role)
}
