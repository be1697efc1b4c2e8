package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/sync-service/models"
	"taskboard/sync-service/store"
)

func newTestProvider(t *testing.T) (*Provider, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	return NewProvider(memStore, NewJWTService("test-secret")), memStore
}

func TestProvisionAndSignIn(t *testing.T) {
	provider, _ := newTestProvider(t)
	ctx := context.Background()

	id, err := provider.Provision(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	principal, token, err := provider.SignIn(ctx, "alice@example.com", BootstrapPassword)
	require.NoError(t, err)
	assert.Equal(t, id, principal.ID)
	assert.Equal(t, "alice@example.com", principal.Email)
	require.NotEmpty(t, token)

	validated, err := provider.ValidateSession(token)
	require.NoError(t, err)
	assert.Equal(t, principal, validated)
}

func TestSignInWrongPassword(t *testing.T) {
	provider, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := provider.Provision(ctx, "alice@example.com")
	require.NoError(t, err)

	_, _, err = provider.SignIn(ctx, "alice@example.com", "not-the-password")
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	_, _, err = provider.SignIn(ctx, "nobody@example.com", BootstrapPassword)
	require.Error(t, err)
}

func TestProvisionDuplicateEmail(t *testing.T) {
	provider, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := provider.Provision(ctx, "alice@example.com")
	require.NoError(t, err)

	_, err = provider.Provision(ctx, "alice@example.com")
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestSignOutRevokesToken(t *testing.T) {
	provider, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := provider.Provision(ctx, "alice@example.com")
	require.NoError(t, err)

	_, token, err := provider.SignIn(ctx, "alice@example.com", BootstrapPassword)
	require.NoError(t, err)

	provider.SignOut(token)
	_, err = provider.ValidateSession(token)
	require.Error(t, err)
}

// Provisioning runs in its own isolated context: the admin's session must
// keep its principal while a new user's credential is created.
func TestProvisionDoesNotReplaceSessionPrincipal(t *testing.T) {
	provider, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := provider.Provision(ctx, "admin@example.com")
	require.NoError(t, err)

	session := NewSession(provider)
	adminPrincipal, _, err := session.SignIn(ctx, "admin@example.com", BootstrapPassword)
	require.NoError(t, err)

	_, err = provider.Provision(ctx, "newuser@example.com")
	require.NoError(t, err)

	current := session.Current()
	require.NotNil(t, current)
	assert.Equal(t, adminPrincipal.ID, current.ID)
}

func TestSessionPrincipalChangeNotifications(t *testing.T) {
	provider, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := provider.Provision(ctx, "alice@example.com")
	require.NoError(t, err)

	session := NewSession(provider)

	var changes []*Principal
	session.OnPrincipalChange(func(p *Principal) {
		changes = append(changes, p)
	})
	// Registration fires immediately with the signed-out state.
	require.Len(t, changes, 1)
	assert.Nil(t, changes[0])

	principal, token, err := session.SignIn(ctx, "alice@example.com", BootstrapPassword)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.NotNil(t, changes[1])
	assert.Equal(t, principal.ID, changes[1].ID)

	session.SignOut(token)
	require.Len(t, changes, 3)
	assert.Nil(t, changes[2])
	assert.Nil(t, session.Current())
}
