package services

import (
	"context"
	"strings"

	"taskboard/sync-service/auth"
	"taskboard/sync-service/logging"
	"taskboard/sync-service/models"
	"taskboard/sync-service/store"
)

const usersCollection = "users"

// UserService is the administrative directory over all principals.
type UserService struct {
	store    store.DocumentStore
	provider *auth.Provider
}

func NewUserService(docStore store.DocumentStore, provider *auth.Provider) *UserService {
	return &UserService{store: docStore, provider: provider}
}

// CreateUser provisions a credential through the provider's secondary,
// session-isolated path and then writes the directory record under the new
// principal id. The two steps are not transactional: if the record write
// fails after the credential exists, the result is an orphaned credential
// with no directory entry, surfaced as OrphanProvisioningError and logged for
// manual remediation. No rollback is attempted.
func (s *UserService) CreateUser(ctx context.Context, role models.Role, username, email string, userRole models.Role) (string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return "", models.NewValidationError("username and email are required")
	}
	if userRole != models.RoleAdmin && userRole != models.RoleMember {
		return "", models.NewValidationError("role must be admin or member")
	}
	if err := auth.Require(role, auth.ActionCreateUser); err != nil {
		return "", err
	}

	principalID, err := s.provider.Provision(ctx, email)
	if err != nil {
		return "", err
	}

	fields := store.Fields{
		"username":  username,
		"email":     email,
		"role":      string(userRole),
		"createdAt": store.ServerTime(),
	}
	if err := s.store.Set(ctx, usersCollection, principalID, fields, false); err != nil {
		logging.Logger.Errorf("Event ID: ORPHANED_CREDENTIAL, Description: Credential %s for %s exists without a directory record, manual remediation required: %v", principalID, email, err)
		return "", models.NewOrphanProvisioningError("user credential was created but the directory record write failed", err)
	}
	return principalID, nil
}

// DeleteUser removes the directory record only. The authentication credential
// is not revoked; create and delete are asymmetric, a known gap.
func (s *UserService) DeleteUser(ctx context.Context, role models.Role, userID string) error {
	if err := auth.Require(role, auth.ActionDeleteUser); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, usersCollection, userID); err != nil {
		return models.NewRemoteError("failed to delete user", err)
	}
	logging.Logger.Infof("Event ID: USER_DELETED, Description: Directory record %s removed; credential left in place", userID)
	return nil
}

// SetRole changes a user's role. Not reachable from current flows, but the
// directory must allow it.
func (s *UserService) SetRole(ctx context.Context, role models.Role, userID string, newRole models.Role) error {
	if newRole != models.RoleAdmin && newRole != models.RoleMember {
		return models.NewValidationError("role must be admin or member")
	}
	if err := auth.Require(role, auth.ActionCreateUser); err != nil {
		return err
	}

	if err := s.store.Update(ctx, usersCollection, userID, store.Fields{"role": string(newRole)}); err != nil {
		return models.NewRemoteError("failed to update role", err)
	}
	return nil
}

// ListUsers returns every directory record, used by the assign-members view.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	docs, err := s.store.Find(ctx, store.Query{
		Collection: usersCollection,
		OrderBy:    "createdAt",
		Ascending:  true,
	})
	if err != nil {
		return nil, models.NewRemoteError("failed to list users", err)
	}

	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		var u models.User
		if err := doc.Decode(&u); err != nil {
			return nil, models.NewRemoteError("failed to decode user record", err)
		}
		if u.Role == "" {
			u.Role = models.RoleMember
		}
		users = append(users, u)
	}
	return users, nil
}
