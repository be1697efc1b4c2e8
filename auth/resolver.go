package auth

import (
	"context"
	"errors"

	"taskboard/sync-service/models"
	"taskboard/sync-service/store"
)

const usersCollection = "users"

// Resolver maps an authenticated principal to its directory record.
type Resolver struct {
	store store.DocumentStore
}

func NewResolver(docStore store.DocumentStore) *Resolver {
	return &Resolver{store: docStore}
}

// Resolve fetches the User record for the principal. A principal with no
// directory record is still reported, but its role defaults to member —
// never admin — so an unprovisioned identity cannot escalate.
func (r *Resolver) Resolve(ctx context.Context, principal Principal) (models.User, error) {
	doc, err := r.store.Get(ctx, usersCollection, principal.ID)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{ID: principal.ID, Email: principal.Email, Role: models.RoleMember}, nil
	}
	if err != nil {
		return models.User{}, models.NewRemoteError("failed to resolve user record", err)
	}

	var user models.User
	if err := doc.Decode(&user); err != nil {
		return models.User{}, models.NewRemoteError("failed to decode user record", err)
	}
	if user.Role == "" {
		user.Role = models.RoleMember
	}
	return user, nil
}
