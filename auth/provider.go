package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskboard/sync-service/logging"
	"taskboard/sync-service/models"
	"taskboard/sync-service/store"
)

const credentialsCollection = "credentials"

// BootstrapPassword is the fixed initial secret assigned to provisioned
// users, expected to be changed out-of-band. A known weakness of the
// provisioning flow, kept deliberately.
const BootstrapPassword = "12345678"

// Principal is the authenticated identity for a session.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type credential struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// Provider is the identity provider: credential verification, session
// tokens, and the session-isolated provisioning path used by admin user
// creation.
type Provider struct {
	store      store.DocumentStore
	jwtService *JWTService

	mu        sync.Mutex
	blacklist map[string]bool
}

func NewProvider(docStore store.DocumentStore, jwtService *JWTService) *Provider {
	return &Provider{
		store:      docStore,
		jwtService: jwtService,
		blacklist:  make(map[string]bool),
	}
}

// SignIn verifies the credential and issues a session token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Principal, string, error) {
	cred, err := p.findCredential(ctx, email)
	if err != nil {
		return Principal{}, "", err
	}
	if cred == nil {
		return Principal{}, "", models.NewValidationError("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return Principal{}, "", models.NewValidationError("invalid email or password")
	}

	token, err := p.jwtService.GenerateAuthToken(cred.ID, cred.Email)
	if err != nil {
		return Principal{}, "", models.NewRemoteError("failed to generate session token", err)
	}

	return Principal{ID: cred.ID, Email: cred.Email}, token, nil
}

// SignOut invalidates the session token.
func (p *Provider) SignOut(token string) {
	p.mu.Lock()
	p.blacklist[token] = true
	p.mu.Unlock()
}

// ValidateSession resolves a bearer token to its principal, rejecting
// signed-out tokens.
func (p *Provider) ValidateSession(token string) (Principal, error) {
	p.mu.Lock()
	revoked := p.blacklist[token]
	p.mu.Unlock()
	if revoked {
		return Principal{}, fmt.Errorf("session has been signed out")
	}

	id, email, err := p.jwtService.ValidateToken(token)
	if err != nil {
		return Principal{}, err
	}
	return Principal{ID: id, Email: email}, nil
}

// Provision creates a new authenticated-principal credential with the
// bootstrap password. This is the secondary, session-isolated path: it never
// touches any live session's principal, so the admin stays signed in.
func (p *Provider) Provision(ctx context.Context, email string) (string, error) {
	return p.ProvisionWithPassword(ctx, email, BootstrapPassword)
}

func (p *Provider) ProvisionWithPassword(ctx context.Context, email, password string) (string, error) {
	existing, err := p.findCredential(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", models.NewValidationError("a user with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", models.NewRemoteError("failed to hash password", err)
	}

	id := uuid.New().String()
	fields := store.Fields{
		"email":        email,
		"passwordHash": string(hash),
		"createdAt":    store.ServerTime(),
	}
	if err := p.store.Set(ctx, credentialsCollection, id, fields, false); err != nil {
		return "", models.NewRemoteError("failed to create credential", err)
	}

	logging.Logger.Infof("Event ID: CREDENTIAL_PROVISIONED, Description: Created credential %s for %s", id, email)
	return id, nil
}

func (p *Provider) findCredential(ctx context.Context, email string) (*credential, error) {
	docs, err := p.store.Find(ctx, store.Query{
		Collection: credentialsCollection,
		Wheres:     []store.Where{{Field: "email", Op: store.OpEqual, Value: email}},
	})
	if err != nil {
		return nil, models.NewRemoteError("failed to look up credential", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var cred credential
	if err := docs[0].Decode(&cred); err != nil {
		return nil, models.NewRemoteError("failed to decode credential", err)
	}
	return &cred, nil
}
