package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"taskboard/sync-service/auth"
	"taskboard/sync-service/logging"
	"taskboard/sync-service/models"
	"taskboard/sync-service/realtime"
)

// ClientSession bundles everything one signed-in client owns: its auth
// session, the resolved directory record, and the subscription manager
// holding its materialized lists.
type ClientSession struct {
	Token   string
	Auth    *auth.Session
	User    models.User
	Manager *realtime.Manager
}

type SessionRegistry struct {
	mu       sync.Mutex
	provider *auth.Provider
	sessions map[string]*ClientSession
}

func NewSessionRegistry(provider *auth.Provider) *SessionRegistry {
	return &SessionRegistry{
		provider: provider,
		sessions: make(map[string]*ClientSession),
	}
}

func (r *SessionRegistry) Put(cs *ClientSession) {
	r.mu.Lock()
	r.sessions[cs.Token] = cs
	r.mu.Unlock()
}

func (r *SessionRegistry) Get(token string) *ClientSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[token]
}

func (r *SessionRegistry) Remove(token string) {
	r.mu.Lock()
	cs := r.sessions[token]
	delete(r.sessions, token)
	r.mu.Unlock()

	if cs != nil {
		cs.Manager.Close()
	}
}

type contextKey struct{}

// SessionFromRequest returns the client session attached by the middleware.
func SessionFromRequest(r *http.Request) *ClientSession {
	cs, _ := r.Context().Value(contextKey{}).(*ClientSession)
	return cs
}

// Middleware validates the bearer token and attaches the matching client
// session. An invalid or expired token tears the session down, which clears
// the principal and disposes its scopes.
func (r *SessionRegistry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token := bearerToken(req)
		if token == "" {
			http.Error(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		if _, err := r.provider.ValidateSession(token); err != nil {
			logging.Logger.Warnf("Event ID: SESSION_INVALID, Description: Rejected token for %s %s: %v", req.Method, req.URL.Path, err)
			if cs := r.Get(token); cs != nil {
				cs.Auth.Expire()
				r.Remove(token)
			}
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		cs := r.Get(token)
		if cs == nil {
			http.Error(w, "Unknown session", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(req.Context(), contextKey{}, cs)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	// EventSource cannot set headers, so the stream endpoint passes the token
	// as a query parameter.
	return r.URL.Query().Get("token")
}
