package auth

import (
	"context"
	"sync"
)

// Session tracks the current principal for one client connection and fans out
// principal-change notifications, the contract the identity resolver and
// subscription manager hang off of. Sign-in, sign-out and token expiry all
// arrive here as a replace of the current principal, never a merge.
type Session struct {
	provider *Provider

	mu        sync.Mutex
	current   *Principal
	listeners []func(*Principal)
}

func NewSession(provider *Provider) *Session {
	return &Session{provider: provider}
}

// SignIn authenticates against the provider and installs the new principal.
func (s *Session) SignIn(ctx context.Context, email, password string) (Principal, string, error) {
	principal, token, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return Principal{}, "", err
	}

	s.setPrincipal(&principal)
	return principal, token, nil
}

// SignOut revokes the token and clears the principal.
func (s *Session) SignOut(token string) {
	s.provider.SignOut(token)
	s.setPrincipal(nil)
}

// Expire clears the principal without revoking anything, used when token
// validation fails mid-session.
func (s *Session) Expire() {
	s.setPrincipal(nil)
}

// Current returns the session's principal, or nil when signed out.
func (s *Session) Current() *Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnPrincipalChange registers a callback and fires it immediately with the
// current principal.
func (s *Session) OnPrincipalChange(fn func(*Principal)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	current := s.current
	s.mu.Unlock()

	fn(current)
}

func (s *Session) setPrincipal(p *Principal) {
	s.mu.Lock()
	s.current = p
	listeners := make([]func(*Principal), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}
