package realtime

import (
	"sync"

	"taskboard/sync-service/store"
)

// ScopeState is the lifecycle of one scope instance (one generation).
type ScopeState int

const (
	// Unsubscribed: no active listener.
	Unsubscribed ScopeState = iota
	// Subscribing: listener registration in flight.
	Subscribing
	// Active: listener registered, snapshots flowing.
	Active
	// Disposed: listener released; in-flight deliveries are filtered by the
	// generation tag so a stale scope cannot resurrect.
	Disposed
)

func (s ScopeState) String() string {
	switch s {
	case Unsubscribed:
		return "unsubscribed"
	case Subscribing:
		return "subscribing"
	case Active:
		return "active"
	case Disposed:
		return "disposed"
	}
	return "unknown"
}

// scope is the generation-tagged subscription slot for one logical query
// boundary. Each activation bumps the generation; deliveries and cancel
// handles carrying an old generation are refused.
type scope struct {
	name string

	mu     sync.Mutex
	state  ScopeState
	gen    uint64
	cancel store.CancelFunc
}

func (s *scope) live() bool {
	return s.state == Subscribing || s.state == Active
}

// begin starts a new generation, releasing any previous listener first.
// Returns the generation tag the caller must carry through registration and
// deliveries.
func (s *scope) begin() uint64 {
	s.mu.Lock()
	if s.live() {
		activeScopes.Dec()
	}
	prev := s.cancel
	s.cancel = nil
	s.gen++
	s.state = Subscribing
	activeScopes.Inc()
	gen := s.gen
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
	return gen
}

// attach stores the cancel handle for the given generation. Returns false if
// the generation is stale or the scope was disposed meanwhile; the caller
// must then release the handle itself.
func (s *scope) attach(gen uint64, cancel store.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state == Disposed {
		return false
	}
	s.cancel = cancel
	return true
}

// accept reports whether a delivery tagged with gen may mutate materialized
// state, and moves Subscribing to Active on the first one.
func (s *scope) accept(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state == Disposed {
		staleSnapshotsDropped.Inc()
		return false
	}
	if s.state == Subscribing {
		s.state = Active
	}
	return true
}

// fail rolls a registration error back to Unsubscribed, unless the scope was
// already re-begun or disposed.
func (s *scope) fail(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state == Disposed {
		return
	}
	s.state = Unsubscribed
	activeScopes.Dec()
}

// dispose releases the listener. Idempotent; the Disposed mark is set before
// the underlying cancel runs, so from the caller's perspective no delivery
// lands after dispose returns.
func (s *scope) dispose() {
	s.mu.Lock()
	if s.state == Disposed {
		s.mu.Unlock()
		return
	}
	if s.live() {
		activeScopes.Dec()
	}
	s.state = Disposed
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// State returns the scope's current lifecycle state.
func (s *scope) State() ScopeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
