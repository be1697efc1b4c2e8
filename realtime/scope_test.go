package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeLifecycle(t *testing.T) {
	s := &scope{name: "test"}
	assert.Equal(t, Unsubscribed, s.State())

	gen := s.begin()
	assert.Equal(t, Subscribing, s.State())

	// First snapshot moves Subscribing to Active.
	assert.True(t, s.accept(gen))
	assert.Equal(t, Active, s.State())
	assert.True(t, s.accept(gen))

	s.dispose()
	assert.Equal(t, Disposed, s.State())
	assert.False(t, s.accept(gen))
}

func TestScopeDisposeIsIdempotent(t *testing.T) {
	s := &scope{name: "test"}
	gen := s.begin()

	var cancels int
	assert.True(t, s.attach(gen, func() { cancels++ }))

	s.dispose()
	s.dispose()
	s.dispose()
	assert.Equal(t, 1, cancels)
	assert.Equal(t, Disposed, s.State())
}

// A delivery tagged with an old generation must be refused once a new
// generation has begun, even though the scope itself is live again.
func TestScopeStaleGenerationRefused(t *testing.T) {
	s := &scope{name: "test"}

	oldGen := s.begin()
	assert.True(t, s.accept(oldGen))

	newGen := s.begin()
	assert.False(t, s.accept(oldGen))
	assert.True(t, s.accept(newGen))
}

func TestScopeAttachAfterDisposeRefused(t *testing.T) {
	s := &scope{name: "test"}
	gen := s.begin()
	s.dispose()

	attached := s.attach(gen, func() { t.Fatal("cancel must not be stored") })
	assert.False(t, attached)
}

func TestScopeBeginReleasesPreviousListener(t *testing.T) {
	s := &scope{name: "test"}

	gen := s.begin()
	var cancelled bool
	assert.True(t, s.attach(gen, func() { cancelled = true }))

	s.begin()
	assert.True(t, cancelled)
	assert.Equal(t, Subscribing, s.State())
}

func TestScopeFailRollsBackToUnsubscribed(t *testing.T) {
	s := &scope{name: "test"}
	gen := s.begin()

	s.fail(gen)
	assert.Equal(t, Unsubscribed, s.State())

	// A failure reported for a dead generation changes nothing.
	gen2 := s.begin()
	s.fail(gen)
	assert.Equal(t, Subscribing, s.State())
	assert.True(t, s.accept(gen2))
}
