package session

import (
	"sync"

	"github.com/rs/zerolog"
)

// Teardown ends the local session when renewal is no longer possible. It is
// idempotent: however many requests hit a dead session concurrently, the
// store is cleared once and the on-expired callbacks fire once. A new login
// re-arms it via Reset.
type Teardown struct {
	store  *Store
	logger zerolog.Logger

	mu        sync.Mutex
	torn      bool
	onExpired []func()
}

func NewTeardown(store *Store, log zerolog.Logger) *Teardown {
	return &Teardown{store: store, logger: log}
}

// OnExpired registers a callback to run once when the session is torn down.
// The UI/process layer uses this to prompt for re-authentication.
func (t *Teardown) OnExpired(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpired = append(t.onExpired, fn)
}

// Invalidate clears the credential store and notifies listeners. Subsequent
// calls are no-ops until Reset.
func (t *Teardown) Invalidate() {
	t.mu.Lock()
	if t.torn {
		t.mu.Unlock()
		return
	}
	t.torn = true
	callbacks := make([]func(), len(t.onExpired))
	copy(callbacks, t.onExpired)
	t.mu.Unlock()

	t.store.Clear()
	t.logger.Warn().Msg("Session torn down, re-authentication required")
	for _, fn := range callbacks {
		fn()
	}
}

// Reset re-arms the teardown after a new credential has been installed.
func (t *Teardown) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.torn = false
}

// Torn reports whether the session has been invalidated since the last Reset.
func (t *Teardown) Torn() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.torn
}
