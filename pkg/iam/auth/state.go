package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultStateTTL bounds how long a pending login attempt stays consumable.
const DefaultStateTTL = 10 * time.Minute

// AuthState correlates an opaque state token with one pending login attempt.
// It is created when the authorization redirect is built and consumed exactly
// once by the callback.
type AuthState struct {
	State        string    `json:"state"`
	RedirectURI  string    `json:"redirect_uri"`
	CodeVerifier string    `json:"code_verifier"`
	CreatedAt    time.Time `json:"created_at"`
}

// StateManager stores pending authorization states. Implementations must make
// Consume atomic: of two concurrent Consume calls for the same token, exactly
// one receives the record and the other observes absence. A consumed or
// expired token is indistinguishable from one that never existed.
type StateManager interface {
	// Save mints a fresh random state token and stores the record under it.
	Save(ctx context.Context, redirectURI, codeVerifier string) (*AuthState, error)

	// Consume atomically removes and returns the record. Absent, already
	// consumed or expired states yield ErrInvalidState.
	Consume(ctx context.Context, state string) (*AuthState, error)
}

// ============================================================================
// In-memory implementation
// ============================================================================

// InMemoryStateManager keeps pending states in a process-local map. Expiry is
// lazy, checked on Consume; records abandoned by the client sit inert until
// their token is tried or the process restarts. Not suitable for
// multi-instance deployments - use the Redis manager there.
type InMemoryStateManager struct {
	mu     sync.Mutex
	states map[string]*AuthState
	ttl    time.Duration
	now    func() time.Time
}

// NewInMemoryStateManager creates an in-memory state manager. A non-positive
// ttl falls back to DefaultStateTTL.
func NewInMemoryStateManager(ttl time.Duration) *InMemoryStateManager {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &InMemoryStateManager{
		states: make(map[string]*AuthState),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Save implements StateManager. The state token is a v4 UUID: 122 bits of
// randomness, enough to make collisions between concurrent logins negligible.
func (m *InMemoryStateManager) Save(_ context.Context, redirectURI, codeVerifier string) (*AuthState, error) {
	data := &AuthState{
		State:        uuid.NewString(),
		RedirectURI:  redirectURI,
		CodeVerifier: codeVerifier,
		CreatedAt:    m.now(),
	}

	m.mu.Lock()
	m.states[data.State] = data
	m.mu.Unlock()

	return data, nil
}

// Consume implements StateManager. Remove-then-check keeps the at-most-once
// guarantee even for expired records.
func (m *InMemoryStateManager) Consume(_ context.Context, state string) (*AuthState, error) {
	m.mu.Lock()
	data, ok := m.states[state]
	if ok {
		delete(m.states, state)
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrInvalidState()
	}
	if m.now().After(data.CreatedAt.Add(m.ttl)) {
		return nil, ErrInvalidState().WithDetail("reason", "expired")
	}
	return data, nil
}

// Sweep drops expired records. Correctness never depends on it (Consume
// checks expiry), it only bounds memory while the process runs.
func (m *InMemoryStateManager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, data := range m.states {
		if data.CreatedAt.Before(cutoff) {
			delete(m.states, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of pending records
func (m *InMemoryStateManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
