package views

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps open flows between requests, keyed by an opaque token carried in the form.
// Entries older than the TTL are dropped when new ones are opened.
type Registry[F any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]registryEntry[F]
}

type registryEntry[F any] struct {
	flow   F
	opened time.Time
}

// NewRegistry creates a registry whose entries expire after ttl.
func NewRegistry[F any](ttl time.Duration) *Registry[F] {
	return &Registry[F]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]registryEntry[F]),
	}
}

// Open stores f and returns its token.
func (r *Registry[F]) Open(f F) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for token, e := range r.entries {
		if now.Sub(e.opened) > r.ttl {
			delete(r.entries, token)
		}
	}
	token := uuid.NewString()
	r.entries[token] = registryEntry[F]{flow: f, opened: now}
	return token
}

// Get returns the flow for token, if it is still open.
func (r *Registry[F]) Get(token string) (F, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[token]
	if !ok || r.now().Sub(e.opened) > r.ttl {
		var zero F
		return zero, false
	}
	return e.flow, true
}

// Len reports the number of stored flows, closed and expired ones included.
func (r *Registry[F]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
