package runtime

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Registry maps each joined connection to its identity.
// Several connections may bind the same identity, so a reference count is kept
// per identity: the name is released only when its last connection unbinds.
type Registry struct {
	mu       sync.RWMutex
	bindings map[domain.ConnectionID]domain.Identity
	counts   map[domain.Identity]int
}

func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[domain.ConnectionID]domain.Identity),
		counts:   make(map[domain.Identity]int),
	}
}

// Bind attaches an identity to a connection.
// A connection joins exactly once: a second Bind fails with ErrAlreadyBound.
func (r *Registry) Bind(connectionID domain.ConnectionID, identity domain.Identity) error {
	if strings.TrimSpace(identity.String()) == "" {
		return errors.ErrEmptyIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[connectionID]; ok {
		return errors.ErrAlreadyBound
	}
	r.bindings[connectionID] = identity
	r.counts[identity]++
	return nil
}

// Unbind removes the binding of a connection and returns the released identity.
// Unbinding a connection that never joined is a no-op.
func (r *Registry) Unbind(connectionID domain.ConnectionID) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.bindings[connectionID]
	if !ok {
		return "", false
	}
	delete(r.bindings, connectionID)

	r.counts[identity]--
	if r.counts[identity] <= 0 {
		delete(r.counts, identity)
	}
	return identity, true
}

// DistinctIdentities returns a sorted snapshot of the bound identities, without duplicates.
func (r *Registry) DistinctIdentities() []domain.Identity {
	r.mu.RLock()
	identities := lo.Keys(r.counts)
	r.mu.RUnlock()

	slices.Sort(identities)
	return identities
}

// Count returns how many connections are bound to identity.
func (r *Registry) Count(identity domain.Identity) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[identity]
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
