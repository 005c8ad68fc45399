// Package runtime owns the shared chat state: the username registry, the
// history ring and the broadcast bus. It orchestrates delivery without
// containing wire or transport concerns.
package runtime

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry is the single source of truth for the set of active usernames.
// At most one session may hold a given name at any instant; every mutation
// goes through the mutex so two concurrent joins can never interleave.
type Registry struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// TryJoin atomically checks non-membership and inserts the username.
// It returns false when the name is empty or already held.
func (r *Registry) TryJoin(username string) bool {
	if username == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.names[username]; taken {
		return false
	}
	r.names[username] = struct{}{}
	return true
}

// Leave removes the username unconditionally. Removing an absent name is a
// no-op, which lets every session termination path call it exactly once
// without tracking whether the join ever happened.
func (r *Registry) Leave(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, username)
}

// Active reports whether the username currently holds a session.
func (r *Registry) Active(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.names[username]
	return ok
}

// Count returns the number of active usernames.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

// Usernames returns the active usernames, sorted for stable output.
func (r *Registry) Usernames() []string {
	r.mu.Lock()
	names := lo.Keys(r.names)
	r.mu.Unlock()

	sort.Strings(names)
	return names
}
