// Package registry maps hub peers to the display names they announced in
// their join handshake.
//
// Entries are keyed by the peer's host address, not by a session id: a peer
// reconnecting from the same address reuses its entry, and a peer whose
// address changes is unnamed until it sends a new join. Entries are never
// deleted; a disconnect only marks them offline.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// UnknownName stands in for peers that disconnect without having joined.
const UnknownName = "someone"

type entry struct {
	name   string
	online bool
}

// Registry is a concurrent-safe address → name store.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// OnJoin records name for addr, overwriting any earlier entry, and returns
// the join notice to relay.
func (r *Registry) OnJoin(addr, name string) string {
	r.mu.Lock()
	r.entries[addr] = &entry{name: name, online: true}
	r.mu.Unlock()
	return JoinNotice(name)
}

// OnDisconnect marks addr offline and returns the leave notice to relay.
func (r *Registry) OnDisconnect(addr string) string {
	r.mu.Lock()
	name := UnknownName
	if e, ok := r.entries[addr]; ok {
		e.online = false
		if e.name != "" {
			name = e.name
		}
	}
	r.mu.Unlock()
	return LeaveNotice(name)
}

// Name returns the last name announced from addr.
func (r *Registry) Name(addr string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[addr]
	if !ok {
		return "", false
	}
	return e.name, true
}

// Online returns the sorted names of peers that joined and have not left.
func (r *Registry) Online() []string {
	r.mu.Lock()
	online := lo.FilterMap(lo.Values(r.entries), func(e *entry, _ int) (string, bool) {
		return e.name, e.online && e.name != ""
	})
	r.mu.Unlock()
	sort.Strings(online)
	return online
}

// Len returns the number of known addresses, online or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func JoinNotice(name string) string {
	return fmt.Sprintf("%s has joined the room.", name)
}

func LeaveNotice(name string) string {
	return fmt.Sprintf("%s has left the room.", name)
}
