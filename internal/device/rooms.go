package device

import (
	"sort"
	"sync"
)

// Rooms is the set of known room names.
type Rooms struct {
	names map[string]struct{}
	mu    sync.RWMutex
}

// NewRooms creates a room set seeded with names. Empty names are skipped.
func NewRooms(names ...string) *Rooms {
	r := &Rooms{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		r.Add(n)
	}
	return r
}

// Add inserts a room. It returns false for a known or empty name.
func (r *Rooms) Add(name string) bool {
	if name == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[name]; ok {
		return false
	}
	r.names[name] = struct{}{}
	return true
}

// Contains reports whether the room is known.
func (r *Rooms) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// List returns the room names sorted alphabetically.
func (r *Rooms) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of known rooms.
func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
