package automation

import (
	"fmt"
	"sync"
)

// Catalogue holds the available profiles in insertion order.
//
// All public methods are thread-safe.
type Catalogue struct {
	profiles []Profile
	byName   map[string]Profile
	mu       sync.RWMutex
}

// NewCatalogue creates a catalogue holding the Default and Night profiles.
func NewCatalogue() *Catalogue {
	c := &Catalogue{byName: make(map[string]Profile)}
	_ = c.Add(DefaultProfile())
	_ = c.Add(NightProfile())
	return c
}

// Add appends a profile. Names are unique.
func (c *Catalogue) Add(p Profile) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("%w: profile has no name", ErrInvalidProfile)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byName[p.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrProfileExists, p.Name())
	}
	c.profiles = append(c.profiles, p)
	c.byName[p.Name()] = p
	return nil
}

// Get looks up a profile by name.
func (c *Catalogue) Get(name string) (Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedProfile, name)
	}
	return p, nil
}

// List returns the profiles in insertion order.
func (c *Catalogue) List() []Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Len returns the number of profiles.
func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}
