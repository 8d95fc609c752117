package coordinator

import (
	"context"

	"github.com/nerrad567/homebus/internal/automation"
)

// ActivateProfile activates the named catalogue profile.
//
// Activation is serialized with inbound message handling, so the
// activation routine never interleaves with a sensor notification.
//
// Returns:
//   - bool: false when the profile was already active
//   - error: automation.ErrUnexpectedProfile for unknown names
func (c *Coordinator) ActivateProfile(ctx context.Context, name string) (bool, error) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	return c.engine.ActivateByName(ctx, name)
}

// AddProfile adds p to the catalogue.
func (c *Coordinator) AddProfile(p automation.Profile) error {
	return c.engine.Catalogue().Add(p)
}
