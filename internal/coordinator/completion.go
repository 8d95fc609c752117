package coordinator

import (
	"context"
	"sync"

	"github.com/nerrad567/homebus/internal/protocol"
)

// Completion is the handle returned for a command awaiting acknowledgement.
// It is resolved exactly once, either with the device's reply or an error.
type Completion struct {
	done  chan struct{}
	once  sync.Once
	reply protocol.Command
	err   error
}

// NewCompletion creates an unresolved completion.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Done is closed once the completion is resolved.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the completion resolves or ctx ends.
// A ctx error leaves the completion pending.
func (c *Completion) Wait(ctx context.Context) (protocol.Command, error) {
	select {
	case <-c.done:
		return c.reply, c.err
	case <-ctx.Done():
		return protocol.Command{}, ctx.Err()
	}
}

// Resolved reports whether the completion has resolved.
func (c *Completion) Resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// complete resolves c and reports whether this call was the one that did it.
func (c *Completion) complete(reply protocol.Command, err error) bool {
	resolved := false
	c.once.Do(func() {
		c.reply = reply
		c.err = err
		close(c.done)
		resolved = true
	})
	return resolved
}
