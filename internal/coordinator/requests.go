package coordinator

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/homebus/internal/protocol"
)

type pendingRequest struct {
	target     string
	completion *Completion
	createdAt  time.Time
}

// Requests correlates outbound command ids with their completions.
//
// Ids start at 1 and grow monotonically for the lifetime of the table.
// All methods are safe for concurrent use.
type Requests struct {
	ttl     time.Duration
	now     func() time.Time
	nextID  protocol.CommandID
	pending map[protocol.CommandID]pendingRequest
	mu      sync.Mutex
}

// NewRequests creates a correlation table. A ttl of 0 disables expiry.
func NewRequests(ttl time.Duration) *Requests {
	return &Requests{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[protocol.CommandID]pendingRequest),
	}
}

// Add stores c for a command sent to the device named target and returns
// its correlation id.
func (r *Requests) Add(target string, c *Completion) protocol.CommandID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.pending[r.nextID] = pendingRequest{target: target, completion: c, createdAt: r.now()}
	return r.nextID
}

// Resolve fulfils and removes the request with id when the reply came from
// the device the command was sent to.
// Unknown ids, already resolved ids and replies from any other device are
// ignored and return false; the pending entry is left in place.
func (r *Requests) Resolve(id protocol.CommandID, from string, reply protocol.Command) bool {
	r.mu.Lock()
	p, ok := r.pending[id]
	if !ok || p.target != from {
		r.mu.Unlock()
		return false
	}
	delete(r.pending, id)
	r.mu.Unlock()

	return p.completion.complete(reply, nil)
}

// Fail removes the request with id and resolves it with err.
func (r *Requests) Fail(id protocol.CommandID, err error) bool {
	p, ok := r.take(id)
	if !ok {
		return false
	}
	return p.completion.complete(protocol.Command{}, err)
}

// Age returns how long the request with id has been pending.
func (r *Requests) Age(id protocol.CommandID) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[id]
	if !ok {
		return 0, false
	}
	return r.now().Sub(p.createdAt), true
}

func (r *Requests) take(id protocol.CommandID) (pendingRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return p, ok
}

// Expire fails every request older than the TTL with ErrRequestExpired
// and returns how many were removed. It does nothing when the TTL is 0.
func (r *Requests) Expire(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	var expired []pendingRequest
	var ids []protocol.CommandID
	for id, p := range r.pending {
		if now.Sub(p.createdAt) >= r.ttl {
			expired = append(expired, p)
			ids = append(ids, id)
			delete(r.pending, id)
		}
	}
	r.mu.Unlock()

	for i, p := range expired {
		p.completion.complete(protocol.Command{}, fmt.Errorf("%w: request %d after %v", ErrRequestExpired, ids[i], r.ttl))
	}
	return len(expired)
}

// FailAll resolves every pending request with err and empties the table.
func (r *Requests) FailAll(err error) int {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[protocol.CommandID]pendingRequest)
	r.mu.Unlock()

	for _, p := range pending {
		p.completion.complete(protocol.Command{}, err)
	}
	return len(pending)
}

// Len returns the number of pending requests.
func (r *Requests) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
