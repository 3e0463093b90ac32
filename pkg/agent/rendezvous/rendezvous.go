// Package rendezvous provides one-shot synchronization points for values a
// caller supplies while the agent loop waits, such as feedback on a proposed
// product or a screenshot.
package rendezvous

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/scout/pkg/logging"
	"github.com/google/uuid"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("rendezvous")
	if err != nil {
		debugLog.Warnf("Failed to initialize rendezvous logger, using stderr fallback: %v", err)
	}
}

// Outcome says how an Await ended.
type Outcome int

const (
	// Resolved means a value was supplied in time
	Resolved Outcome = iota
	// TimedOut means nobody answered within the timeout
	TimedOut
	// Canceled means the waiting context ended first
	Canceled
	// NotOpen means Await was called with no pending slot
	NotOpen
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case TimedOut:
		return "timed_out"
	case Canceled:
		return "canceled"
	default:
		return "not_open"
	}
}

// slot is one pending request. response is buffered so Resolve never blocks.
type slot[T any] struct {
	response chan T
	id       string
	resolved bool
}

// Channel is a single-slot, single-resolution future. At most one slot is
// pending at a time; opening a new one replaces an unresolved one
// (latest wins, logged). Resolving an absent or already resolved slot is a
// no-op, never an error.
type Channel[T any] struct {
	noResponse T
	pending    *slot[T]
	name       string
	mu         sync.Mutex
}

// New creates a channel. noResponse is what Await returns when no value
// arrives.
func New[T any](name string, noResponse T) *Channel[T] {
	return &Channel[T]{name: name, noResponse: noResponse}
}

// Open creates a fresh pending slot and returns its token.
func (c *Channel[T]) Open() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil && !c.pending.resolved {
		debugLog.Warnf("%s: replacing unresolved slot %s", c.name, c.pending.id)
		c.pending.resolved = true
	}

	c.pending = &slot[T]{id: uuid.NewString(), response: make(chan T, 1)}
	return c.pending.id
}

// Pending reports whether a slot is open and unresolved.
func (c *Channel[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil && !c.pending.resolved
}

// Resolve completes the pending slot with v. It returns false when there is
// nothing to resolve.
func (c *Channel[T]) Resolve(v T) bool {
	return c.resolve("", v)
}

// ResolveToken resolves the pending slot only if its token is id.
func (c *Channel[T]) ResolveToken(id string, v T) bool {
	return c.resolve(id, v)
}

func (c *Channel[T]) resolve(id string, v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.pending
	if s == nil || s.resolved || (id != "" && id != s.id) {
		debugLog.Debugf("%s: ignoring resolve with no pending slot", c.name)
		return false
	}
	s.resolved = true
	s.response <- v
	return true
}

// Await blocks until the pending slot is resolved, the timeout elapses or ctx
// ends. Only a Resolved outcome carries a supplied value; every other outcome
// returns the no-response value. The slot is closed when Await returns.
func (c *Channel[T]) Await(ctx context.Context, timeout time.Duration) (T, Outcome) {
	c.mu.Lock()
	s := c.pending
	c.mu.Unlock()

	if s == nil {
		return c.noResponse, NotOpen
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-s.response:
		c.release(s)
		return v, Resolved
	case <-timer.C:
		return c.expire(s, TimedOut)
	case <-ctx.Done():
		return c.expire(s, Canceled)
	}
}

// expire closes s unless a Resolve slipped in first, in which case that value wins.
func (c *Channel[T]) expire(s *slot[T], outcome Outcome) (T, Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == s {
		c.pending = nil
	}
	if s.resolved {
		select {
		case v := <-s.response:
			return v, Resolved
		default:
			// replaced by a newer Open
		}
	}
	s.resolved = true
	return c.noResponse, outcome
}

func (c *Channel[T]) release(s *slot[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == s {
		c.pending = nil
	}
}
