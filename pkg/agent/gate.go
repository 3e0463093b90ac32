package agent

import "sync"

// gate blocks the loop while a session is paused. Pausing creates a
// channel and resuming closes it, so a waiting loop wakes without polling.
type gate struct {
	mu     sync.Mutex
	resume chan struct{}
}

// pause closes the gate. It reports false if already paused.
func (g *gate) pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resume != nil {
		return false
	}
	g.resume = make(chan struct{})
	return true
}

// open reopens the gate. It reports false if it was not paused.
func (g *gate) open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resume == nil {
		return false
	}
	close(g.resume)
	g.resume = nil
	return true
}

// closed returns the channel to wait on, or nil when not paused.
func (g *gate) closed() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resume
}

func (g *gate) paused() bool {
	return g.closed() != nil
}
