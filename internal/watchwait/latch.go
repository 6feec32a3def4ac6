package watchwait

import "sync"

// Latch is a single-assignment holder for a wait's outcome. Resolution can be
// attempted from the event loop, the deadline timer, and the caller's
// cancellation path at once; whichever gets there first wins and every later
// attempt is a no-op. Late events and duplicate stream errors arriving after
// a terminal state must never re-resolve a wait, so every wait in this engine
// goes through a Latch rather than an ad hoc "already resolved" flag.
type Latch struct {
	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

// NewLatch returns an unresolved latch
func NewLatch() *Latch {
	return &Latch{done: make(chan struct{})}
}

// Resolve stores the outcome if the latch is still open. It reports whether
// this call was the one that resolved the latch.
func (l *Latch) Resolve(outcome Outcome) bool {
	fired := false
	l.once.Do(func() {
		l.outcome = outcome
		fired = true
		close(l.done)
	})
	return fired
}

// Fired reports whether the latch has resolved
func (l *Latch) Fired() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Done is closed once the latch resolves
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Outcome blocks until the latch resolves and returns the stored outcome
func (l *Latch) Outcome() Outcome {
	<-l.done
	return l.outcome
}
