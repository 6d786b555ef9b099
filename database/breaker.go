package database

import "sync/atomic"

// Breaker is a cooperative cancellation token shared between a caller and a
// running query. The query polls IsAborted at coarse phase boundaries; there
// is no forced termination.
type Breaker struct {
	aborted atomic.Bool
}

func NewBreaker() *Breaker {
	return &Breaker{}
}

// Abort requests the running query to stop at its next phase boundary.
func (b *Breaker) Abort() {
	b.aborted.Store(true)
}

func (b *Breaker) IsAborted() bool {
	return b.aborted.Load()
}

// Reset re-arms the breaker for the next query.
func (b *Breaker) Reset() {
	b.aborted.Store(false)
}
