package engine

import "github.com/roach88/fieldreg/internal/identity"

// seqClock stamps journal records. Invocations and completions share one
// sequence, and a seq drawn for a write that then failed is never reused.
// It counts the same way block heights do, so it reuses HeightClock.
type seqClock struct {
	c identity.HeightClock
}

// Next draws the seq for the next journal record.
func (s *seqClock) Next() int64 {
	return s.c.Advance()
}

// Current returns the last seq drawn.
func (s *seqClock) Current() int64 {
	return s.c.Height()
}

// Resume moves the clock past seq, the highest one found in the journal.
// A clock that is already further along stays where it is.
func (s *seqClock) Resume(seq int64) {
	s.c.Observe(seq)
}
