package testutil

import "sync"

// Sequence is a thread-safe monotonic counter standing in for
// database-assigned keys.
//
// The first call to Next returns 1. Reset restarts it so a scenario can
// run twice with identical keys.
type Sequence struct {
	mu  sync.Mutex
	cur int64
}

// Next increments and returns the next value.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur++
	return s.cur
}

// Current returns the last value handed out, 0 before the first Next.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Reset restarts the sequence at 0.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = 0
}
