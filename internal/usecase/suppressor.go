package usecase

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Suppressor holds back repeated emergency replies to one sender. A reply
// reserves the sender for the window; a failed reply releases it.
type Suppressor struct {
	window time.Duration
	clock  clock.Clock

	mu        sync.Mutex
	reserved  map[string]time.Time
	lastSweep time.Time
}

func NewSuppressor(window time.Duration, clk clock.Clock) *Suppressor {
	if clk == nil {
		clk = clock.New()
	}
	return &Suppressor{
		window:   window,
		clock:    clk,
		reserved: make(map[string]time.Time),
	}
}

// Reserve reports whether a reply to sender may go out now and, if so,
// starts a new window for it. A zero window never suppresses.
func (s *Suppressor) Reserve(sender string) bool {
	if s.window <= 0 {
		return true
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now)
	if until, ok := s.reserved[sender]; ok && now.Before(until) {
		return false
	}
	s.reserved[sender] = now.Add(s.window)
	return true
}

func (s *Suppressor) Release(sender string) {
	s.mu.Lock()
	delete(s.reserved, sender)
	s.mu.Unlock()
}

func (s *Suppressor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reserved)
}

// sweep drops expired entries at most once per window. Callers hold mu.
func (s *Suppressor) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.window {
		return
	}
	for sender, until := range s.reserved {
		if !now.Before(until) {
			delete(s.reserved, sender)
		}
	}
	s.lastSweep = now
}
