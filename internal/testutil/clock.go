package testutil

import (
	"fmt"
	"sync"
	"time"
)

// ScanEpoch is the time FixedClock starts at.
var ScanEpoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is a deterministic inv.Clock. A non-zero step moves it forward
// after every read.
type StubClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStubClock returns a StubClock that always reads t.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock at ScanEpoch.
func FixedClock() *StubClock {
	return NewStubClock(ScanEpoch)
}

// TickingClock returns a StubClock at ScanEpoch that moves by step per read,
// so a run's start and finish times always differ.
func TickingClock(step time.Duration) *StubClock {
	return &StubClock{now: ScanEpoch, step: step}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// StubIDGenerator hands out run IDs "id-1", "id-2" and so on.
type StubIDGenerator struct {
	mu sync.Mutex
	n  int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}
