package inv

import "sync/atomic"

// IDAllocator hands out dense entry ids starting at 1.
type IDAllocator struct {
	last atomic.Int64
}

// Next returns the next id.
func (a *IDAllocator) Next() int64 {
	return a.last.Add(1)
}

// Count returns how many ids have been allocated.
func (a *IDAllocator) Count() int64 {
	return a.last.Load()
}
