package store

import "sync/atomic"

// Sequence hands out increasing ids. Seed it with the largest id already
// stored so restarts never reuse one.
type Sequence struct {
	last atomic.Int64
}

func NewSequence(maxExisting int64) *Sequence {
	s := &Sequence{}
	s.last.Store(maxExisting)
	return s
}

func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}

// Observe raises the counter to at least id.
func (s *Sequence) Observe(id int64) {
	for {
		cur := s.last.Load()
		if id <= cur || s.last.CompareAndSwap(cur, id) {
			return
		}
	}
}
