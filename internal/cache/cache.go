package cache

import "sync/atomic"

// Snapshot is a lock-free, read-optimized holder for an immutable value.
// Writers swap in a whole new value; readers never see a partial update.
type Snapshot[T any] struct{ v atomic.Pointer[T] }

// Load returns the stored value and whether one has been stored yet.
func (s *Snapshot[T]) Load() (T, bool) {
	p := s.v.Load()
	if p == nil {
		var z T
		return z, false
	}
	return *p, true
}

// Store atomically swaps in the new value.
func (s *Snapshot[T]) Store(v T) {
	s.v.Store(&v)
}
