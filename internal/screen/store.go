package screen

import "sync/atomic"

// Store publishes snapshots of T by atomic swap. Update functions must not
// modify the value they receive; they return a new one.
type Store[T any] struct {
	p atomic.Pointer[T]
}

func NewStore[T any](initial T) *Store[T] {
	s := &Store[T]{}
	s.p.Store(&initial)
	return s
}

func (s *Store[T]) Snapshot() T {
	return *s.p.Load()
}

// Update applies fn until no concurrent update gets in between and returns
// the stored result.
func (s *Store[T]) Update(fn func(T) T) T {
	for {
		old := s.p.Load()
		next := fn(*old)
		if s.p.CompareAndSwap(old, &next) {
			return next
		}
	}
}
