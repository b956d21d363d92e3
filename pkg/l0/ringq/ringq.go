// Package ringq provides a growable FIFO over one contiguous allocation.
//
// Elements live in buf[first:last]. Pushing at a full tail either compacts
// the live range back to the start of the allocation or grows it by
// reallocate-and-copy. The capacity never shrinks.
//
// Queue is not safe for concurrent use. Callers sharing a Queue between
// foreground code and interrupt context must hold their critical section
// around every call.
package ringq

const (
	// DefaultCapacity is the capacity of a Queue created with New(0).
	DefaultCapacity = 64
	// GrowDivisor sets growth to a fifth of the current capacity.
	GrowDivisor = 5
	// End is returned by Find when no element matches.
	End = -1
)

// Queue is a growable circular FIFO of comparable elements.
type Queue[T comparable] struct {
	// Limit caps the capacity. Zero means unlimited.
	Limit int

	buf   []T
	first int
	last  int
}

// New creates a Queue with the given initial capacity.
// A non-positive capacity selects DefaultCapacity.
func New[T comparable](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

// Size returns the number of queued elements.
func (q *Queue[T]) Size() int {
	return q.last - q.first
}

// Capacity returns the number of elements the allocation can hold.
func (q *Queue[T]) Capacity() int {
	return len(q.buf)
}

// Empty indicates no element is queued.
func (q *Queue[T]) Empty() bool {
	return q.first >= q.last
}

// Push appends one element and reports whether the storage was reallocated.
func (q *Queue[T]) Push(elem T) bool {
	grown := q.reserve(1)
	q.buf[q.last] = elem
	q.last++
	return grown
}

// PushN appends elems in order and reports whether the storage was reallocated.
func (q *Queue[T]) PushN(elems ...T) bool {
	if len(elems) == 0 {
		return false
	}
	grown := q.reserve(len(elems))
	q.last += copy(q.buf[q.last:], elems)
	return grown
}

// Pop removes the front element. It returns false when empty.
func (q *Queue[T]) Pop() bool {
	return q.PopN(1)
}

// PopN removes n elements from the front. Nothing is removed and false is
// returned when fewer than n elements are queued.
func (q *Queue[T]) PopN(n int) bool {
	if n < 0 || n > q.Size() {
		return false
	}
	q.discard(n)
	return true
}

// PopUntil removes everything up to and including the first element equal
// to term. Nothing is removed when term is absent.
func (q *Queue[T]) PopUntil(term T) bool {
	idx := q.Find(term)
	if idx == End {
		return false
	}
	q.discard(idx + 1)
	return true
}

// Clear removes all elements. The capacity is kept.
func (q *Queue[T]) Clear() {
	q.discard(q.Size())
	q.first, q.last = 0, 0
}

// Peek returns the front element without removing it.
func (q *Queue[T]) Peek() (elem T, ok bool) {
	if q.Empty() {
		return
	}
	return q.buf[q.first], true
}

// Pull removes and returns the front element.
func (q *Queue[T]) Pull() (elem T, ok bool) {
	if elem, ok = q.Peek(); ok {
		q.discard(1)
	}
	return
}

// PeekN copies the first n elements without removing them.
func (q *Queue[T]) PeekN(n int) ([]T, bool) {
	if n < 0 || n > q.Size() {
		return nil, false
	}
	out := make([]T, n)
	copy(out, q.buf[q.first:q.first+n])
	return out, true
}

// PullN removes and returns the first n elements. Nothing is removed when
// fewer than n elements are queued.
func (q *Queue[T]) PullN(n int) ([]T, bool) {
	out, ok := q.PeekN(n)
	if ok {
		q.discard(n)
	}
	return out, ok
}

// PeekUntil copies the elements up to and including the first one equal to term.
func (q *Queue[T]) PeekUntil(term T) ([]T, bool) {
	idx := q.Find(term)
	if idx == End {
		return nil, false
	}
	return q.PeekN(idx + 1)
}

// PullUntil removes and returns the elements up to and including the first
// one equal to term. Nothing is removed when term is absent.
func (q *Queue[T]) PullUntil(term T) ([]T, bool) {
	idx := q.Find(term)
	if idx == End {
		return nil, false
	}
	return q.PullN(idx + 1)
}

// Find returns the position of the first element equal to elem, counted
// from the front, or End.
func (q *Queue[T]) Find(elem T) int {
	for i := q.first; i < q.last; i++ {
		if q.buf[i] == elem {
			return i - q.first
		}
	}
	return End
}

// Each calls fn for every element front to back until fn returns false.
func (q *Queue[T]) Each(fn func(T) bool) {
	for i := q.first; i < q.last; i++ {
		if !fn(q.buf[i]) {
			return
		}
	}
}

// Normalize grows the allocation when the queue is at least 80% full,
// otherwise moves the live range to the start of the allocation.
// It returns false when nothing had to be done.
func (q *Queue[T]) Normalize() bool {
	if q.nearlyFull() {
		q.grow(q.growth(0))
		return true
	}
	if q.first == 0 {
		return false
	}
	q.compact()
	return true
}

// reserve makes room for n more elements at the tail.
func (q *Queue[T]) reserve(n int) bool {
	if len(q.buf)-q.last >= n {
		return false
	}
	free := q.Capacity() - q.Size()
	if free >= n && !q.nearlyFull() {
		q.compact()
		return false
	}
	q.grow(q.growth(n))
	return true
}

// nearlyFull reports a live fraction of at least 80%.
func (q *Queue[T]) nearlyFull() bool {
	return q.Size()*5 >= q.Capacity()*4
}

func (q *Queue[T]) growth(n int) int {
	by := (q.Capacity() + GrowDivisor - 1) / GrowDivisor
	if by < n {
		by = n
	}
	if by < 1 {
		by = 1
	}
	return by
}

func (q *Queue[T]) grow(by int) {
	size := q.Size()
	capacity := len(q.buf) + by
	if capacity < len(q.buf) || (q.Limit > 0 && capacity > q.Limit) {
		panic(&AllocationError{Requested: capacity, Limit: q.Limit})
	}
	buf := make([]T, capacity)
	copy(buf, q.buf[q.first:q.last])
	q.buf, q.first, q.last = buf, 0, size
}

func (q *Queue[T]) compact() {
	size := copy(q.buf, q.buf[q.first:q.last])
	q.zero(size, q.last)
	q.first, q.last = 0, size
}

func (q *Queue[T]) discard(n int) {
	q.zero(q.first, q.first+n)
	q.first += n
	if q.first == q.last {
		q.first, q.last = 0, 0
	}
}

// zero drops references held by vacated slots.
func (q *Queue[T]) zero(from, to int) {
	var zero T
	for i := from; i < to; i++ {
		q.buf[i] = zero
	}
}
