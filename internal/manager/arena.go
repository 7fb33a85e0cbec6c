package manager

// handle addresses a slot in an arena. A handle is only valid while the
// slot's generation matches; removing a record bumps the generation, so
// handles held by references or cursors go stale instead of dangling.
// The zero handle is never valid.
type handle struct {
	index int32
	gen   uint32
}

func (h handle) isZero() bool { return h.gen == 0 }

const none int32 = -1

type slot[T any] struct {
	rec  T
	gen  uint32
	live bool
	prev int32
	next int32
}

// arena is a slot map threaded by an intrusive doubly linked list.
// List order is insertion order; records are only ever appended.
type arena[T any] struct {
	slots []slot[T]
	free  []int32
	first int32
	last  int32
	count int
}

func newArena[T any]() arena[T] {
	return arena[T]{first: none, last: none}
}

// push appends rec at the tail and returns its handle.
func (a *arena[T]) push(rec T) handle {
	var idx int32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{gen: 1})
		idx = int32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.rec = rec
	s.live = true
	s.prev = a.last
	s.next = none

	if a.last != none {
		a.slots[a.last].next = idx
	} else {
		a.first = idx
	}
	a.last = idx
	a.count++

	return handle{index: idx, gen: s.gen}
}

func (a *arena[T]) valid(h handle) bool {
	if h.isZero() || h.index < 0 || int(h.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.index]
	return s.live && s.gen == h.gen
}

func (a *arena[T]) get(h handle) (T, bool) {
	if !a.valid(h) {
		var zero T
		return zero, false
	}
	return a.slots[h.index].rec, true
}

// remove unlinks h and frees its slot. It reports false for stale handles.
func (a *arena[T]) remove(h handle) bool {
	if !a.valid(h) {
		return false
	}
	s := &a.slots[h.index]

	if s.prev != none {
		a.slots[s.prev].next = s.next
	} else {
		a.first = s.next
	}
	if s.next != none {
		a.slots[s.next].prev = s.prev
	} else {
		a.last = s.prev
	}

	var zero T
	s.rec = zero
	s.live = false
	s.prev, s.next = none, none
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.free = append(a.free, h.index)
	a.count--
	return true
}

func (a *arena[T]) handleAt(idx int32) handle {
	if idx == none {
		return handle{}
	}
	return handle{index: idx, gen: a.slots[idx].gen}
}

func (a *arena[T]) head() handle { return a.handleAt(a.first) }
func (a *arena[T]) tail() handle { return a.handleAt(a.last) }

func (a *arena[T]) next(h handle) handle {
	if !a.valid(h) {
		return handle{}
	}
	return a.handleAt(a.slots[h.index].next)
}

func (a *arena[T]) prev(h handle) handle {
	if !a.valid(h) {
		return handle{}
	}
	return a.handleAt(a.slots[h.index].prev)
}
