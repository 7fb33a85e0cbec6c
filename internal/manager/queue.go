package manager

// deferQueue is a FIFO of record handles whose processing has been
// postponed until the current traversal of the list has returned.
//
// Handles may go stale between enqueue and drain (the record was deleted
// or evicted in the meantime); the drain loop checks validity before use.
type deferQueue struct {
	items []handle
}

// Push appends h to the back of the queue.
func (q *deferQueue) Push(h handle) {
	q.items = append(q.items, h)
}

// TryPop removes and returns the front handle.
// Returns false when the queue is empty.
func (q *deferQueue) TryPop() (handle, bool) {
	if len(q.items) == 0 {
		return handle{}, false
	}
	h := q.items[0]
	q.items[0] = handle{}
	q.items = q.items[1:]
	return h, true
}

// Len returns the number of queued handles.
func (q *deferQueue) Len() int {
	return len(q.items)
}

// Drop discards everything queued.
func (q *deferQueue) Drop() {
	q.items = nil
}
