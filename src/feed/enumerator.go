package feed

import "sync"

// BaseDataEnumerator is a lazy, polled sequence: Advance never blocks and
// returns true until the sequence has terminated; Current may be absent
// even while Advance keeps returning true (a live, non-terminating
// sequence reporting "nothing right now").
type BaseDataEnumerator interface {
	Advance() bool
	Current() (BaseData, bool)
}

// -----------------------------------------------------------------------------
// EnqueueEnumerator (C2)
// -----------------------------------------------------------------------------

// EnqueueEnumerator is a lazy sequence backed by a mutex-protected FIFO
// queue. Enqueue is safe to call concurrently with Advance; Advance never
// blocks, yielding Current = absent when the queue is empty.
type EnqueueEnumerator struct {
	mu      sync.Mutex
	queue   []BaseData
	stopped bool
	drained bool
	current BaseData
	hasCur  bool
}

func NewEnqueueEnumerator() *EnqueueEnumerator {
	return &EnqueueEnumerator{}
}

// Enqueue appends an item. Thread-safe.
func (e *EnqueueEnumerator) Enqueue(item BaseData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = append(e.queue, item)
}

// Stop marks the enumerator for termination: once the queue drains, the
// next Advance returns false.
func (e *EnqueueEnumerator) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
}

// Advance always returns true until Stop has been called and the queue is
// drained; as a side effect it sets Current to the next dequeued item, or
// to absent if the queue is empty.
func (e *EnqueueEnumerator) Advance() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.drained {
		return false
	}

	if len(e.queue) == 0 {
		e.current = BaseData{}
		e.hasCur = false
		if e.stopped {
			e.drained = true
			return false
		}
		return true
	}

	e.current = e.queue[0]
	e.queue = e.queue[1:]
	e.hasCur = true
	return true
}

func (e *EnqueueEnumerator) Current() (BaseData, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.hasCur
}
