package service

import "sync"

// observers fans a snapshot out to registered callbacks. Callbacks run on the
// goroutine that made the change, after the owner's lock is released, and
// one at a time. A snapshot older than one already delivered is skipped, so
// subscribers never see state move backwards. Callbacks may read state but
// must not start operations on the owner synchronously.
type observers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)

	deliver sync.Mutex
	last    uint64
}

func (o *observers[T]) add(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func(T))
	}
	id := o.next
	o.next++
	o.fns[id] = fn
	return func() {
		o.mu.Lock()
		delete(o.fns, id)
		o.mu.Unlock()
	}
}

func (o *observers[T]) notify(seq uint64, v T) {
	o.deliver.Lock()
	defer o.deliver.Unlock()
	if seq <= o.last {
		return
	}
	o.last = seq

	o.mu.Lock()
	fns := make([]func(T), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
