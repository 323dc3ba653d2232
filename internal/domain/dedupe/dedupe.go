// Package dedupe tracks record IDs a run has already analyzed so each
// opportunity is analyzed and reported once, in first-seen order.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen record IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a record whose analysis never completed can be
	// dispatched again.
	Unrecord(ctx context.Context, id string)

	// IDs returns the recorded IDs in first-seen order.
	IDs() []string

	Size() int64
}

// node is one entry of the insertion-ordered list.
type node struct {
	id         string
	prev, next *node
}

func (n *node) reset() {
	n.id = ""
	n.prev = nil
	n.next = nil
}

// inMemoryDeduper keeps IDs in a map plus a doubly linked list ordered by
// first sighting. It never evicts: forgetting an analyzed ID would have it
// analyzed and reported twice.
type inMemoryDeduper struct {
	mu         sync.RWMutex
	seen       map[string]*node
	head, tail *node
	size       atomic.Int64
	nodePool   sync.Pool
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper() Deduper {
	d := &inMemoryDeduper{seen: make(map[string]*node)}
	d.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	n := d.nodePool.Get().(*node)
	n.id = id
	n.prev = d.tail
	if d.tail != nil {
		d.tail.next = n
	} else {
		d.head = n
	}
	d.tail = n
	d.seen[id] = n
	d.size.Add(1)
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, exists := d.seen[id]; exists {
		d.remove(n)
	}
}

// IDs implements Deduper.
func (d *inMemoryDeduper) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.seen))
	for n := d.head; n != nil; n = n.next {
		out = append(out, n.id)
	}
	return out
}

// remove unlinks n and returns it to the pool. Must be called with d.mu held.
func (d *inMemoryDeduper) remove(n *node) {
	delete(d.seen, n.id)
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
