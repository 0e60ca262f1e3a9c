// SPDX-License-Identifier: EPL-2.0

package record

import "sync/atomic"

// Ring is a bounded single-producer single-consumer queue of byte chunks.
//
// Exactly one goroutine may call Push and exactly one other goroutine may
// call Front and Release. Neither side takes a lock or allocates.
type Ring struct {
	slots [][]byte
	lens  []int
	mask  uint64

	head atomic.Uint64 // next slot to write, owned by the producer
	tail atomic.Uint64 // next slot to read, owned by the consumer

	pushed    atomic.Uint64
	dropped   atomic.Uint64
	truncated atomic.Uint64
}

// NewRing allocates slots slots of slotSize bytes each. The slot count is
// rounded up to a power of two.
func NewRing(slots, slotSize int) (*Ring, error) {
	if slots <= 0 || slotSize <= 0 {
		return nil, ErrInvalidRing
	}

	n := 1
	for n < slots {
		n <<= 1
	}

	backing := make([]byte, n*slotSize)
	r := &Ring{
		slots: make([][]byte, n),
		lens:  make([]int, n),
		mask:  uint64(n - 1),
	}
	for i := range r.slots {
		r.slots[i] = backing[i*slotSize : (i+1)*slotSize : (i+1)*slotSize]
	}

	return r, nil
}

// Cap is the number of slots.
func (r *Ring) Cap() int { return len(r.slots) }

// SlotSize is the largest chunk a slot holds.
func (r *Ring) SlotSize() int { return cap(r.slots[0]) }

// Len is the number of chunks waiting to be read.
func (r *Ring) Len() int { return int(r.head.Load() - r.tail.Load()) }

// Push copies p into the next free slot. It returns false and counts a drop
// when the ring is full. Chunks longer than a slot are cut to the slot size.
func (r *Ring) Push(p []byte) bool {
	head := r.head.Load()
	if head-r.tail.Load() == uint64(len(r.slots)) {
		r.dropped.Add(1)
		return false
	}

	i := head & r.mask
	n := copy(r.slots[i][:cap(r.slots[i])], p)
	if n < len(p) {
		r.truncated.Add(1)
	}
	r.lens[i] = n

	// Publishes the slot contents to the consumer.
	r.head.Store(head + 1)
	r.pushed.Add(1)

	return true
}

// Front returns the oldest unread chunk without removing it. The slice is
// valid until Release.
func (r *Ring) Front() ([]byte, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return nil, false
	}

	i := tail & r.mask
	return r.slots[i][:r.lens[i]], true
}

// Release frees the chunk returned by the last Front call.
func (r *Ring) Release() {
	tail := r.tail.Load()
	if tail != r.head.Load() {
		r.tail.Store(tail + 1)
	}
}

// Pushed counts accepted chunks.
func (r *Ring) Pushed() uint64 { return r.pushed.Load() }

// Dropped counts chunks rejected because the ring was full.
func (r *Ring) Dropped() uint64 { return r.dropped.Load() }

// Truncated counts chunks that did not fit a slot.
func (r *Ring) Truncated() uint64 { return r.truncated.Load() }
