// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// An in-process, memory-only implementation of Heap.

package salloc

import (
	"fmt"
	"unsafe"
)

// MemHeap is a Heap backed by a single, fixed-capacity byte arena. The
// arena is allocated in full up front -- standing in for a reserved but
// not-yet-committed range of virtual address space, bounded by a maximum
// heap size the way a real sbrk-style allocator is bounded by its own
// ceiling -- so that Extend never moves the underlying array and every
// unsafe.Pointer it has ever handed out stays valid for the MemHeap's
// lifetime.
type MemHeap struct {
	arena []byte
	end   int
}

var _ Heap = (*MemHeap)(nil)

// NewMemHeap returns a MemHeap whose heap may grow up to maxBytes before
// Extend starts reporting out-of-memory errors.
func NewMemHeap(maxBytes int) *MemHeap {
	if maxBytes <= 0 {
		panic("salloc: NewMemHeap: maxBytes must be positive")
	}

	return &MemHeap{arena: make([]byte, maxBytes)}
}

// Lo implements Heap.
func (h *MemHeap) Lo() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(h.arena))
}

// Hi implements Heap.
func (h *MemHeap) Hi() unsafe.Pointer {
	return unsafe.Add(h.Lo(), h.end)
}

// Size reports the heap's current size in bytes (Hi - Lo).
func (h *MemHeap) Size() int64 { return int64(h.end) }

// Cap reports the maximum size in bytes the heap may ever grow to.
func (h *MemHeap) Cap() int64 { return int64(len(h.arena)) }

// Extend implements Heap.
func (h *MemHeap) Extend(n int) (unsafe.Pointer, error) {
	if n < 0 {
		return nil, &InvalidArgumentError{Msg: "MemHeap.Extend: negative size", Arg: n}
	}

	if h.end+n > len(h.arena) {
		return nil, &OOMError{Requested: int64(n)}
	}

	base := unsafe.Add(h.Lo(), h.end)
	h.end += n
	return base, nil
}

func (h *MemHeap) String() string {
	return fmt.Sprintf("MemHeap{size: %d, cap: %d}", h.end, len(h.arena))
}
