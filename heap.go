// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import "unsafe"

// A Heap is the external heap-extension collaborator the Allocator core
// depends on but does not implement: the core is written entirely
// against this interface and never against a concrete backing store, so a
// host program can swap in whatever actually owns the bytes (a flat
// process-local arena, an mmap'd region, a test double that fails on
// command, ...).
//
// A Heap is not safe for concurrent use, matching the single-threaded,
// cooperative concurrency model of the Allocator that sits on top of it.
type Heap interface {
	// Extend grows the heap by n bytes and returns the address of the
	// first byte of the new region -- the former heap end -- or an error
	// if the heap could not be grown (out of memory). n must be >= 0.
	Extend(n int) (unsafe.Pointer, error)

	// Lo returns the address of the first byte of the heap. It never
	// changes for the lifetime of a Heap.
	Lo() unsafe.Pointer

	// Hi returns the address one byte past the last byte of the heap.
	// It advances by exactly n after a successful Extend(n).
	Hi() unsafe.Pointer
}
