// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import "fmt"

// OOMError is returned when the Heap collaborator refused to grow. It
// surfaces as a nil pointer from Alloc/Realloc, or as the error return
// of New.
type OOMError struct {
	Requested int64 // bytes the allocator attempted to extend the heap by
}

func (e *OOMError) Error() string {
	return fmt.Sprintf("salloc: out of memory: heap extension by %d bytes refused", e.Requested)
}

// InvalidArgumentError reports a usage error detectable without having to
// trust (or further corrupt) allocator state, e.g. a negative size, or a
// pointer handed to Free/Realloc whose header is not marked allocated.
type InvalidArgumentError struct {
	Msg string
	Arg interface{}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("salloc: invalid argument: %s (%v)", e.Msg, e.Arg)
}

// CorruptionKind classifies what Verify found wrong with the heap.
type CorruptionKind int

const (
	// CorruptMisaligned: a payload pointer is not a multiple of D.
	CorruptMisaligned CorruptionKind = iota
	// CorruptTagMismatch: block.alloc disagrees with successor.prevAlloc.
	CorruptTagMismatch
	// CorruptBadFooter: a free block's footer word disagrees with its header.
	CorruptBadFooter
	// CorruptBadBucket: a block found in seg list i doesn't belong there.
	CorruptBadBucket
	// CorruptListNotClosed: a circular free list fails to close on itself.
	CorruptListNotClosed
	// CorruptBadEpilogue: the epilogue header is missing or malformed.
	CorruptBadEpilogue
	// CorruptSizeMismatch: the sum of walked block sizes doesn't match the heap extent.
	CorruptSizeMismatch
)

func (k CorruptionKind) String() string {
	switch k {
	case CorruptMisaligned:
		return "misaligned pointer"
	case CorruptTagMismatch:
		return "alloc/prevAlloc tag mismatch"
	case CorruptBadFooter:
		return "free block header/footer mismatch"
	case CorruptBadBucket:
		return "free block in wrong bucket"
	case CorruptListNotClosed:
		return "free list does not close"
	case CorruptBadEpilogue:
		return "malformed epilogue"
	case CorruptSizeMismatch:
		return "block sizes do not cover the heap"
	default:
		return "unknown corruption"
	}
}

// CorruptionError is returned by Verify, and by Alloc/Free/Realloc when
// Options.Debug is set, the instant the heap metadata is found to be
// inconsistent.
type CorruptionError struct {
	Kind   CorruptionKind
	Offset int64 // heap offset (relative to Heap.Lo()) of the offending block
	Detail string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("salloc: heap corruption (%s) at offset %#x: %s", e.Kind, e.Offset, e.Detail)
}
