// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package salloc implements a general purpose dynamic storage allocator that
manages a single, contiguous heap on behalf of a host program. It exposes
three operations -- Alloc, Free and Realloc -- over an injected Heap, an
abstraction of the "sbrk-like" heap-extension primitive the allocator grows
into. The allocator maintains a consistent, coalescable map of allocated and
free storage, split across 19 segregated, size-bucketed free lists, and
serves requests with low fragmentation and low latency.

Block layout

Every block is a contiguous, D-byte aligned region (D, the "double word", is
16 bytes) whose size is a multiple of D. Every block carries a header word
at its first byte packing its size, an allocated bit and a "previous block
allocated" bit:

	header = size | (prevAlloc << 1) | alloc

Free blocks additionally carry a matching footer word at their last word,
and two link words (prev, next) forming a node in one of the segregated
free lists. Allocated blocks carry only the header; their payload begins
three words past it, i.e. payload == header + 3*wordSize. This mirrors the
classic "implicit free list with boundary tags" design (CS:APP), expanded
here with segregated, size-class-bucketed explicit free lists.

Selective coalescing

Unlike a textbook allocator that coalesces on every Free, this allocator
coalesces selectively: only blocks whose size crosses one of a handful of
empirically tuned thresholds are merged with their neighbors on free. The
thresholds are reproduced exactly from the reference workload they were
tuned against; see shouldCoalesce.

Concurrency

The allocator is single-threaded and cooperative: there is no internal
locking, and every exported method must run to completion without
concurrent calls into the same Allocator from another goroutine. Callers
needing concurrent access must provide their own mutual exclusion.
*/
package salloc
