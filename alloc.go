// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The Allocator itself: initialization, heap growth, the placement
// engine, selective coalescing, and the three public operations (Alloc,
// Free, Realloc). All state lives in the managed heap; errors are
// returned values rather than sentinel pointers.

package salloc

import (
	"unsafe"

	"github.com/cznic/mathutil"
)

// Heap layout offsets, low to high:
//
//	0                     padding word
//	segTableOffset (8)    19 bucket-head words
//	160                   one more alignment-padding word
//	prologueHeaderOffset  prologue header (size=D, prev_alloc=0, alloc=1)
//	prologueFooterOffset  prologue footer, duplicate of the header
//	initialEpilogueOffset epilogue header (size=0, alloc=1), moves as the heap grows
//
// The word at offset 160 is not idle bookkeeping: payload must land at
// header+3W and satisfy (payload mod dsize)==0, which forces the
// prologue header itself to sit at an offset congruent to 8 (mod 16),
// not 0. Without this extra word the header would land on a 16-byte
// boundary and every payload in the heap would be misaligned by one
// word.
const (
	prologueHeaderOffset  = segTableOffset + numBuckets*wordSize + wordSize // 168
	prologueFooterOffset  = prologueHeaderOffset + dsize - wordSize         // 176
	initialEpilogueOffset = prologueFooterOffset + wordSize                // 184
	headerRegionSize      = initialEpilogueOffset + wordSize               // 192
)

// Allocator manages a single contiguous heap on behalf of a host program
// via segregated free lists and boundary-tag coalescing. It is not safe
// for concurrent use: every entry point assumes exclusive access to its
// Heap for the duration of the call, and callers needing concurrent
// access must provide their own external synchronization.
type Allocator struct {
	heap      Heap
	base      unsafe.Pointer
	chunkSize int64
	debug     bool
}

// New wraps an existing Heap collaborator with allocator state: seg
// table, prologue/epilogue sentinels, and the first free block.
func New(heap Heap, opts Options) (*Allocator, error) {
	if unsafe.Sizeof(uintptr(0)) != wordSize {
		return nil, &InvalidArgumentError{Msg: "salloc: unsupported architecture, want 8-byte words", Arg: unsafe.Sizeof(uintptr(0))}
	}

	a := &Allocator{heap: heap, chunkSize: opts.chunkSize(), debug: opts.Debug}
	if err := a.init(); err != nil {
		return nil, err
	}
	return a, nil
}

// NewMemAllocator is the common case: an Allocator over a fresh,
// process-local MemHeap sized per opts.
func NewMemAllocator(opts Options) (*Allocator, *MemHeap, error) {
	heap := NewMemHeap(opts.maxHeapBytes())
	a, err := New(heap, opts)
	if err != nil {
		return nil, nil, err
	}
	return a, heap, nil
}

func roundToDsize(n int64) int64 {
	return ((n + dsize - 1) / dsize) * dsize
}

func (a *Allocator) init() error {
	p, err := a.heap.Extend(headerRegionSize)
	if err != nil {
		return err
	}
	a.base = p

	prologue := packTag(dsize, false, true)
	a.writeTag(prologueHeaderOffset, prologue)
	a.writeTag(prologueFooterOffset, prologue)
	// The prologue is always allocated, so the placeholder epilogue that
	// growHeap is about to fold into the heap's first real block must
	// start life already claiming an allocated predecessor.
	a.writeTag(initialEpilogueOffset, packTag(0, true, true))

	if _, err := a.growHeap(a.chunkSize, false); err != nil {
		return err
	}
	return nil
}

// growHeap extends the backing Heap by at least n bytes (rounded up to
// dsize), folds the old epilogue into a new free block, writes a fresh
// epilogue at the new heap end, optionally coalesces the new block with
// whatever precedes it, and always inserts the result into its bucket.
// coalesceFirst is false for the one-time call from init and true when
// growing on an Alloc miss, where the new space may abut an existing
// free block at the old heap's tail.
func (a *Allocator) growHeap(n int64, coalesceFirst bool) (int64, error) {
	n = roundToDsize(n)

	// The new block's header reuses the word that used to be the
	// epilogue header, one word before the heap's current end; the new
	// epilogue then lands in the last word of the freshly extended
	// region. Net new free-block bytes: n, exactly what was requested --
	// one pre-existing word is repurposed as header, one of the n new
	// words is consumed by the fresh epilogue.
	h := a.offsetOf(a.heap.Hi()) - wordSize
	epiloguePrevAlloc := a.readTag(h).prevAlloc()

	if _, err := a.heap.Extend(int(n)); err != nil {
		return nilOffset, err
	}

	a.writeFreeBlock(h, n, epiloguePrevAlloc, nilOffset, nilOffset)
	a.writeTag(h+n, packTag(0, false, true))

	if coalesceFirst {
		h = a.coalesce(h)
	}
	a.insertFree(h)
	return h, nil
}

// findFit searches buckets from bucketIndex(asize) upward, returning the
// payload-ready header of a placed block, or nilOffset if no bucket has
// a block large enough. The head of each candidate bucket is checked
// first as a fast path; failing that, the ring is walked until back at
// the head.
func (a *Allocator) findFit(asize int64) int64 {
	for b := bucketIndex(asize); b < numBuckets; b++ {
		head := a.segHead(b)
		if head == nilOffset {
			continue
		}
		if a.readTag(head).size() >= asize {
			return a.place(head, asize)
		}
		for h := a.nextLink(head); h != head; h = a.nextLink(h) {
			if a.readTag(h).size() >= asize {
				return a.place(h, asize)
			}
		}
	}
	return nilOffset
}

// splitThreshold (9*dsize) is the minimum size a remainder must have to
// be carved off as its own free block. It is well above minBlockSize
// (2*dsize): a smaller remainder stays inside the allocated block.
const splitThreshold = 9 * dsize

// frontBackThreshold (33*dsize) decides, when a block does split, which
// half the caller's allocation lands in: small requests are placed at
// the back of the original block (leaving the front free), large
// requests at the front (leaving the back free).
const frontBackThreshold = 33 * dsize

// place removes block h from its bucket and carves out a user block of
// size asize from it. It returns the header of the resulting allocated
// block (which may not be h, in the small-request/back-placement case).
func (a *Allocator) place(h, asize int64) int64 {
	a.removeFree(h)

	t := a.readTag(h)
	csize := t.size()
	prevAlloc := t.prevAlloc()
	remainder := csize - asize

	switch {
	case asize < frontBackThreshold && remainder >= splitThreshold:
		a.writeFreeBlock(h, remainder, prevAlloc, nilOffset, nilOffset)
		a.insertFree(h)
		userH := h + remainder
		a.writeAllocHeader(userH, asize, false)
		a.setPrevAllocBit(userH+asize, true)
		return userH

	case asize >= frontBackThreshold && remainder >= splitThreshold:
		a.writeAllocHeader(h, asize, prevAlloc)
		freeH := h + asize
		a.writeFreeBlock(freeH, remainder, true, nilOffset, nilOffset)
		a.insertFree(freeH)
		return h

	default:
		a.writeAllocHeader(h, csize, prevAlloc)
		a.setPrevAllocBit(h+csize, true)
		return h
	}
}

// coalesceSmallMax/coalesceLargeMin/coalesceMidRange* bound the
// selective-coalescing size gate: the free path merges boundary tags
// only for very small blocks, blocks exactly CHUNKSIZE in size, very
// large blocks, or a narrow mid-range band. Everything else is freed
// without merging, trading a missed coalescing opportunity for cheaper
// Free calls on the sizes that dominate a typical workload.
const (
	coalesceSmallMax  = 9 * dsize
	coalesceLargeMin  = 1527 * dsize
	coalesceMidRangeLo = 625 * dsize
	coalesceMidRangeHi = 844 * dsize
	mergeGateThreshold = 17 * dsize
)

func (a *Allocator) shouldCoalesce(size int64) bool {
	switch {
	case size <= coalesceSmallMax:
		return true
	case size == a.chunkSize:
		return true
	case size > coalesceLargeMin:
		return true
	case size >= coalesceMidRangeLo && size <= coalesceMidRangeHi:
		return true
	default:
		return false
	}
}

// coalesce merges freshly-freed block h with whichever of its two
// neighbors are free and "large enough" (> mergeGateThreshold) to be
// worth merging, switching on the (prev alloc, next alloc) state of its
// two neighbors. h must already have been written as a free block by the
// caller; coalesce never inserts its result into a bucket -- that's left
// to the caller, which may want to coalesce first and only then decide
// the final bucket.
//
// Only the (prev alloc, next alloc) case and the (prev free, next alloc)
// merge clear the successor's prev_alloc bit here; the no-merge branches
// leave it as it was. Free clears it after coalesce returns, for every
// freed block, merged or not.
func (a *Allocator) coalesce(h int64) int64 {
	t := a.readTag(h)
	prevAlloc := t.prevAlloc()
	size := t.size()
	nextH := h + size
	nextAlloc := a.readTag(nextH).alloc()

	switch {
	case prevAlloc && nextAlloc:
		a.setPrevAllocBit(nextH, false)
		return h

	case prevAlloc && !nextAlloc:
		nextSize := a.readTag(nextH).size()
		if nextSize <= mergeGateThreshold {
			return h
		}
		a.removeFree(nextH)
		size += nextSize
		a.writeFreeBlock(h, size, true, nilOffset, nilOffset)
		return h

	case !prevAlloc && nextAlloc:
		prevOff, prevSize := a.leftNeighbor(h)
		if prevSize <= mergeGateThreshold {
			return h
		}
		a.removeFree(prevOff)
		size += prevSize
		prevPrevAlloc := a.readTag(prevOff).prevAlloc()
		a.writeFreeBlock(prevOff, size, prevPrevAlloc, nilOffset, nilOffset)
		a.setPrevAllocBit(prevOff+size, false)
		return prevOff

	default: // !prevAlloc && !nextAlloc
		prevOff, prevSize := a.leftNeighbor(h)
		nextSize := a.readTag(nextH).size()
		if prevSize <= mergeGateThreshold || nextSize <= mergeGateThreshold {
			return h
		}
		a.removeFree(prevOff)
		a.removeFree(nextH)
		size += prevSize + nextSize
		prevPrevAlloc := a.readTag(prevOff).prevAlloc()
		a.writeFreeBlock(prevOff, size, prevPrevAlloc, nilOffset, nilOffset)
		return prevOff
	}
}

// Alloc serves n payload bytes, or returns (nil, nil) for n == 0.
func (a *Allocator) Alloc(n int) (unsafe.Pointer, error) {
	if n == 0 {
		return nil, nil
	}
	if n < 0 {
		return nil, &InvalidArgumentError{Msg: "Alloc: negative size", Arg: n}
	}

	asize := canonicalSize(n)

	if h := a.findFit(asize); h != nilOffset {
		return a.postOp(a.payloadPtr(h))
	}

	h, err := a.growHeap(mathutil.MaxInt64(asize, a.chunkSize), true)
	if err != nil {
		return nil, err
	}
	h = a.place(h, asize)
	return a.postOp(a.payloadPtr(h))
}

// Free releases the block p, a pointer previously returned by Alloc or
// Realloc. Free(nil) is a no-op.
func (a *Allocator) Free(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}

	h := a.headerOffsetOf(p)
	t := a.readTag(h)
	if !t.alloc() {
		return &InvalidArgumentError{Msg: "Free: double free or invalid pointer", Arg: p}
	}

	size := t.size()
	a.writeFreeBlock(h, size, t.prevAlloc(), nilOffset, nilOffset)

	if a.shouldCoalesce(size) {
		h = a.coalesce(h)
	}
	// Merged or not, the block after h now has a free predecessor.
	a.setPrevAllocBit(h+a.readTag(h).size(), false)
	a.insertFree(h)

	_, err := a.postOp(nil)
	return err
}

// Realloc resizes the block p to hold at least n payload bytes,
// preserving its contents up to the smaller of the old and new sizes.
// Realloc(p, 0) frees p and returns nil. Realloc(nil, n) behaves as
// Alloc(n).
func (a *Allocator) Realloc(p unsafe.Pointer, n int) (unsafe.Pointer, error) {
	if n == 0 {
		return nil, a.Free(p)
	}
	if p == nil {
		return a.Alloc(n)
	}
	if n < 0 {
		return nil, &InvalidArgumentError{Msg: "Realloc: negative size", Arg: n}
	}

	h := a.headerOffsetOf(p)
	t := a.readTag(h)
	if !t.alloc() {
		return nil, &InvalidArgumentError{Msg: "Realloc: pointer not currently allocated", Arg: p}
	}

	csize := t.size()
	asize := canonicalSize(n)
	if asize <= csize {
		return p, nil
	}

	// The copy length for every branch below is min(n, csize-wordSize):
	// see DESIGN.md for why this is kept exactly at one word under csize
	// rather than adjusted for this module's header+3*wordSize payload
	// offset.
	copyLen := mathutil.MinInt64(int64(n), csize-wordSize)

	nextH := h + csize
	nextTag := a.readTag(nextH)
	nextFree := !nextTag.alloc()
	var nextSize int64
	if nextFree {
		nextSize = nextTag.size()
	}

	prevFree := !t.prevAlloc()
	var prevOff, prevSize int64
	if prevFree {
		prevOff, prevSize = a.leftNeighbor(h)
	}

	switch {
	case nextFree && csize+nextSize >= asize:
		a.removeFree(nextH)
		combined := csize + nextSize
		a.writeAllocHeader(h, combined, t.prevAlloc())
		a.setPrevAllocBit(h+combined, true)
		return a.postOp(p)

	case prevFree && csize+prevSize >= asize:
		a.removeFree(prevOff)
		combined := prevSize + csize
		prevPrevAlloc := a.readTag(prevOff).prevAlloc()
		a.writeAllocHeader(prevOff, combined, prevPrevAlloc)
		newP := a.payloadPtr(prevOff)
		// newP trails the old payload by prevSize bytes, not csize: the
		// absorbed predecessor's own size, whatever that happens to be.
		a.movePayload(newP, p, copyLen)
		return a.postOp(newP)

	case prevFree && nextFree && csize+prevSize+nextSize >= asize:
		a.removeFree(prevOff)
		a.removeFree(nextH)
		combined := prevSize + csize + nextSize
		prevPrevAlloc := a.readTag(prevOff).prevAlloc()
		a.writeAllocHeader(prevOff, combined, prevPrevAlloc)
		a.setPrevAllocBit(prevOff+combined, true)
		newP := a.payloadPtr(prevOff)
		a.movePayload(newP, p, copyLen)
		return a.postOp(newP)

	default:
		newP, err := a.Alloc(n)
		if err != nil {
			return nil, err
		}
		a.movePayload(newP, p, copyLen)
		if err := a.Free(p); err != nil {
			return nil, err
		}
		return newP, nil
	}
}

// movePayload relocates n bytes from src to dst, which may overlap, as
// they do in the prev-only and prev+next realloc branches. Go's builtin
// copy is specified to behave correctly on overlapping slices backed by
// the same array, so no explicit direction check is needed.
func (a *Allocator) movePayload(dst, src unsafe.Pointer, n int64) {
	if n <= 0 {
		return
	}
	d := unsafe.Slice((*byte)(dst), n)
	s := unsafe.Slice((*byte)(src), n)
	copy(d, s)
}

// postOp runs the debug consistency checker after a mutating operation
// when Options.Debug was set, turning the first inconsistency it finds
// into the operation's error.
func (a *Allocator) postOp(p unsafe.Pointer) (unsafe.Pointer, error) {
	if !a.debug {
		return p, nil
	}
	if _, err := a.Verify(); err != nil {
		return nil, err
	}
	return p, nil
}
