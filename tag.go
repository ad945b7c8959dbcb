// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Block tag algebra: the in-band header/footer word, its bit layout, and
// the address arithmetic relating a block's header, footer and payload.
// A tag packs a block's size into its high bits with two status bits (own
// alloc state, predecessor's alloc state) in the low bits, replacing the
// usual header+footer pair of words with a single shared encoding.

package salloc

import "unsafe"

const (
	// wordSize is the machine word size this module targets. Fixed at 8
	// (64-bit hosts only): unsafe.Pointer-based Go programs run on
	// 64-bit targets in practice, and there is no portable way to derive
	// "pointer size in words" other than unsafe.Sizeof(uintptr(0)),
	// which New uses only to assert this assumption, not to
	// branch on it.
	wordSize = 8
	// dsize is D, the alignment granularity (two words).
	dsize = 2 * wordSize

	allocBit     = uint64(1)
	prevAllocBit = uint64(1) << 1
	sizeMask     = ^uint64(dsize - 1)

	// minBlockSize is the smallest block an allocated or free region may
	// ever be: header + prevLink + nextLink + footer.
	minBlockSize = 4 * wordSize // == 2*dsize
)

// tag is one packed header/footer word: size in the high bits, prevAlloc
// and alloc in the low two.
type tag uint64

func packTag(size int64, prevAlloc, alloc bool) tag {
	v := uint64(size) & sizeMask
	if prevAlloc {
		v |= prevAllocBit
	}
	if alloc {
		v |= allocBit
	}
	return tag(v)
}

func (t tag) size() int64      { return int64(uint64(t) & sizeMask) }
func (t tag) alloc() bool      { return uint64(t)&allocBit != 0 }
func (t tag) prevAlloc() bool  { return uint64(t)&prevAllocBit != 0 }
func (t tag) withAlloc(v bool) tag     { return packTag(t.size(), t.prevAlloc(), v) }
func (t tag) withPrevAlloc(v bool) tag { return packTag(t.size(), v, t.alloc()) }

// headerOffset and payloadOffset convert between a block's header offset
// and the payload pointer offset a caller sees, per the documented
// invariant: payload == header + 3*wordSize.
func headerOffset(payload int64) int64  { return payload - 3*wordSize }
func payloadOffset(header int64) int64  { return header + 3*wordSize }
func footerOffset(header, size int64) int64 { return header + size - wordSize }
func prevLinkOffset(header int64) int64 { return header + wordSize }
func nextLinkOffset(header int64) int64 { return header + 2*wordSize }

// ptr and offsetOf translate between heap-relative byte offsets and real
// addresses. All bookkeeping (sizes, links, bucket indices) is done in
// offsets from a.base, the heap's Lo address captured once at init (a
// Heap's Lo never changes); real unsafe.Pointer values are materialized
// only at the moment a word is actually read or written, or handed back
// across the public API.
func (a *Allocator) ptr(off int64) unsafe.Pointer { return unsafe.Add(a.base, uintptr(off)) }

func (a *Allocator) offsetOf(p unsafe.Pointer) int64 {
	return int64(uintptr(p) - uintptr(a.base))
}

func (a *Allocator) readWord(off int64) uint64  { return *(*uint64)(a.ptr(off)) }
func (a *Allocator) writeWord(off int64, v uint64) { *(*uint64)(a.ptr(off)) = v }

func (a *Allocator) readTag(off int64) tag     { return tag(a.readWord(off)) }
func (a *Allocator) writeTag(off int64, t tag) { a.writeWord(off, uint64(t)) }

func (a *Allocator) prevLink(h int64) int64 { return int64(a.readWord(prevLinkOffset(h))) }
func (a *Allocator) nextLink(h int64) int64 { return int64(a.readWord(nextLinkOffset(h))) }
func (a *Allocator) setPrevLink(h, p int64) { a.writeWord(prevLinkOffset(h), uint64(p)) }
func (a *Allocator) setNextLink(h, n int64) { a.writeWord(nextLinkOffset(h), uint64(n)) }

// writeFreeBlock (re)writes a block as free: header, footer and both link
// words. The caller is responsible for inserting it into its bucket.
func (a *Allocator) writeFreeBlock(h, size int64, prevAlloc bool, prev, next int64) {
	t := packTag(size, prevAlloc, false)
	a.writeTag(h, t)
	a.setPrevLink(h, prev)
	a.setNextLink(h, next)
	a.writeTag(footerOffset(h, size), t)
}

// writeAllocHeader (re)writes a block as allocated. Allocated blocks carry
// no footer and no links; the two link words remain reserved, undefined
// bytes between the header and the payload until the block is freed
// again.
func (a *Allocator) writeAllocHeader(h, size int64, prevAlloc bool) {
	a.writeTag(h, packTag(size, prevAlloc, true))
}

// setPrevAllocBit rewrites h's prev_alloc bit; when h is a free block its
// footer is rewritten too, so header and footer keep matching.
func (a *Allocator) setPrevAllocBit(h int64, v bool) {
	t := a.readTag(h).withPrevAlloc(v)
	a.writeTag(h, t)
	if !t.alloc() {
		a.writeTag(footerOffset(h, t.size()), t)
	}
}

// headerOffsetOf and payloadPtr cross the host<->heap boundary: a public
// method receives/returns unsafe.Pointer, everything internal works in
// offsets.
func (a *Allocator) headerOffsetOf(p unsafe.Pointer) int64 { return headerOffset(a.offsetOf(p)) }
func (a *Allocator) payloadPtr(h int64) unsafe.Pointer      { return a.ptr(payloadOffset(h)) }

// leftNeighbor returns the header offset and size of h's left (lower
// address) neighbor, which is only addressable -- via its footer, one
// word below h -- when that neighbor is free. Callers must check
// !header(h).prevAlloc() before calling.
func (a *Allocator) leftNeighbor(h int64) (leftOff, leftSize int64) {
	leftSize = a.readTag(h - wordSize).size()
	leftOff = h - leftSize
	return
}
