// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Segregated free lists: the seg table of bucket heads, persisted inside
// the managed heap itself, and the circular doubly-linked list each head
// points into. New free blocks are inserted at the ring's tail and found
// by searching from the head, giving FIFO-within-a-bucket ordering.
// Keeping the bucket heads in the heap's own low memory rather than a
// separate Go-side slice means the free-list state survives exactly as
// the rest of the managed heap does, with no separate persistence path.

package salloc

// segTableOffset is where the seg table begins: right after the single
// padding word reserved so the heap's first real payload lands
// D-aligned.
const segTableOffset = wordSize

// nilOffset marks an empty bucket. Offset 0 is the padding word, never a
// valid block header, so it doubles safely as the "no block" sentinel.
const nilOffset = 0

func (a *Allocator) segHead(bucket int) int64 {
	return int64(a.readWord(segTableOffset + int64(bucket)*wordSize))
}

func (a *Allocator) setSegHead(bucket int, h int64) {
	a.writeWord(segTableOffset+int64(bucket)*wordSize, uint64(h))
}

// insertFree threads block h into its size class's ring. An empty
// bucket gets h as a singleton, self-linked both ways. Otherwise h is
// spliced in immediately before the current head -- i.e. at the ring's
// tail -- without moving the head pointer, so list traversal during
// findFit sees blocks in roughly insertion order.
func (a *Allocator) insertFree(h int64) {
	b := bucketIndex(a.readTag(h).size())
	head := a.segHead(b)

	if head == nilOffset {
		a.setPrevLink(h, h)
		a.setNextLink(h, h)
		a.setSegHead(b, h)
		return
	}

	tail := a.prevLink(head)
	a.setNextLink(tail, h)
	a.setPrevLink(h, tail)
	a.setNextLink(h, head)
	a.setPrevLink(head, h)
}

// removeFree splices block h out of whichever ring it currently sits on.
// h's bucket is derived from its own header, which must still be intact
// (removeFree itself never touches it).
func (a *Allocator) removeFree(h int64) {
	b := bucketIndex(a.readTag(h).size())
	prev := a.prevLink(h)
	next := a.nextLink(h)

	if prev == h {
		// singleton: h was its own prev/next.
		a.setSegHead(b, nilOffset)
		return
	}

	a.setNextLink(prev, next)
	a.setPrevLink(next, prev)
	if a.segHead(b) == h {
		a.setSegHead(b, next)
	}
}
