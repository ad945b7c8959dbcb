// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The debug consistency checker: walk every block from the prologue to
// the epilogue checking each block's header/footer/tag invariants, then
// cross-check the walk's free blocks against the segregated lists.

package salloc

// Stats summarizes a successful Verify pass.
type Stats struct {
	HeapBytes       int64
	AllocatedBytes  int64
	FreeBytes       int64
	AllocatedBlocks int
	FreeBlocks      int
	Buckets         [numBuckets]int
}

// Verify walks the entire heap checking invariants I1-I8 and returns the
// first inconsistency found as a *CorruptionError. It never modifies
// heap state. Intended for tests and for Options.Debug's post-operation
// check, not the hot path: it is O(live blocks) per call.
func (a *Allocator) Verify() (Stats, error) {
	var st Stats

	heapEnd := a.offsetOf(a.heap.Hi())
	st.HeapBytes = heapEnd

	freeSeen := make(map[int64]bool)
	cur := int64(prologueHeaderOffset) + dsize // first block after the prologue
	prevAlloc := true                          // the prologue itself is allocated

	for cur < heapEnd-wordSize {
		t := a.readTag(cur)
		size := t.size()
		if size <= 0 || size%dsize != 0 {
			return st, &CorruptionError{Kind: CorruptSizeMismatch, Offset: cur, Detail: "block size is not a positive multiple of dsize"}
		}

		payload := a.payloadPtr(cur)
		if uintptr(payload)%dsize != 0 {
			return st, &CorruptionError{Kind: CorruptMisaligned, Offset: cur, Detail: "payload pointer is not dsize-aligned"}
		}
		if t.prevAlloc() != prevAlloc {
			return st, &CorruptionError{Kind: CorruptTagMismatch, Offset: cur, Detail: "prev_alloc bit disagrees with the preceding block's alloc state"}
		}

		if t.alloc() {
			st.AllocatedBytes += size
			st.AllocatedBlocks++
		} else {
			if a.readTag(footerOffset(cur, size)) != t {
				return st, &CorruptionError{Kind: CorruptBadFooter, Offset: cur, Detail: "footer does not match header"}
			}
			b := bucketIndex(size)
			if b < 0 || b >= numBuckets {
				return st, &CorruptionError{Kind: CorruptBadBucket, Offset: cur, Detail: "block size maps to an out-of-range bucket"}
			}
			st.Buckets[b]++
			st.FreeBytes += size
			st.FreeBlocks++
			freeSeen[cur] = true
		}

		prevAlloc = t.alloc()
		cur += size
	}

	if cur != heapEnd-wordSize {
		return st, &CorruptionError{Kind: CorruptSizeMismatch, Offset: cur, Detail: "block sizes do not sum exactly to the heap extent"}
	}

	epilogue := a.readTag(cur)
	if epilogue.size() != 0 || !epilogue.alloc() || epilogue.prevAlloc() != prevAlloc {
		return st, &CorruptionError{Kind: CorruptBadEpilogue, Offset: cur, Detail: "malformed epilogue header"}
	}

	for b := 0; b < numBuckets; b++ {
		head := a.segHead(b)
		if head == nilOffset {
			continue
		}

		n := head
		for count := 0; ; count++ {
			if bucketIndex(a.readTag(n).size()) != b {
				return st, &CorruptionError{Kind: CorruptBadBucket, Offset: n, Detail: "free block sits in the wrong bucket's ring"}
			}
			if !freeSeen[n] {
				return st, &CorruptionError{Kind: CorruptListNotClosed, Offset: n, Detail: "bucket ring references a block the heap walk never saw as free"}
			}
			delete(freeSeen, n)

			next := a.nextLink(n)
			if a.prevLink(next) != n {
				return st, &CorruptionError{Kind: CorruptListNotClosed, Offset: n, Detail: "ring's prev/next links disagree"}
			}
			n = next
			if n == head {
				break
			}
			if count > st.FreeBlocks {
				return st, &CorruptionError{Kind: CorruptListNotClosed, Offset: head, Detail: "ring never closes back on its head"}
			}
		}
	}

	for off := range freeSeen {
		return st, &CorruptionError{Kind: CorruptListNotClosed, Offset: off, Detail: "free block is not reachable from any bucket ring"}
	}

	return st, nil
}
