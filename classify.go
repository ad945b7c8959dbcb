// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Request-size canonicalization and segregated-list bucket selection.
// Every threshold below is reproduced verbatim from the reference size
// ladder: these are workload-tuned magic numbers, not something to be
// re-derived or smoothed into a cleaner progression.

package salloc

// numBuckets is the number of segregated free lists, one per size class.
const numBuckets = 19

// canonicalSize rounds a caller-requested payload size up to the actual
// block size the allocator will carve out.
//
// Small requests are classified by payload size in words against a fixed
// ladder, landing many differently-sized tiny allocations in identical
// buckets. Anything at or above 129 words falls through to the general
// case, which reverts to counting in bytes: one word of header overhead
// plus the request, rounded up to dsize. That unit switch -- words for
// the ladder, bytes for the fallback -- mirrors the reference allocator
// exactly and is not a typo.
func canonicalSize(n int) int64 {
	if n <= 0 {
		n = 1
	}
	words := (int64(n) + wordSize - 1) / wordSize

	switch {
	case words <= 3:
		return 2 * dsize
	case words <= 5:
		return 3 * dsize
	case words <= 9:
		return 5 * dsize
	case words <= 17:
		return 9 * dsize
	case words <= 33:
		return 17 * dsize
	case words <= 65:
		return 33 * dsize
	case words < 129:
		return 65 * dsize
	default:
		return dsize * ((int64(n) + wordSize + dsize - 1) / dsize)
	}
}

// bucketIndex maps a block size to its segregated free list. Buckets 0-5
// are exact matches against the canonicalSize ladder's own output sizes;
// bucket 6 catches every other sub-65D size that ladder never produces
// directly (a block can still end up there via coalescing). Buckets 7-18
// are coarse ranges tuned for the reference workload.
//
// Buckets 9 and 10 are adjacent thresholds one dsize apart (256D, 257D),
// carving out a class that can only ever hold the single exact size
// 257*dsize. Reproduced verbatim per the classifier's documented oddity,
// not collapsed into bucket 9.
func bucketIndex(size int64) int {
	switch size {
	case 2 * dsize:
		return 0
	case 3 * dsize:
		return 1
	case 5 * dsize:
		return 2
	case 9 * dsize:
		return 3
	case 17 * dsize:
		return 4
	case 33 * dsize:
		return 5
	}

	switch {
	case size < 65*dsize:
		return 6
	case size <= 129*dsize:
		return 7
	case size <= 252*dsize:
		return 8
	case size <= 256*dsize:
		return 9
	case size <= 257*dsize:
		return 10
	case size <= 513*dsize:
		return 11
	case size <= 769*dsize:
		return 12
	case size <= 1015*dsize:
		return 13
	case size <= 1271*dsize:
		return 14
	case size <= 1527*dsize:
		return 15
	case size <= 1783*dsize:
		return 16
	case size <= 2039*dsize:
		return 17
	default:
		return 18
	}
}
