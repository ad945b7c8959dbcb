// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyCleanHeap(t *testing.T) {
	a, _ := newTestAllocator(t)
	_, err := a.Verify()
	require.NoError(t, err)
}

func TestVerifyStatsCountAllocatedAndFree(t *testing.T) {
	a, h := newTestAllocator(t)
	p1, err := a.Alloc(24)
	require.NoError(t, err)
	_, err = a.Alloc(24)
	require.NoError(t, err)
	require.NoError(t, a.Free(p1))

	st, err := a.Verify()
	require.NoError(t, err)
	require.Equal(t, 1, st.AllocatedBlocks)
	require.GreaterOrEqual(t, st.FreeBlocks, 1)
	require.Equal(t, h.Size(), st.HeapBytes)
}

func TestVerifyDetectsCorruptedSize(t *testing.T) {
	a, _ := newTestAllocator(t)
	p, err := a.Alloc(24)
	require.NoError(t, err)

	h := a.headerOffsetOf(p)
	t2 := a.readTag(h)
	// Corrupt the size field directly to something that no longer sums to
	// the heap extent.
	a.writeTag(h, packTag(t2.size()+dsize, t2.prevAlloc(), t2.alloc()))

	_, err = a.Verify()
	require.Error(t, err)
	var ce *CorruptionError
	require.ErrorAs(t, err, &ce)
}

func TestVerifyDetectsTagMismatch(t *testing.T) {
	a, _ := newTestAllocator(t)
	p, err := a.Alloc(24)
	require.NoError(t, err)

	h := a.headerOffsetOf(p)
	t2 := a.readTag(h)
	// Flip prev_alloc to a value that disagrees with the actual
	// predecessor (the free remainder that back placement left in front
	// of the block).
	a.writeTag(h, t2.withPrevAlloc(!t2.prevAlloc()))

	_, err = a.Verify()
	require.Error(t, err)
	var ce *CorruptionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, CorruptTagMismatch, ce.Kind)
}

func TestVerifyDetectsBadFooter(t *testing.T) {
	a, _ := newTestAllocator(t)
	p, err := a.Alloc(24)
	require.NoError(t, err)
	require.NoError(t, a.Free(p))

	h := a.headerOffsetOf(p)
	sz := a.readTag(h).size()
	a.writeTag(footerOffset(h, sz), packTag(sz+dsize, true, false))

	_, err = a.Verify()
	require.Error(t, err)
	var ce *CorruptionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, CorruptBadFooter, ce.Kind)
}

func TestVerifyDetectsListNotClosed(t *testing.T) {
	a, _ := newTestAllocator(t)
	p, err := a.Alloc(24)
	require.NoError(t, err)
	// A second allocated block in front of p keeps the freed p from
	// merging backward into the free remainder.
	_, err = a.Alloc(24)
	require.NoError(t, err)
	require.NoError(t, a.Free(p))

	h := a.headerOffsetOf(p)
	b := bucketIndex(a.readTag(h).size())
	// Detach the block from its bucket without telling the heap walk:
	// the ring now points nowhere, and the block is still free per the
	// header/footer scan.
	a.setSegHead(b, nilOffset)

	_, err = a.Verify()
	require.Error(t, err)
	var ce *CorruptionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, CorruptListNotClosed, ce.Kind)
}

func TestCorruptionKindString(t *testing.T) {
	require.NotEmpty(t, CorruptMisaligned.String())
	require.NotEmpty(t, CorruptBadEpilogue.String())
	require.Equal(t, "unknown corruption", CorruptionKind(999).String())
}
