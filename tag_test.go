// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackTagRoundTrip(t *testing.T) {
	cases := []struct {
		size             int64
		prevAlloc, alloc bool
	}{
		{0, false, true},
		{dsize, false, true},
		{dsize, true, true},
		{32 * dsize, false, false},
		{32 * dsize, true, false},
		{2039 * dsize, true, true},
	}
	for _, c := range cases {
		tg := packTag(c.size, c.prevAlloc, c.alloc)
		require.Equal(t, c.size, tg.size())
		require.Equal(t, c.prevAlloc, tg.prevAlloc())
		require.Equal(t, c.alloc, tg.alloc())
	}
}

func TestTagWithAlloc(t *testing.T) {
	tg := packTag(5*dsize, true, true)
	free := tg.withAlloc(false)
	require.False(t, free.alloc())
	require.Equal(t, tg.size(), free.size())
	require.Equal(t, tg.prevAlloc(), free.prevAlloc())
}

func TestTagWithPrevAlloc(t *testing.T) {
	tg := packTag(5*dsize, false, true)
	updated := tg.withPrevAlloc(true)
	require.True(t, updated.prevAlloc())
	require.Equal(t, tg.size(), updated.size())
	require.Equal(t, tg.alloc(), updated.alloc())
}

func TestOffsetHelpers(t *testing.T) {
	const header = int64(1000)
	require.Equal(t, header+3*wordSize, payloadOffset(header))
	require.Equal(t, header, headerOffset(payloadOffset(header)))
	require.Equal(t, header+wordSize, prevLinkOffset(header))
	require.Equal(t, header+2*wordSize, nextLinkOffset(header))
	require.Equal(t, header+5*dsize-wordSize, footerOffset(header, 5*dsize))
}

func newTestAllocator(t *testing.T) (*Allocator, *MemHeap) {
	t.Helper()
	a, h, err := NewMemAllocator(Options{ChunkSize: 512, MaxHeapBytes: 1 << 20})
	require.NoError(t, err)
	return a, h
}

func TestReadWriteWord(t *testing.T) {
	a, _ := newTestAllocator(t)
	a.writeWord(0, 0x1122334455667788)
	require.Equal(t, uint64(0x1122334455667788), a.readWord(0))
}

func TestFreeBlockRoundTrip(t *testing.T) {
	a, _ := newTestAllocator(t)
	h := int64(prologueHeaderOffset) + dsize
	a.writeFreeBlock(h, 5*dsize, true, 42, 99)
	tg := a.readTag(h)
	require.Equal(t, int64(5*dsize), tg.size())
	require.True(t, tg.prevAlloc())
	require.False(t, tg.alloc())
	require.Equal(t, int64(42), a.prevLink(h))
	require.Equal(t, int64(99), a.nextLink(h))
	require.Equal(t, tg, a.readTag(footerOffset(h, 5*dsize)))
}

func TestLeftNeighbor(t *testing.T) {
	a, _ := newTestAllocator(t)
	h := int64(prologueHeaderOffset) + dsize
	a.writeFreeBlock(h, 5*dsize, true, nilOffset, nilOffset)

	next := h + 5*dsize
	a.writeAllocHeader(next, 3*dsize, false)

	off, size := a.leftNeighbor(next)
	require.Equal(t, h, off)
	require.Equal(t, int64(5*dsize), size)
}
