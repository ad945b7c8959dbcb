// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestMemHeapExtend(t *testing.T) {
	h := NewMemHeap(1024)
	require.Equal(t, int64(0), h.Size())
	require.Equal(t, int64(1024), h.Cap())

	p, err := h.Extend(64)
	require.NoError(t, err)
	require.Equal(t, h.Lo(), p)
	require.Equal(t, int64(64), h.Size())

	q, err := h.Extend(64)
	require.NoError(t, err)
	require.Equal(t, unsafe.Add(h.Lo(), 64), q)
	require.Equal(t, int64(128), h.Size())
}

func TestMemHeapOOM(t *testing.T) {
	h := NewMemHeap(128)
	_, err := h.Extend(64)
	require.NoError(t, err)

	_, err = h.Extend(65)
	require.Error(t, err)
	var oom *OOMError
	require.ErrorAs(t, err, &oom)
	require.Equal(t, int64(65), oom.Requested)

	// A failed Extend must not have moved the cursor.
	require.Equal(t, int64(64), h.Size())
}

func TestMemHeapNegativeExtend(t *testing.T) {
	h := NewMemHeap(128)
	_, err := h.Extend(-1)
	require.Error(t, err)
	var ia *InvalidArgumentError
	require.ErrorAs(t, err, &ia)
}

func TestMemHeapStablePointers(t *testing.T) {
	h := NewMemHeap(1 << 20)
	p, err := h.Extend(wordSize)
	require.NoError(t, err)
	*(*uint64)(p) = 0xdeadbeef

	// Growing the heap must never move previously handed-out addresses.
	for i := 0; i < 100; i++ {
		_, err := h.Extend(wordSize)
		require.NoError(t, err)
	}
	require.Equal(t, uint64(0xdeadbeef), *(*uint64)(p))
}
