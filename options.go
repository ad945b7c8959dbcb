// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

// Options are passed to New/NewMemAllocator to amend the allocator's
// default behavior: a plain struct of knobs, safe to pass as a literal,
// defaulted wherever the zero value isn't meaningful.
type Options struct {
	// ChunkSize overrides CHUNKSIZE, the number of bytes the heap is
	// extended by on initialization and on a malloc miss. Zero means the
	// reference value of 4112 bytes.
	ChunkSize int

	// MaxHeapBytes bounds how large NewMemAllocator's backing MemHeap may
	// grow before Alloc/Realloc start reporting OOM. Zero means a 64 MiB
	// ceiling. Unused by New, whose Heap is supplied by the caller and
	// owns its own ceiling.
	MaxHeapBytes int

	// Debug, when true, runs Verify after every Alloc, Free and Realloc
	// and turns any finding into a CorruptionError instead of returning
	// successfully.
	Debug bool
}

const (
	defaultChunkSize    = 4112
	defaultMaxHeapBytes = 64 << 20
)

func (o Options) chunkSize() int64 {
	if o.ChunkSize > 0 {
		return int64(o.ChunkSize)
	}

	return defaultChunkSize
}

func (o Options) maxHeapBytes() int {
	if o.MaxHeapBytes > 0 {
		return o.MaxHeapBytes
	}

	return defaultMaxHeapBytes
}
