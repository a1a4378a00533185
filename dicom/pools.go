// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dicom

import (
	"math/bits"
	"sync/atomic"
)

// Default sizing of the process-wide pools. The per-parse knobs (pipe block,
// bump block, large value threshold) are configurable through ParseOptions.
const (
	defaultPipeBlockSize       = 1 << 20
	defaultBumpBlockSize       = 16 << 10
	defaultLargeValueThreshold = 1 << 20

	minByteBucketSize = 1 << 12
	maxByteBucketSize = 1 << 20
	smallBlockRetain  = 1024

	maxLargeBlockSize = 25 << 20
	largeBlockRetain  = 32

	rootTableHint   = 256
	rootTableRetain = 64
	itemTableHint   = 16
	itemTableRetain = 256
)

// bytePool is a bucketed pool of byte blocks, the process equivalent of a
// shared array pool. Rent returns a block whose capacity is at least n,
// sliced to length n. Blocks whose capacity is not a bucket size, and returns
// beyond a bucket's retention cap, are dropped to the garbage collector.
//
// The free lists are buffered channels, so rent and return never block and
// the retention caps are hard. The retain argument is the pool-wide retention
// cap, split evenly across the buckets.
type bytePool struct {
	buckets     []chan []byte
	outstanding atomic.Int64
}

func newBytePool(retain int) *bytePool {
	n := bucketIndex(maxByteBucketSize) + 1
	perBucket := retain / n
	if perBucket < 1 {
		perBucket = 1
	}
	p := &bytePool{buckets: make([]chan []byte, n)}
	for i := range p.buckets {
		p.buckets[i] = make(chan []byte, perBucket)
	}
	return p
}

// bucketIndex returns the index of the smallest bucket holding n bytes.
func bucketIndex(n int) int {
	if n <= minByteBucketSize {
		return 0
	}
	idx := bits.Len(uint(n-1)) - 12
	return idx
}

func bucketSize(idx int) int {
	return minByteBucketSize << idx
}

func (p *bytePool) rent(n int) []byte {
	p.outstanding.Add(1)
	if n > maxByteBucketSize {
		// oversized requests bypass the buckets and are never retained
		return make([]byte, n)
	}
	idx := bucketIndex(n)
	select {
	case b := <-p.buckets[idx]:
		return b[:n]
	default:
		return make([]byte, n, bucketSize(idx))
	}
}

func (p *bytePool) giveBack(b []byte) {
	p.outstanding.Add(-1)
	c := cap(b)
	if c < minByteBucketSize || c > maxByteBucketSize {
		return
	}
	idx := bucketIndex(c)
	if bucketSize(idx) != c {
		return
	}
	select {
	case p.buckets[idx] <- b[:0]:
	default:
	}
}

// largeBlockPool retains a bounded number of large byte blocks for values of
// at least the large value threshold. Blocks above maxLargeBlockSize are
// allocated exactly and never retained.
type largeBlockPool struct {
	blocks      chan []byte
	outstanding atomic.Int64
}

func newLargeBlockPool(retain int) *largeBlockPool {
	return &largeBlockPool{blocks: make(chan []byte, retain)}
}

func (p *largeBlockPool) rent(n int) []byte {
	p.outstanding.Add(1)
	if n > maxLargeBlockSize {
		return make([]byte, n)
	}
	select {
	case b := <-p.blocks:
		if cap(b) >= n {
			return b[:n]
		}
		// too small for this value, leave it for a smaller one
		select {
		case p.blocks <- b:
		default:
		}
	default:
	}
	return make([]byte, n)
}

func (p *largeBlockPool) giveBack(b []byte) {
	p.outstanding.Add(-1)
	if cap(b) > maxLargeBlockSize {
		return
	}
	select {
	case p.blocks <- b[:0]:
	default:
	}
}

// tablePool retains data set tables. Tables are cleared when returned so the
// free list holds no references into released arenas, and the disposed mark
// stays set until the table is rented again.
type tablePool struct {
	free        chan *DataSet
	hint        int
	root        bool
	outstanding atomic.Int64
}

func newTablePool(hint, retain int, root bool) *tablePool {
	return &tablePool{free: make(chan *DataSet, retain), hint: hint, root: root}
}

func (p *tablePool) rent() *DataSet {
	p.outstanding.Add(1)
	select {
	case ds := <-p.free:
		ds.disposed = false
		return ds
	default:
		return &DataSet{
			items: make(map[DataElementTag]*DataElement, p.hint),
			root:  p.root,
		}
	}
}

func (p *tablePool) giveBack(ds *DataSet) {
	p.outstanding.Add(-1)
	for tag := range ds.items {
		delete(ds.items, tag)
	}
	ds.order = ds.order[:0]
	ds.arena = nil
	select {
	case p.free <- ds:
	default:
	}
}

// Process-wide pools shared by all parses.
var (
	smallBlocks = newBytePool(smallBlockRetain)
	largeBlocks = newLargeBlockPool(largeBlockRetain)
	rootTables  = newTablePool(rootTableHint, rootTableRetain, true)
	itemTables  = newTablePool(itemTableHint, itemTableRetain, false)
)
