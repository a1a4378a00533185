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

// arena owns the pooled byte blocks backing the value slices of one data set
// tree. Short values bump-allocate out of a shared block; long values get a
// dedicated block. Every rented block is registered so release can return all
// of them to their origin pools in one pass.
type arena struct {
	blocks []arenaBlock

	bump    []byte
	bumpOff int

	bumpSize       int
	largeThreshold int
}

type arenaBlock struct {
	buf   []byte
	large bool
}

func newArena(bumpSize, largeThreshold int) *arena {
	return &arena{bumpSize: bumpSize, largeThreshold: largeThreshold}
}

var emptyValue = []byte{}

// allocShort returns an n-byte slice carved out of the current bump block,
// renting a fresh block when the remainder does not fit. n comes from a
// 16-bit length field but may still exceed the bump block size, in which case
// the fresh block is sized to the value.
func (a *arena) allocShort(n int) []byte {
	if n == 0 {
		return emptyValue
	}
	if a.bump == nil || len(a.bump)-a.bumpOff < n {
		size := a.bumpSize
		if n > size {
			size = n
		}
		a.bump = smallBlocks.rent(size)
		a.bumpOff = 0
		a.blocks = append(a.blocks, arenaBlock{buf: a.bump})
	}
	v := a.bump[a.bumpOff : a.bumpOff+n : a.bumpOff+n]
	a.bumpOff += n
	return v
}

// allocLong returns an n-byte slice backed by a dedicated block, rented from
// the large pool at or above the large value threshold and from the small
// pool below it.
func (a *arena) allocLong(n int) []byte {
	if n == 0 {
		return emptyValue
	}
	if n >= a.largeThreshold {
		b := largeBlocks.rent(n)
		a.blocks = append(a.blocks, arenaBlock{buf: b, large: true})
		return b
	}
	b := smallBlocks.rent(n)
	a.blocks = append(a.blocks, arenaBlock{buf: b})
	return b
}

// release returns every registered block to its origin pool. The arena must
// not be used afterwards.
func (a *arena) release() {
	for i, blk := range a.blocks {
		if blk.large {
			largeBlocks.giveBack(blk.buf)
		} else {
			smallBlocks.giveBack(blk.buf)
		}
		a.blocks[i] = arenaBlock{}
	}
	a.blocks = nil
	a.bump = nil
	a.bumpOff = 0
}
