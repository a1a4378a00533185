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
	"context"
	"errors"
	"io"
)

// runSource is the producer half of a parse: it fills pooled blocks from the
// reader and publishes them to the pipe, one publish per source read so
// arbitrarily small reads become visible to the consumer immediately. A block
// keeps filling across publishes until it is full, then a fresh one is
// rented. The pipe is always completed before returning, so the consumer
// never hangs.
func runSource(ctx context.Context, r io.Reader, p *pipe, blockSize int) {
	buf := smallBlocks.rent(blockSize)
	filled := 0
	published := false

	// releaseBuf hands the current block over. A block the pipe has seen is
	// sealed in place (the consumer returns it to the pool); one it has never
	// seen, or has already dropped, goes back to the pool here.
	releaseBuf := func() {
		if !published || !p.seal() {
			smallBlocks.giveBack(buf)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			releaseBuf()
			p.complete(err)
			return
		}

		n, err := r.Read(buf[filled:])
		if n > 0 {
			filled += n
			sealed := filled == len(buf)
			if perr := p.publish(ctx, buf, filled, sealed); perr != nil {
				releaseBuf()
				p.complete(perr)
				return
			}
			published = !sealed
			if sealed {
				buf = smallBlocks.rent(blockSize)
				filled = 0
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			releaseBuf()
			p.complete(err)
			return
		}
	}
}
