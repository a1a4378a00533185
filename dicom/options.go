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

import "github.com/rs/zerolog"

// ParseOption configures the behavior of the Parse function.
type ParseOption struct {
	apply func(*parseConfig)
}

type parseConfig struct {
	pipeBlockSize       int
	bumpBlockSize       int
	largeValueThreshold int
	log                 zerolog.Logger
}

func defaultParseConfig() parseConfig {
	return parseConfig{
		pipeBlockSize:       defaultPipeBlockSize,
		bumpBlockSize:       defaultBumpBlockSize,
		largeValueThreshold: defaultLargeValueThreshold,
		log:                 zerolog.Nop(),
	}
}

// highWater is the pipe's backpressure limit. The parser consumes greedily,
// so a few blocks of headroom is enough to keep the producer busy.
func (cfg *parseConfig) highWater() int {
	hw := 4 * cfg.pipeBlockSize
	if hw < 256 {
		hw = 256
	}
	return hw
}

// WithPipeBlockSize sets the size in bytes of the blocks the source producer
// fills from the input stream. The default is 1 MiB.
func WithPipeBlockSize(n int) ParseOption {
	return ParseOption{func(cfg *parseConfig) {
		if n > 0 {
			cfg.pipeBlockSize = n
		}
	}}
}

// WithBumpBlockSize sets the size in bytes of the shared arena block that
// short values are carved out of. The default is 16 KiB.
func WithBumpBlockSize(n int) ParseOption {
	return ParseOption{func(cfg *parseConfig) {
		if n > 0 {
			cfg.bumpBlockSize = n
		}
	}}
}

// WithLargeValueThreshold sets the value length in bytes at which a value is
// backed by the large block pool instead of the small one. The default is
// 1 MiB.
func WithLargeValueThreshold(n int) ParseOption {
	return ParseOption{func(cfg *parseConfig) {
		if n > 0 {
			cfg.largeValueThreshold = n
		}
	}}
}

// WithLogger routes parse trace logging to the given logger. By default all
// logging is discarded.
func WithLogger(log zerolog.Logger) ParseOption {
	return ParseOption{func(cfg *parseConfig) {
		cfg.log = log
	}}
}
