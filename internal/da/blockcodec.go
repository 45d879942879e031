// Copyright 2024 The ftsdb Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package da

import (
	"encoding/binary"

	"github.com/klauspost/compress/zstd"

	"github.com/heroiclabs/ftsdb/internal/ftserr"
)

var (
	encoderPool = func() *zstd.Encoder {
		e, _ := zstd.NewWriter(nil)
		return e
	}()
	decoderPool = func() *zstd.Decoder {
		d, _ := zstd.NewReader(nil)
		return d
	}()
)

// encodePositions delta-encodes an ascending position list as varints and
// zstd-compresses the result, the same way posting blocks in the teacher's
// search stack are compressed at rest.
func encodePositions(positions []uint32) []byte {
	buf := make([]byte, 0, len(positions)*2)
	var prev uint32
	for _, p := range positions {
		tmp := make([]byte, binary.MaxVarintLen32)
		n := binary.PutUvarint(tmp, uint64(p-prev))
		buf = append(buf, tmp[:n]...)
		prev = p
	}
	return encoderPool.EncodeAll(buf, nil)
}

// decodePositions reverses encodePositions. A corrupt block (one that
// fails to decompress or decode cleanly) is reported as DatabaseCorrupt,
// matching spec.md §4.2's rule that a failed read on a record the dictionary
// promised exists is corruption, not a clean miss.
func decodePositions(block []byte, count int) ([]uint32, error) {
	raw, err := decoderPool.DecodeAll(block, nil)
	if err != nil {
		return nil, ftserr.Newf(ftserr.DatabaseCorrupt, "decompress position block: %v", err)
	}
	positions := make([]uint32, 0, count)
	var prev uint32
	rest := raw
	for i := 0; i < count; i++ {
		delta, n := binary.Uvarint(rest)
		if n <= 0 {
			return nil, ftserr.New(ftserr.DatabaseCorrupt, "truncated position block")
		}
		prev += uint32(delta)
		positions = append(positions, prev)
		rest = rest[n:]
	}
	return positions, nil
}
