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
	"context"

	"github.com/heroiclabs/ftsdb/internal/iterator"
)

type positionListCursor struct {
	positions []uint32
	state     iterator.State
	idx       int
}

func newPositionListCursor(positions []uint32) *positionListCursor {
	return &positionListCursor{positions: positions, state: iterator.Unstarted, idx: -1}
}

func (c *positionListCursor) Advance(ctx context.Context) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	c.idx++
	if c.idx >= len(c.positions) {
		c.state = iterator.AtEnd
		return nil
	}
	c.state = iterator.Positioned
	return nil
}

func (c *positionListCursor) State() iterator.State { return c.state }

func (c *positionListCursor) GetPosition() uint32 {
	if c.idx < 0 || c.idx >= len(c.positions) {
		return 0
	}
	return c.positions[c.idx]
}
