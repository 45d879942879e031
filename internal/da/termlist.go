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

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// termListCursor iterates a document's already-materialized term entries
// (spec.md §4.2: termlists never perform I/O after construction).
type termListCursor struct {
	entries []ftsdoc.TermEntry
	state   iterator.State
	idx     int
}

func newTermListCursor(entries []ftsdoc.TermEntry) *termListCursor {
	return &termListCursor{entries: entries, state: iterator.Unstarted, idx: -1}
}

func (c *termListCursor) Advance(ctx context.Context) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	c.idx++
	if c.idx >= len(c.entries) {
		c.state = iterator.AtEnd
		return nil
	}
	c.state = iterator.Positioned
	return nil
}

func (c *termListCursor) State() iterator.State { return c.state }

func (c *termListCursor) GetTerm() []byte {
	if c.idx < 0 || c.idx >= len(c.entries) {
		return nil
	}
	return c.entries[c.idx].Term
}

func (c *termListCursor) GetWDF() uint32 {
	if c.idx < 0 || c.idx >= len(c.entries) {
		return 0
	}
	return c.entries[c.idx].WDF
}

func (c *termListCursor) GetTermFreq() uint32 {
	if c.idx < 0 || c.idx >= len(c.entries) {
		return 0
	}
	return c.entries[c.idx].TermFreq
}
