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

	"github.com/RoaringBitmap/roaring"

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// postingsCursor is a posting-list cursor backed by a termRecord's roaring
// docid set. currdoc==0 is the Unstarted sentinel, currdoc==MaxDocID is
// AtEnd (spec.md §4.2); skip_to uses roaring's own indexed descent
// (AdvanceIfNeeded) rather than a linear scan.
type postingsCursor struct {
	term  *DATerm
	docs  map[ftsdoc.DocID]*docInfo
	bm    *roaring.Bitmap
	it    roaring.IntPeekable
	state iterator.State
	doc   ftsdoc.DocID
	idx   int
}

func newPostingsCursor(t *DATerm, docs map[ftsdoc.DocID]*docInfo) *postingsCursor {
	c := &postingsCursor{term: t, docs: docs, state: iterator.Unstarted, doc: 0, idx: -1}
	if t.state == resolved {
		c.bm = t.rec.docIDs
		c.it = c.bm.Iterator()
	}
	return c
}

func (c *postingsCursor) Advance(ctx context.Context) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	if c.it == nil || !c.it.HasNext() {
		c.state = iterator.AtEnd
		c.doc = ftsdoc.MaxDocID
		return nil
	}
	c.doc = ftsdoc.DocID(c.it.Next())
	c.idx++
	c.state = iterator.Positioned
	return nil
}

func (c *postingsCursor) SkipTo(ctx context.Context, key ftsdoc.DocID, wMin uint32) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	if c.state == iterator.Positioned && c.doc >= key {
		return nil
	}
	if c.it == nil {
		c.state = iterator.AtEnd
		c.doc = ftsdoc.MaxDocID
		return nil
	}
	c.it.AdvanceIfNeeded(uint32(key))
	if !c.it.HasNext() {
		c.state = iterator.AtEnd
		c.doc = ftsdoc.MaxDocID
		return nil
	}
	v := c.it.Next()
	c.doc = ftsdoc.DocID(v)
	c.idx = int(c.bm.Rank(v)) - 1
	c.state = iterator.Positioned
	return nil
}

func (c *postingsCursor) State() iterator.State { return c.state }

func (c *postingsCursor) GetDocID() ftsdoc.DocID { return c.doc }

func (c *postingsCursor) GetWDF() uint32 {
	if c.term.state != resolved || c.idx < 0 || c.idx >= len(c.term.rec.wdf) {
		return 0
	}
	return c.term.rec.wdf[c.idx]
}

func (c *postingsCursor) GetDocLength() uint32 {
	if info, ok := c.docs[c.doc]; ok {
		return info.doclen
	}
	return 0
}

func (c *postingsCursor) GetUniqueTerms() uint32 {
	if info, ok := c.docs[c.doc]; ok {
		return info.uniqueTerm
	}
	return 0
}

func (c *postingsCursor) Positions(ctx context.Context) ([]uint32, error) {
	if c.term.state != resolved || c.idx < 0 || c.idx >= len(c.term.rec.posBlock) {
		return nil, nil
	}
	return decodePositions(c.term.rec.posBlock[c.idx], c.term.rec.posCount[c.idx])
}

func (c *postingsCursor) TermFreq() uint32 {
	if c.term.state != resolved {
		return 0
	}
	return c.term.rec.termFreq
}

func (c *postingsCursor) Term() []byte {
	return c.term.name
}
