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

	"github.com/blevesearch/vellum"

	"github.com/heroiclabs/ftsdb/internal/ftserr"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// allTermsCursor walks the vellum FST in lexicographic key order, the
// database-wide term dictionary enumeration spec.md §4.1 requires.
type allTermsCursor struct {
	seg   *segment
	it    *vellum.FSTIterator
	done  bool
	state iterator.State
	term  []byte
}

// prefixEnd returns the exclusive upper bound for an iteration restricted
// to keys starting with prefix, or nil (no upper bound) if prefix is all
// 0xff bytes.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func newAllTermsCursor(seg *segment, prefix []byte) (*allTermsCursor, error) {
	var start, end []byte
	if len(prefix) > 0 {
		start = prefix
		end = prefixEnd(prefix)
	}
	it, err := seg.dict.Iterator(start, end)
	if err != nil && err != vellum.ErrIteratorDone {
		return nil, ftserr.Newf(ftserr.DatabaseCorrupt, "allterms iterator: %v", err)
	}
	c := &allTermsCursor{seg: seg, it: it, state: iterator.Unstarted}
	if err == vellum.ErrIteratorDone {
		c.done = true
	}
	return c, nil
}

func (c *allTermsCursor) Advance(ctx context.Context) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	if c.done {
		c.state = iterator.AtEnd
		return nil
	}
	if c.state == iterator.Unstarted {
		key, _ := c.it.Current()
		c.term = append([]byte(nil), key...)
		c.state = iterator.Positioned
		return nil
	}
	if err := c.it.Next(); err != nil {
		if err == vellum.ErrIteratorDone {
			c.state = iterator.AtEnd
			c.done = true
			return nil
		}
		return ftserr.Newf(ftserr.DatabaseCorrupt, "allterms advance: %v", err)
	}
	key, _ := c.it.Current()
	c.term = append([]byte(nil), key...)
	c.state = iterator.Positioned
	return nil
}

func (c *allTermsCursor) State() iterator.State { return c.state }

func (c *allTermsCursor) GetTerm() []byte { return c.term }

func (c *allTermsCursor) GetTermFreq() uint32 {
	if c.state != iterator.Positioned {
		return 0
	}
	_, idx := c.it.Current()
	if int(idx) >= len(c.seg.terms) {
		return 0
	}
	return c.seg.terms[idx].termFreq
}
