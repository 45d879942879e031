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

package remote

import (
	"context"

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// remotePostingList iterates a posting list that was fetched whole in one
// round trip. Once the peer has died, a cursor already positioned still
// serves its prefetched entries (matching the local-close semantics spec.md
// §4.6 says remote iterators must mirror); only a cursor with nothing left
// prefetched would need another round trip, which this implementation
// never performs since the whole list was fetched up front.
type remotePostingList struct {
	term    []byte
	entries []postingEntry
	idx     int
	state   iterator.State
}

func newRemotePostingList(term []byte, entries []postingEntry) *remotePostingList {
	return &remotePostingList{term: term, entries: entries, idx: -1, state: iterator.Unstarted}
}

func (c *remotePostingList) Advance(context.Context) error {
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

func (c *remotePostingList) SkipTo(ctx context.Context, key ftsdoc.DocID, wMin uint32) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	if c.state == iterator.Positioned && c.entries[c.idx].DocID >= key {
		return nil
	}
	for c.idx+1 < len(c.entries) && c.entries[c.idx+1].DocID < key {
		c.idx++
	}
	return c.Advance(ctx)
}

func (c *remotePostingList) State() iterator.State { return c.state }

func (c *remotePostingList) cur() *postingEntry {
	if c.state != iterator.Positioned {
		return nil
	}
	return &c.entries[c.idx]
}

func (c *remotePostingList) GetDocID() ftsdoc.DocID {
	if e := c.cur(); e != nil {
		return e.DocID
	}
	return ftsdoc.MaxDocID
}
func (c *remotePostingList) GetWDF() uint32 {
	if e := c.cur(); e != nil {
		return e.WDF
	}
	return 0
}
func (c *remotePostingList) GetDocLength() uint32 {
	if e := c.cur(); e != nil {
		return e.DocLength
	}
	return 0
}
func (c *remotePostingList) GetUniqueTerms() uint32 {
	if e := c.cur(); e != nil {
		return e.UniqueTerm
	}
	return 0
}
func (c *remotePostingList) Positions(context.Context) ([]uint32, error) {
	if e := c.cur(); e != nil {
		return e.Positions, nil
	}
	return nil, nil
}
func (c *remotePostingList) TermFreq() uint32 { return uint32(len(c.entries)) }
func (c *remotePostingList) Term() []byte     { return c.term }

// remoteTermList iterates a docid's termlist, fetched whole.
type remoteTermList struct {
	terms []ftsdoc.TermEntry
	idx   int
	state iterator.State
}

func newRemoteTermList(terms []ftsdoc.TermEntry) *remoteTermList {
	return &remoteTermList{terms: terms, idx: -1, state: iterator.Unstarted}
}

func (c *remoteTermList) Advance(context.Context) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	c.idx++
	if c.idx >= len(c.terms) {
		c.state = iterator.AtEnd
		return nil
	}
	c.state = iterator.Positioned
	return nil
}
func (c *remoteTermList) State() iterator.State { return c.state }
func (c *remoteTermList) GetTerm() []byte {
	if c.state != iterator.Positioned {
		return nil
	}
	return c.terms[c.idx].Term
}
func (c *remoteTermList) GetWDF() uint32 {
	if c.state != iterator.Positioned {
		return 0
	}
	return c.terms[c.idx].WDF
}
func (c *remoteTermList) GetTermFreq() uint32 {
	if c.state != iterator.Positioned {
		return 0
	}
	return c.terms[c.idx].TermFreq
}

// remotePositionList iterates a (docid, term) position list, fetched whole.
type remotePositionList struct {
	positions []uint32
	idx       int
	state     iterator.State
}

func newRemotePositionList(positions []uint32) *remotePositionList {
	return &remotePositionList{positions: positions, idx: -1, state: iterator.Unstarted}
}

func (c *remotePositionList) Advance(context.Context) error {
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
func (c *remotePositionList) State() iterator.State { return c.state }
func (c *remotePositionList) GetPosition() uint32 {
	if c.state != iterator.Positioned {
		return 0
	}
	return c.positions[c.idx]
}

// remoteAllTermsList iterates the dictionary, fetched whole (optionally
// prefix-filtered server-side before the round trip).
type remoteAllTermsList struct {
	entries []allTermEntry
	idx     int
	state   iterator.State
}

func newRemoteAllTermsList(entries []allTermEntry) *remoteAllTermsList {
	return &remoteAllTermsList{entries: entries, idx: -1, state: iterator.Unstarted}
}

func (c *remoteAllTermsList) Advance(context.Context) error {
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
func (c *remoteAllTermsList) State() iterator.State { return c.state }
func (c *remoteAllTermsList) GetTerm() []byte {
	if c.state != iterator.Positioned {
		return nil
	}
	return c.entries[c.idx].Term
}
func (c *remoteAllTermsList) GetTermFreq() uint32 {
	if c.state != iterator.Positioned {
		return 0
	}
	return c.entries[c.idx].TermFreq
}

// remoteValueStream iterates a value slot's (docid, value) pairs, fetched
// whole.
type remoteValueStream struct {
	entries []valueEntry
	idx     int
	state   iterator.State
}

func newRemoteValueStream(entries []valueEntry) *remoteValueStream {
	return &remoteValueStream{entries: entries, idx: -1, state: iterator.Unstarted}
}

func (c *remoteValueStream) Advance(context.Context) error {
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

func (c *remoteValueStream) SkipTo(ctx context.Context, key ftsdoc.DocID) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	for c.idx+1 < len(c.entries) && c.entries[c.idx+1].DocID < key {
		c.idx++
	}
	return c.Advance(ctx)
}

func (c *remoteValueStream) State() iterator.State { return c.state }

func (c *remoteValueStream) GetDocID() ftsdoc.DocID {
	if c.state != iterator.Positioned {
		return ftsdoc.MaxDocID
	}
	return c.entries[c.idx].DocID
}

func (c *remoteValueStream) GetValue() []byte {
	if c.state != iterator.Positioned {
		return nil
	}
	return c.entries[c.idx].Value
}
