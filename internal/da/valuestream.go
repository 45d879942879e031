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
	"bytes"
	"context"
	"sort"

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// valueEntry is one (docid, value) pair materialized for a value slot.
type valueEntry struct {
	docID ftsdoc.DocID
	value []byte
}

// slotEntries collects every document carrying a value in slot, in
// ascending docid order, the order valuestream_begin must yield (spec.md
// §4.3). Like termListCursor this materializes eagerly: value slots are
// part of docInfo, already resident once the segment is loaded.
func (seg *segment) slotEntries(slot int) []valueEntry {
	ids := make([]ftsdoc.DocID, 0, len(seg.docs))
	for docID, info := range seg.docs {
		if _, ok := info.values[slot]; ok {
			ids = append(ids, docID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]valueEntry, len(ids))
	for i, docID := range ids {
		entries[i] = valueEntry{docID: docID, value: seg.docs[docID].values[slot]}
	}
	return entries
}

// valueStreamCursor iterates one slot's materialized (docid, value) pairs.
type valueStreamCursor struct {
	entries []valueEntry
	idx     int
	state   iterator.State
}

func newValueStreamCursor(entries []valueEntry) *valueStreamCursor {
	return &valueStreamCursor{entries: entries, idx: -1, state: iterator.Unstarted}
}

func (c *valueStreamCursor) Advance(context.Context) error {
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

func (c *valueStreamCursor) SkipTo(ctx context.Context, key ftsdoc.DocID) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	for c.idx+1 < len(c.entries) && c.entries[c.idx+1].docID < key {
		c.idx++
	}
	return c.Advance(ctx)
}

func (c *valueStreamCursor) State() iterator.State { return c.state }

func (c *valueStreamCursor) GetDocID() ftsdoc.DocID {
	if c.state != iterator.Positioned {
		return ftsdoc.MaxDocID
	}
	return c.entries[c.idx].docID
}

func (c *valueStreamCursor) GetValue() []byte {
	if c.state != iterator.Positioned {
		return nil
	}
	return c.entries[c.idx].value
}

// GetValueFreq returns the number of documents carrying a value in slot.
func (r *Reader) GetValueFreq(ctx context.Context, slot int) (uint32, error) {
	seg, _ := r.snapshot()
	return uint32(len(seg.slotEntries(slot))), nil
}

// GetValueLowerBound returns the lexicographically smallest value stored in
// slot, or nil if no document carries one.
func (r *Reader) GetValueLowerBound(ctx context.Context, slot int) ([]byte, error) {
	seg, _ := r.snapshot()
	entries := seg.slotEntries(slot)
	if len(entries) == 0 {
		return nil, nil
	}
	lower := entries[0].value
	for _, e := range entries[1:] {
		if bytes.Compare(e.value, lower) < 0 {
			lower = e.value
		}
	}
	return append([]byte(nil), lower...), nil
}

// GetValueUpperBound returns the lexicographically largest value stored in
// slot, or nil if no document carries one.
func (r *Reader) GetValueUpperBound(ctx context.Context, slot int) ([]byte, error) {
	seg, _ := r.snapshot()
	entries := seg.slotEntries(slot)
	if len(entries) == 0 {
		return nil, nil
	}
	upper := entries[0].value
	for _, e := range entries[1:] {
		if bytes.Compare(e.value, upper) > 0 {
			upper = e.value
		}
	}
	return append([]byte(nil), upper...), nil
}

// ValueStreamBegin opens a (docid, value) cursor over slot, Unstarted.
func (r *Reader) ValueStreamBegin(ctx context.Context, slot int) (iterator.ValueStream, error) {
	seg, _ := r.snapshot()
	return newValueStreamCursor(seg.slotEntries(slot)), nil
}
