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

package dbhandle

import (
	"bytes"
	"context"

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// mergedPostingList merges per-shard posting-list cursors into a single
// strictly-ascending-docid sequence. Shard count is small (one per
// storage shard, not per query), so a linear min-scan per Advance is
// simpler than a heap and plenty fast.
type mergedPostingList struct {
	term    []byte
	cursors []iterator.PostingList
	state   iterator.State
	active  int // index of the cursor currently exposing the merged front
}

func newMergedPostingList(ctx context.Context, shards []iterator.Backend, term []byte) (iterator.PostingList, error) {
	cursors := make([]iterator.PostingList, len(shards))
	for i, s := range shards {
		c, err := s.PostingListBegin(ctx, term)
		if err != nil {
			return nil, err
		}
		cursors[i] = c
	}
	return &mergedPostingList{term: term, cursors: cursors, state: iterator.Unstarted, active: -1}, nil
}

func (m *mergedPostingList) Advance(ctx context.Context) error {
	if m.state == iterator.AtEnd {
		return nil
	}
	if m.active >= 0 {
		if err := m.cursors[m.active].Advance(ctx); err != nil {
			return err
		}
	} else if m.state == iterator.Unstarted {
		for _, c := range m.cursors {
			if c.State() == iterator.Unstarted {
				if err := c.Advance(ctx); err != nil {
					return err
				}
			}
		}
	}

	best := -1
	for i, c := range m.cursors {
		if c.State() != iterator.Positioned {
			continue
		}
		if best == -1 || c.GetDocID() < m.cursors[best].GetDocID() {
			best = i
		}
	}
	if best == -1 {
		m.state = iterator.AtEnd
		m.active = -1
		return nil
	}
	m.active = best
	m.state = iterator.Positioned
	return nil
}

func (m *mergedPostingList) SkipTo(ctx context.Context, key ftsdoc.DocID, wMin uint32) error {
	if m.state == iterator.AtEnd {
		return nil
	}
	for _, c := range m.cursors {
		if err := c.SkipTo(ctx, key, wMin); err != nil {
			return err
		}
	}
	m.state = iterator.Unstarted
	m.active = -1
	return m.Advance(ctx)
}

func (m *mergedPostingList) State() iterator.State { return m.state }

func (m *mergedPostingList) cur() iterator.PostingList {
	if m.active < 0 {
		return nil
	}
	return m.cursors[m.active]
}

func (m *mergedPostingList) GetDocID() ftsdoc.DocID {
	if c := m.cur(); c != nil {
		return c.GetDocID()
	}
	return ftsdoc.MaxDocID
}
func (m *mergedPostingList) GetWDF() uint32 {
	if c := m.cur(); c != nil {
		return c.GetWDF()
	}
	return 0
}
func (m *mergedPostingList) GetDocLength() uint32 {
	if c := m.cur(); c != nil {
		return c.GetDocLength()
	}
	return 0
}
func (m *mergedPostingList) GetUniqueTerms() uint32 {
	if c := m.cur(); c != nil {
		return c.GetUniqueTerms()
	}
	return 0
}
func (m *mergedPostingList) Positions(ctx context.Context) ([]uint32, error) {
	if c := m.cur(); c != nil {
		return c.Positions(ctx)
	}
	return nil, nil
}
func (m *mergedPostingList) TermFreq() uint32 {
	var total uint32
	for _, c := range m.cursors {
		total += c.TermFreq()
	}
	return total
}
func (m *mergedPostingList) Term() []byte { return m.term }

// mergedAllTermsList merges per-shard dictionary iterators into a single
// lexicographically ascending, duplicate-free term sequence.
type mergedAllTermsList struct {
	cursors []iterator.AllTermsList
	state   iterator.State
	active  int
}

func newMergedAllTermsList(ctx context.Context, shards []iterator.Backend, prefix []byte) (iterator.AllTermsList, error) {
	cursors := make([]iterator.AllTermsList, len(shards))
	for i, s := range shards {
		c, err := s.AllTermsBegin(ctx, prefix)
		if err != nil {
			return nil, err
		}
		cursors[i] = c
	}
	return &mergedAllTermsList{cursors: cursors, state: iterator.Unstarted, active: -1}, nil
}

func (m *mergedAllTermsList) Advance(ctx context.Context) error {
	if m.state == iterator.AtEnd {
		return nil
	}
	if m.state == iterator.Unstarted {
		for _, c := range m.cursors {
			if err := c.Advance(ctx); err != nil {
				return err
			}
		}
	} else {
		// Advance every cursor tied for the current minimum term so
		// duplicates across shards collapse into one merged entry.
		cur := m.cursors[m.active].GetTerm()
		for _, c := range m.cursors {
			if c.State() == iterator.Positioned && bytes.Equal(c.GetTerm(), cur) {
				if err := c.Advance(ctx); err != nil {
					return err
				}
			}
		}
	}

	best := -1
	for i, c := range m.cursors {
		if c.State() != iterator.Positioned {
			continue
		}
		if best == -1 || bytes.Compare(c.GetTerm(), m.cursors[best].GetTerm()) < 0 {
			best = i
		}
	}
	if best == -1 {
		m.state = iterator.AtEnd
		m.active = -1
		return nil
	}
	m.active = best
	m.state = iterator.Positioned
	return nil
}

func (m *mergedAllTermsList) State() iterator.State { return m.state }

func (m *mergedAllTermsList) GetTerm() []byte {
	if m.active < 0 {
		return nil
	}
	return m.cursors[m.active].GetTerm()
}

func (m *mergedAllTermsList) GetTermFreq() uint32 {
	if m.active < 0 {
		return 0
	}
	var total uint32
	cur := m.cursors[m.active].GetTerm()
	for _, c := range m.cursors {
		if c.State() == iterator.Positioned && bytes.Equal(c.GetTerm(), cur) {
			total += c.GetTermFreq()
		}
	}
	return total
}

// mergedValueStream merges per-shard value-slot cursors into a single
// strictly-ascending-docid sequence, the same min-scan strategy
// mergedPostingList uses.
type mergedValueStream struct {
	cursors []iterator.ValueStream
	state   iterator.State
	active  int
}

func newMergedValueStream(ctx context.Context, shards []iterator.Backend, slot int) (iterator.ValueStream, error) {
	cursors := make([]iterator.ValueStream, len(shards))
	for i, s := range shards {
		c, err := s.ValueStreamBegin(ctx, slot)
		if err != nil {
			return nil, err
		}
		cursors[i] = c
	}
	return &mergedValueStream{cursors: cursors, state: iterator.Unstarted, active: -1}, nil
}

func (m *mergedValueStream) Advance(ctx context.Context) error {
	if m.state == iterator.AtEnd {
		return nil
	}
	if m.active >= 0 {
		if err := m.cursors[m.active].Advance(ctx); err != nil {
			return err
		}
	} else if m.state == iterator.Unstarted {
		for _, c := range m.cursors {
			if c.State() == iterator.Unstarted {
				if err := c.Advance(ctx); err != nil {
					return err
				}
			}
		}
	}

	best := -1
	for i, c := range m.cursors {
		if c.State() != iterator.Positioned {
			continue
		}
		if best == -1 || c.GetDocID() < m.cursors[best].GetDocID() {
			best = i
		}
	}
	if best == -1 {
		m.state = iterator.AtEnd
		m.active = -1
		return nil
	}
	m.active = best
	m.state = iterator.Positioned
	return nil
}

func (m *mergedValueStream) SkipTo(ctx context.Context, key ftsdoc.DocID) error {
	if m.state == iterator.AtEnd {
		return nil
	}
	for _, c := range m.cursors {
		if err := c.SkipTo(ctx, key); err != nil {
			return err
		}
	}
	m.state = iterator.Unstarted
	m.active = -1
	return m.Advance(ctx)
}

func (m *mergedValueStream) State() iterator.State { return m.state }

func (m *mergedValueStream) GetDocID() ftsdoc.DocID {
	if m.active < 0 {
		return ftsdoc.MaxDocID
	}
	return m.cursors[m.active].GetDocID()
}

func (m *mergedValueStream) GetValue() []byte {
	if m.active < 0 {
		return nil
	}
	return m.cursors[m.active].GetValue()
}
