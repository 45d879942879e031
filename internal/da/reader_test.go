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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

func buildSimpleCorpus(t *testing.T) *Reader {
	t.Helper()
	docs := map[ftsdoc.DocID]ftsdoc.Document{
		1: {
			Postings: []ftsdoc.Posting{
				{Term: []byte("paragraph"), Positions: []uint32{12, 28}},
				{Term: []byte("this"), Positions: []uint32{1}},
				{Term: []byte("that"), Positions: []uint32{5}},
			},
		},
		2: {
			Postings: []ftsdoc.Posting{
				{Term: []byte("paragraph"), Positions: []uint32{3}},
				{Term: []byte("this"), Positions: []uint32{9}},
			},
		},
		3: {
			Postings: []ftsdoc.Posting{
				{Term: []byte("this"), Positions: []uint32{2}},
				{Term: []byte("test"), Positions: []uint32{4}},
			},
		},
	}
	seg, err := buildSegment(&buildInput{docs: docs})
	require.NoError(t, err)
	r := OpenReader()
	r.replace(seg)
	return r
}

func TestReader_PostingsAscendingDocIDs(t *testing.T) {
	ctx := context.Background()
	r := buildSimpleCorpus(t)

	pl, err := r.PostingListBegin(ctx, []byte("paragraph"))
	require.NoError(t, err)
	require.Equal(t, iterator.Unstarted, pl.State())

	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, iterator.Positioned, pl.State())
	assert.Equal(t, ftsdoc.DocID(1), pl.GetDocID())

	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, ftsdoc.DocID(2), pl.GetDocID())

	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, iterator.AtEnd, pl.State())

	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, iterator.AtEnd, pl.State(), "advance past end stays AtEnd")
}

func TestReader_PostingsAdvancePastFirst(t *testing.T) {
	ctx := context.Background()
	r := buildSimpleCorpus(t)

	pl, err := r.PostingListBegin(ctx, []byte("this"))
	require.NoError(t, err)
	require.NoError(t, pl.Advance(ctx)) // skip docid 1

	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, ftsdoc.DocID(2), pl.GetDocID())
	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, ftsdoc.DocID(3), pl.GetDocID())
}

func TestReader_TermListOrdering(t *testing.T) {
	ctx := context.Background()
	r := buildSimpleCorpus(t)

	tl, err := r.TermListBegin(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, tl.Advance(ctx))
	assert.Equal(t, "paragraph", string(tl.GetTerm()))

	require.NoError(t, tl.Advance(ctx))
	assert.Equal(t, "that", string(tl.GetTerm()))

	require.NoError(t, tl.Advance(ctx))
	assert.Equal(t, "this", string(tl.GetTerm()))

	require.NoError(t, tl.Advance(ctx))
	assert.Equal(t, iterator.AtEnd, tl.State())
}

func TestReader_AllTermsPrefix(t *testing.T) {
	ctx := context.Background()
	r := buildSimpleCorpus(t)

	at, err := r.AllTermsBegin(ctx, []byte("t"))
	require.NoError(t, err)

	var got []string
	for {
		require.NoError(t, at.Advance(ctx))
		if at.State() == iterator.AtEnd {
			break
		}
		got = append(got, string(at.GetTerm()))
	}
	assert.Equal(t, []string{"test", "that", "this"}, got)
}

func TestReader_PositionList(t *testing.T) {
	ctx := context.Background()
	r := buildSimpleCorpus(t)

	pl, err := r.PositionListBegin(ctx, 1, []byte("paragraph"))
	require.NoError(t, err)

	require.NoError(t, pl.Advance(ctx))
	assert.EqualValues(t, 12, pl.GetPosition())
	require.NoError(t, pl.Advance(ctx))
	assert.EqualValues(t, 28, pl.GetPosition())
	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, iterator.AtEnd, pl.State())
}

func TestReader_TermAbsentIsCleanMiss(t *testing.T) {
	ctx := context.Background()
	r := buildSimpleCorpus(t)

	exists, err := r.TermExists(ctx, []byte("nonexistent"))
	require.NoError(t, err)
	assert.False(t, exists)

	pl, err := r.PostingListBegin(ctx, []byte("nonexistent"))
	require.NoError(t, err)
	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, iterator.AtEnd, pl.State())
}
