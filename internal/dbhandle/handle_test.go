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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heroiclabs/ftsdb/internal/da"
	"github.com/heroiclabs/ftsdb/internal/ftserr"
	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// buildReadOnlyCorpus stages and commits a small multi-document, multi-value
// corpus against a fresh DA writer, then wraps it in a plain read-only
// Database the way a real deployment would reopen a previously-written
// database for read-only queries (spec.md §3).
func buildReadOnlyCorpus(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()
	w := da.OpenWriter()

	docs := []*ftsdoc.Document{
		{
			Data:   []byte("doc one"),
			Values: map[int][]byte{0: []byte("alpha")},
			Postings: []ftsdoc.Posting{
				{Term: []byte("paragraph"), Positions: []uint32{12, 28}},
				{Term: []byte("this"), Positions: []uint32{1}},
			},
		},
		{
			Data:   []byte("doc two"),
			Values: map[int][]byte{0: []byte("bravo")},
			Postings: []ftsdoc.Posting{
				{Term: []byte("paragraph"), Positions: []uint32{3}},
				{Term: []byte("that"), Positions: []uint32{5}},
			},
		},
		{
			Data: []byte("doc three"),
			Postings: []ftsdoc.Posting{
				{Term: []byte("this"), Positions: []uint32{2}},
			},
		},
	}
	for _, doc := range docs {
		id, err := w.NextDocID(ctx)
		require.NoError(t, err)
		require.NoError(t, w.Stage(ctx, id, doc))
	}
	require.NoError(t, w.Commit(ctx))

	db, err := Open(testLogger(), []iterator.Backend{w})
	require.NoError(t, err)
	return db
}

// Seed scenario 1: read-only handle close/reopen semantics.
func TestDatabase_ReadOnlyLifecycle(t *testing.T) {
	ctx := context.Background()
	db := buildReadOnlyCorpus(t)

	assert.Equal(t, uint32(3), db.GetDocCount())

	pl, err := db.PostlistBegin(ctx, []byte("paragraph"))
	require.NoError(t, err)
	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, ftsdoc.DocID(1), pl.GetDocID())
	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, ftsdoc.DocID(2), pl.GetDocID())
	require.NoError(t, pl.Advance(ctx))
	assert.Equal(t, iterator.AtEnd, pl.State())

	at, err := db.AlltermsBegin(ctx, nil)
	require.NoError(t, err)
	var terms []string
	for {
		require.NoError(t, at.Advance(ctx))
		if at.State() == iterator.AtEnd {
			break
		}
		terms = append(terms, string(at.GetTerm()))
	}
	assert.Equal(t, []string{"paragraph", "that", "this"}, terms)

	posl, err := db.PositionlistBegin(ctx, 1, []byte("paragraph"))
	require.NoError(t, err)
	require.NoError(t, posl.Advance(ctx))
	assert.EqualValues(t, 12, posl.GetPosition())
	require.NoError(t, posl.Advance(ctx))
	assert.EqualValues(t, 28, posl.GetPosition())
	require.NoError(t, posl.Advance(ctx))
	assert.Equal(t, iterator.AtEnd, posl.State())

	vs, err := db.ValuestreamBegin(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, vs.Advance(ctx))
	assert.Equal(t, ftsdoc.DocID(1), vs.GetDocID())
	assert.Equal(t, []byte("alpha"), vs.GetValue())
	require.NoError(t, vs.Advance(ctx))
	assert.Equal(t, ftsdoc.DocID(2), vs.GetDocID())
	require.NoError(t, vs.Advance(ctx))
	assert.Equal(t, iterator.AtEnd, vs.State())

	// Close is idempotent (spec.md §3, §8).
	require.NoError(t, db.Close(ctx))
	require.NoError(t, db.Close(ctx))

	// Category A: every op requiring a fresh backend read raises
	// DatabaseClosed once the handle has been closed.
	_, err = db.PostlistBegin(ctx, []byte("paragraph"))
	assert.True(t, ftserr.Is(err, ftserr.DatabaseClosed))

	_, err = db.GetDocument(ctx, 1)
	assert.True(t, ftserr.Is(err, ftserr.DatabaseClosed))

	_, err = db.ValuestreamBegin(ctx, 0)
	assert.True(t, ftserr.Is(err, ftserr.DatabaseClosed))

	err = db.Reopen(ctx)
	assert.True(t, ftserr.Is(err, ftserr.DatabaseClosed))

	// Category B/C reads still succeed after close: cached-at-open values
	// and the description never require a live backend.
	assert.Equal(t, uint32(3), db.GetDocCount())
	assert.NotEmpty(t, db.GetDescription())
}

func TestDatabase_GetMetadataKeysBeginWithNoAttachedStore(t *testing.T) {
	ctx := context.Background()
	db := buildReadOnlyCorpus(t)
	defer db.Close(ctx)

	ml, err := db.GetMetadataKeysBegin(ctx)
	require.NoError(t, err)
	require.NoError(t, ml.Advance(ctx))
	assert.Equal(t, iterator.AtEnd, ml.State(), "a handle with no attached metadata store reports an empty view, not an error")
}
