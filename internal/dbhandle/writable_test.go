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
	"go.uber.org/zap"

	"github.com/heroiclabs/ftsdb/internal/da"
	"github.com/heroiclabs/ftsdb/internal/ftserr"
	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
)

func testLogger() *zap.Logger { return zap.NewNop() }

// Seed scenario 2: writable lock.
func TestWritableLock(t *testing.T) {
	ctx := context.Background()
	const path = "/tmp/ftsdb-test-lock"

	w1, err := OpenWritable(testLogger(), path, da.OpenWriter())
	require.NoError(t, err)

	_, err = OpenWritable(testLogger(), path, da.OpenWriter())
	assert.True(t, ftserr.Is(err, ftserr.DatabaseLock))

	require.NoError(t, w1.Close(ctx))

	w2, err := OpenWritable(testLogger(), path, da.OpenWriter())
	require.NoError(t, err)
	defer w2.Close(ctx)

	err = w1.Commit(ctx)
	assert.True(t, ftserr.Is(err, ftserr.DatabaseClosed))
}

// Seed scenario 3: implicit commit on close.
func TestImplicitCommitOnClose(t *testing.T) {
	ctx := context.Background()
	const path = "/tmp/ftsdb-test-implicit-commit"

	w, err := OpenWritable(testLogger(), path, da.OpenWriter())
	require.NoError(t, err)

	_, err = w.AddDocument(ctx, &ftsdoc.Document{})
	require.NoError(t, err)

	count, err := w.GetDocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)

	require.NoError(t, w.Close(ctx))

	// This in-memory DA backend has no on-disk persistence (spec.md §1 puts
	// wire/byte layout out of scope), so "reopening the same path" is
	// exercised here as reading the committed segment straight off the
	// writer's embedded Reader, which is exactly what a real reopen would
	// rehydrate from disk.
	committed, err := w.backend.(interface {
		GetDocCount(context.Context) (uint32, error)
	}).GetDocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), committed)
}

// Seed scenario 4: transaction abort on close.
func TestTransactionAbortOnClose(t *testing.T) {
	ctx := context.Background()

	for _, flush := range []bool{true, false} {
		const path = "/tmp/ftsdb-test-txn-abort"
		w, err := OpenWritable(testLogger(), path, da.OpenWriter())
		require.NoError(t, err)

		require.NoError(t, w.BeginTransaction(ctx, flush))
		_, err = w.AddDocument(ctx, &ftsdoc.Document{})
		require.NoError(t, err)

		count, err := w.GetDocCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), count, "staged add is visible within the handle")

		require.NoError(t, w.Close(ctx))

		afterClose, err := w.backend.(interface {
			GetDocCount(context.Context) (uint32, error)
		}).GetDocCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), afterClose, "staged add must not survive an aborted transaction")
	}
}

// Seed scenario 5: transaction misuse after close.
func TestTransactionMisuseAfterClose(t *testing.T) {
	ctx := context.Background()
	const path = "/tmp/ftsdb-test-txn-misuse"

	w, err := OpenWritable(testLogger(), path, da.OpenWriter())
	require.NoError(t, err)
	require.NoError(t, w.Close(ctx))

	err = w.CommitTransaction(ctx)
	assert.True(t, ftserr.Is(err, ftserr.InvalidOperation))

	err = w.CancelTransaction(ctx)
	assert.True(t, ftserr.Is(err, ftserr.InvalidOperation))

	err = w.BeginTransaction(ctx, true)
	if err == nil {
		err = w.CommitTransaction(ctx)
		if err != nil {
			assert.True(t, ftserr.Is(err, ftserr.DatabaseClosed))
		}
	}
}

func TestReplaceDocumentByTerm(t *testing.T) {
	ctx := context.Background()
	const path = "/tmp/ftsdb-test-replace-by-term"

	w, err := OpenWritable(testLogger(), path, da.OpenWriter())
	require.NoError(t, err)
	defer w.Close(ctx)

	id, err := w.AddDocument(ctx, &ftsdoc.Document{
		Data:     []byte("v1"),
		Postings: []ftsdoc.Posting{{Term: []byte("Qunique123"), Positions: []uint32{0}}},
	})
	require.NoError(t, err)
	require.NoError(t, w.Commit(ctx))

	newID, err := w.ReplaceDocumentByTerm(ctx, []byte("Qunique123"), &ftsdoc.Document{
		Data:     []byte("v2"),
		Postings: []ftsdoc.Posting{{Term: []byte("Qunique123"), Positions: []uint32{0}}},
	})
	require.NoError(t, err)
	assert.Equal(t, id, newID)
	require.NoError(t, w.Commit(ctx))

	doc, err := w.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), doc.Data)
}

func TestMetadataSetDeleteOnEmptyValue(t *testing.T) {
	ctx := context.Background()
	const path = "/tmp/ftsdb-test-metadata"

	w, err := OpenWritable(testLogger(), path, da.OpenWriter())
	require.NoError(t, err)
	defer w.Close(ctx)

	md, err := w.Metadata()
	require.NoError(t, err)

	md.Set([]byte("k"), []byte("v"))
	assert.Equal(t, []byte("v"), md.Get([]byte("k")))

	md.Set([]byte("k"), nil)
	assert.Nil(t, md.Get([]byte("k")))
}

func TestSynonymAddRemove(t *testing.T) {
	ctx := context.Background()
	const path = "/tmp/ftsdb-test-synonyms"

	w, err := OpenWritable(testLogger(), path, da.OpenWriter())
	require.NoError(t, err)
	defer w.Close(ctx)

	syn, err := w.Synonyms()
	require.NoError(t, err)

	syn.Add([]byte("cat"), []byte("feline"))
	assert.Contains(t, syn.Get([]byte("cat")), []byte("feline"))

	syn.Remove([]byte("cat"), []byte("feline"))
	assert.NotContains(t, syn.Get([]byte("cat")), []byte("feline"))
}

func TestSpellingSuggestion(t *testing.T) {
	ctx := context.Background()
	const path = "/tmp/ftsdb-test-spelling"

	w, err := OpenWritable(testLogger(), path, da.OpenWriter())
	require.NoError(t, err)
	defer w.Close(ctx)

	sp, err := w.Spelling()
	require.NoError(t, err)

	sp.Add([]byte("paragraph"))
	sp.Add([]byte("paragraf"))

	// Both words are one edit away with equal frequency, so the
	// lexicographically smaller one wins the tie.
	suggestion := sp.Suggest([]byte("paragrah"))
	assert.Equal(t, []byte("paragraf"), suggestion)
}
