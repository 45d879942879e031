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
	"sync"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/heroiclabs/ftsdb/internal/ftserr"
	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// WritableDatabase extends Database with the mutation API, the transaction
// state machine, and the spelling/synonym/metadata side-channels (spec.md
// §4.4). Unlike the read-only handle it owns exactly one backend, since a
// writable handle corresponds to one exclusively-locked on-disk database.
type WritableDatabase struct {
	*Database

	path    string
	backend iterator.WritableBackend
	metrics writableMetrics

	mu  sync.Mutex
	txn txn

	spelling *spellingCorpus
	synonyms *synonymMap
	metadata *metadataStore
}

// writableMetrics are the per-handle operational counters spec.md's
// expanded domain stack calls for: documents added, commits, and aborted
// transactions, reported through a tally scope the same way the teacher
// reports storage-engine stats.
type writableMetrics struct {
	documentsAdded tally.Counter
	commits        tally.Counter
	txnsAborted    tally.Counter
}

func newWritableMetrics(scope tally.Scope) writableMetrics {
	if scope == nil {
		scope = tally.NoopScope
	}
	return writableMetrics{
		documentsAdded: scope.Counter("ftsdb_documents_added"),
		commits:        scope.Counter("ftsdb_commits"),
		txnsAborted:    scope.Counter("ftsdb_transactions_aborted"),
	}
}

// OpenWritable acquires the exclusive writable lock for path and wraps
// backend with the mutation surface. Only one WritableDatabase may be open
// on a given path at a time; a second attempt raises DatabaseLock (spec.md
// §3, §5). Operational counters are discarded; use OpenWritableWithMetrics
// to report them through a real tally scope.
func OpenWritable(logger *zap.Logger, path string, backend iterator.WritableBackend) (*WritableDatabase, error) {
	return OpenWritableWithMetrics(logger, path, backend, nil)
}

// OpenWritableWithMetrics is OpenWritable with an explicit tally scope for
// the handle's operational counters.
func OpenWritableWithMetrics(logger *zap.Logger, path string, backend iterator.WritableBackend, scope tally.Scope) (*WritableDatabase, error) {
	if err := acquireLock(path); err != nil {
		return nil, err
	}
	db, err := Open(logger, []iterator.Backend{backend})
	if err != nil {
		releaseLock(path)
		return nil, err
	}
	metadata := newMetadataStore()
	db.metadata = metadata
	return &WritableDatabase{
		Database: db,
		path:     path,
		backend:  backend,
		metrics:  newWritableMetrics(scope),
		spelling: newSpellingCorpus(),
		synonyms: newSynonymMap(),
		metadata: metadata,
	}, nil
}

// Close implements spec.md §4.4's writable close semantics: in state None,
// staged writes are implicitly flushed (as if commit() were called); in
// state Active, they are discarded. Either way the exclusive lock is
// released and the base handle is torn down.
func (w *WritableDatabase) Close(ctx context.Context) error {
	w.mu.Lock()
	state := w.txn.state
	w.txn = txn{}
	w.mu.Unlock()

	if w.isClosed() {
		return nil
	}

	var err error
	if state == txnActive {
		err = w.backend.DiscardStaged(ctx)
		w.metrics.txnsAborted.Inc(1)
	} else {
		err = w.backend.Commit(ctx)
		w.metrics.commits.Inc(1)
	}
	releaseLock(w.path)
	if closeErr := w.Database.Close(ctx); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (w *WritableDatabase) requireOpenMutator() error {
	return w.requireOpen()
}

// GetDocCount overrides Database's cached-at-open value with a live read
// that folds in staged-but-uncommitted writes, so a writer observes its own
// pending mutations before commit (spec.md §8's writable-handle seed
// scenarios 3 and 4).
func (w *WritableDatabase) GetDocCount(ctx context.Context) (uint32, error) {
	if err := w.requireOpenMutator(); err != nil {
		return 0, err
	}
	return w.backend.GetDocCount(ctx)
}

// GetLastDocID is GetDocCount's counterpart for the last-assigned docid.
func (w *WritableDatabase) GetLastDocID(ctx context.Context) (ftsdoc.DocID, error) {
	if err := w.requireOpenMutator(); err != nil {
		return 0, err
	}
	return w.backend.GetLastDocID(ctx)
}

// AddDocument stages a new document and returns the docid it was (or will
// be) assigned.
func (w *WritableDatabase) AddDocument(ctx context.Context, doc *ftsdoc.Document) (ftsdoc.DocID, error) {
	if err := w.requireOpenMutator(); err != nil {
		return 0, err
	}
	id, err := w.backend.NextDocID(ctx)
	if err != nil {
		return 0, err
	}
	if err := w.backend.Stage(ctx, id, doc); err != nil {
		return 0, err
	}
	w.metrics.documentsAdded.Inc(1)
	return id, nil
}

// DeleteDocument stages removal of docid. Deleting an already-absent docid
// is not an error: it is simply staged and becomes a no-op at commit.
func (w *WritableDatabase) DeleteDocument(ctx context.Context, docID ftsdoc.DocID) error {
	if err := w.requireOpenMutator(); err != nil {
		return err
	}
	return w.backend.StageDelete(ctx, docID)
}

// ReplaceDocument stages doc as the new content for docID, creating it if
// absent.
func (w *WritableDatabase) ReplaceDocument(ctx context.Context, docID ftsdoc.DocID, doc *ftsdoc.Document) error {
	if err := w.requireOpenMutator(); err != nil {
		return err
	}
	return w.backend.Stage(ctx, docID, doc)
}

// ReplaceDocumentByTerm implements replace_document(unique_term, doc): the
// lowest-docid document currently indexed under term is replaced with doc;
// any other documents under term are deleted; if none match, doc is added
// as a new document (spec.md §4.4).
func (w *WritableDatabase) ReplaceDocumentByTerm(ctx context.Context, term []byte, doc *ftsdoc.Document) (ftsdoc.DocID, error) {
	if err := w.requireOpenMutator(); err != nil {
		return 0, err
	}
	pl, err := w.backend.PostingListBegin(ctx, term)
	if err != nil {
		return 0, err
	}
	var matches []ftsdoc.DocID
	for {
		if err := pl.Advance(ctx); err != nil {
			return 0, err
		}
		if pl.State() != iterator.Positioned {
			break
		}
		matches = append(matches, pl.GetDocID())
	}

	if len(matches) == 0 {
		return w.AddDocument(ctx, doc)
	}
	target := matches[0]
	for _, extra := range matches[1:] {
		if err := w.backend.StageDelete(ctx, extra); err != nil {
			return 0, err
		}
	}
	if err := w.backend.Stage(ctx, target, doc); err != nil {
		return 0, err
	}
	return target, nil
}

// Commit flushes staged writes immediately, outside of any transaction. A
// commit with nothing staged is a documented no-op (spec.md §4.4).
func (w *WritableDatabase) Commit(ctx context.Context) error {
	if err := w.requireOpenMutator(); err != nil {
		return err
	}
	if err := w.backend.Commit(ctx); err != nil {
		return err
	}
	w.metrics.commits.Inc(1)
	return nil
}

// BeginTransaction enters Active. flush controls whether CommitTransaction
// flushes to the backend immediately or only stages in memory pending a
// later Commit. With flush=false, CommitTransaction leaves the staged
// writes in the backend's in-memory map; a later Commit (or Close outside
// a transaction) flushes them.
//
// Entering Active never touches the backend, so this is permitted to
// succeed on a closed handle (spec.md §4.4, seed scenario 5): the guard is
// the state machine, not open/closed.
func (w *WritableDatabase) BeginTransaction(ctx context.Context, flush bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.txn.state == txnActive {
		return ftserr.New(ftserr.InvalidOperation, "transaction already active")
	}
	w.txn = txn{state: txnActive, flush: flush}
	return nil
}

// CommitTransaction flushes staged writes (if flush was requested) and
// returns to None. The None-state guard is checked before the closed-handle
// check: calling it with no active transaction always raises
// InvalidOperation, closed or not (spec.md §4.4, seed scenario 5). Only a
// commit that actually needs the backend (an Active transaction with
// flush=true) can surface DatabaseClosed.
func (w *WritableDatabase) CommitTransaction(ctx context.Context) error {
	w.mu.Lock()
	if w.txn.state != txnActive {
		w.mu.Unlock()
		return ftserr.New(ftserr.InvalidOperation, "no transaction is active")
	}
	shouldFlush := w.txn.flush
	w.txn = txn{}
	w.mu.Unlock()

	if !shouldFlush {
		return nil
	}
	if err := w.requireOpenMutator(); err != nil {
		return err
	}
	if err := w.backend.Commit(ctx); err != nil {
		return err
	}
	w.metrics.commits.Inc(1)
	return nil
}

// CancelTransaction discards staged writes made during the transaction and
// returns to None. Same state-before-closed guard ordering as
// CommitTransaction.
func (w *WritableDatabase) CancelTransaction(ctx context.Context) error {
	w.mu.Lock()
	if w.txn.state != txnActive {
		w.mu.Unlock()
		return ftserr.New(ftserr.InvalidOperation, "no transaction is active")
	}
	w.txn = txn{}
	w.mu.Unlock()

	if err := w.requireOpenMutator(); err != nil {
		return err
	}
	if err := w.backend.DiscardStaged(ctx); err != nil {
		return err
	}
	w.metrics.txnsAborted.Inc(1)
	return nil
}

// Spelling returns the spelling sub-API, subject to the same Closed policy
// as every other mutator (spec.md §4.4).
func (w *WritableDatabase) Spelling() (*spellingCorpus, error) {
	if err := w.requireOpenMutator(); err != nil {
		return nil, err
	}
	return w.spelling, nil
}

// Synonyms returns the synonym sub-API.
func (w *WritableDatabase) Synonyms() (*synonymMap, error) {
	if err := w.requireOpenMutator(); err != nil {
		return nil, err
	}
	return w.synonyms, nil
}

// Metadata returns the metadata sub-API.
func (w *WritableDatabase) Metadata() (*metadataStore, error) {
	if err := w.requireOpenMutator(); err != nil {
		return nil, err
	}
	return w.metadata, nil
}
