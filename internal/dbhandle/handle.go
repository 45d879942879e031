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

// Package dbhandle implements the database handle state machine that
// every backend and every user API must honor: open/closed lifecycle,
// iterator-validity-after-close, and (for writable handles) the mutation
// and transaction layer. See spec.md §3, §4.3, §4.4.
package dbhandle

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/heroiclabs/ftsdb/internal/ftserr"
	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// Database is the user-facing read handle. It owns one or more shard
// backends (each a local DA reader or a remote client) and multiplexes
// queries across them. Closing is idempotent and irreversible: a closed
// handle's underlying connections may only be reopened via a fresh handle
// (spec.md §3).
type Database struct {
	logger *zap.Logger

	mu     sync.Mutex
	closed bool

	shards []iterator.Backend

	// Cached-at-open metadata, readable after close per the category-B
	// policy in spec.md §4.3 (the handle always chooses to serve these
	// from cache rather than raise, since nothing here requires I/O).
	uuid        uuid.UUID
	description string

	docCount  *atomic.Uint32
	lastDocID *atomic.Uint32
	avLength  *atomic.Float64
	hasPos    bool

	// metadata is attached only when this handle was opened writable
	// (spec.md §6.3): a read-only handle opened against the same backend
	// sees the same metadata map through GetMetadataKeysBegin.
	metadata *metadataStore
}

// Open constructs a Database over the given shard backends.
func Open(logger *zap.Logger, shards []iterator.Backend) (*Database, error) {
	if len(shards) == 0 {
		return nil, ftserr.New(ftserr.InvalidArgument, "at least one shard backend is required")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	db := &Database{
		logger:    logger,
		shards:    shards,
		uuid:      id,
		docCount:  atomic.NewUint32(0),
		lastDocID: atomic.NewUint32(0),
		avLength:  atomic.NewFloat64(0),
	}
	if err := db.refreshCachedStats(context.Background()); err != nil {
		return nil, err
	}
	db.description = fmt.Sprintf("Database(uuid=%s, shards=%d)", db.uuid, len(shards))
	return db, nil
}

func (db *Database) refreshCachedStats(ctx context.Context) error {
	var total uint32
	var last ftsdoc.DocID
	var weightedLen float64
	for _, s := range db.shards {
		c, err := s.GetDocCount(ctx)
		if err != nil {
			return err
		}
		l, err := s.GetLastDocID(ctx)
		if err != nil {
			return err
		}
		avl, err := s.GetAvLength(ctx)
		if err != nil {
			return err
		}
		total += c
		if l > last {
			last = l
		}
		weightedLen += avl * float64(c)
	}
	db.docCount.Store(total)
	db.lastDocID.Store(uint32(last))
	if total > 0 {
		db.avLength.Store(weightedLen / float64(total))
	} else {
		db.avLength.Store(0)
	}
	return nil
}

// isClosed reports the handle's state under lock.
func (db *Database) isClosed() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.closed
}

// requireOpen is the category-A guard: any op requiring a fresh backend
// read must raise DatabaseClosed once Close has run.
func (db *Database) requireOpen() error {
	if db.isClosed() {
		return ftserr.New(ftserr.DatabaseClosed, "database handle is closed")
	}
	return nil
}

// Close releases the handle's owned resources. It is idempotent: a second
// call is a no-op (spec.md §3, §8). Subclasses (WritableDatabase) override
// Close to add flush/lock-release semantics but call into this for the
// backend teardown.
func (db *Database) Close(ctx context.Context) error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	for _, s := range db.shards {
		if closer, ok := s.(interface{ Close(context.Context) error }); ok {
			if err := closer.Close(ctx); err != nil {
				db.logger.Warn("error closing shard backend", zap.Error(err))
			}
		}
	}
	return nil
}

// GetDescription MUST succeed even on a closed handle (spec.md §4.3
// category C) and is never empty (spec.md §9).
func (db *Database) GetDescription() string {
	return db.description
}

// GetUUID is a category-B cached read.
func (db *Database) GetUUID() uuid.UUID {
	return db.uuid
}

// HasPositions is a category-B cached read.
func (db *Database) HasPositions() bool {
	return db.hasPos
}

// GetDocCount is a category-B cached read.
func (db *Database) GetDocCount() uint32 {
	return db.docCount.Load()
}

// GetLastDocID is a category-B cached read.
func (db *Database) GetLastDocID() ftsdoc.DocID {
	return ftsdoc.DocID(db.lastDocID.Load())
}

// GetAvLength is a category-B cached read.
func (db *Database) GetAvLength() float64 {
	return db.avLength.Load()
}

// keepAliver is implemented by backends whose KeepAlive must perform a live
// round trip (remote.Client); backends that don't implement it are local
// and keep_alive is a no-op for them regardless of handle state (spec.md
// §4.3 category D, §4.6).
type keepAliver interface {
	KeepAlive(ctx context.Context) error
}

// KeepAlive pings every shard that requires a live connection to prove
// liveness. A shard with no KeepAlive method is local and is skipped
// entirely. Once this handle is closed, a remote shard's keep_alive MUST
// raise DatabaseClosed rather than attempt a round trip over a connection
// this handle itself tore down (spec.md §4.3 category D); while open, a
// dead peer surfaces whatever error the shard's own KeepAlive produces
// (NetworkError for remote.Client, per spec.md §4.6).
func (db *Database) KeepAlive(ctx context.Context) error {
	closed := db.isClosed()
	for _, s := range db.shards {
		ka, ok := s.(keepAliver)
		if !ok {
			continue
		}
		if closed {
			return ftserr.New(ftserr.DatabaseClosed, "database handle is closed")
		}
		if err := ka.KeepAlive(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Reopen MUST raise DatabaseClosed once the handle has been closed
// (spec.md §4.3 category A); reopening a live handle is a local refresh of
// the cached stats.
func (db *Database) Reopen(ctx context.Context) error {
	if err := db.requireOpen(); err != nil {
		return err
	}
	return db.refreshCachedStats(ctx)
}

func (db *Database) shardFor(docID ftsdoc.DocID) iterator.Backend {
	if len(db.shards) == 1 {
		return db.shards[0]
	}
	return db.shards[int(docID)%len(db.shards)]
}

func (db *Database) GetDocument(ctx context.Context, docID ftsdoc.DocID) (*ftsdoc.Document, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	return db.shardFor(docID).GetDocument(ctx, docID)
}

func (db *Database) GetDocLength(ctx context.Context, docID ftsdoc.DocID) (uint32, error) {
	if err := db.requireOpen(); err != nil {
		return 0, err
	}
	return db.shardFor(docID).GetDocLength(ctx, docID)
}

func (db *Database) GetUniqueTerms(ctx context.Context, docID ftsdoc.DocID) (uint32, error) {
	if err := db.requireOpen(); err != nil {
		return 0, err
	}
	return db.shardFor(docID).GetUniqueTerms(ctx, docID)
}

func (db *Database) TermExists(ctx context.Context, term []byte) (bool, error) {
	if err := db.requireOpen(); err != nil {
		return false, err
	}
	for _, s := range db.shards {
		ok, err := s.TermExists(ctx, term)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (db *Database) GetTermFreq(ctx context.Context, term []byte) (uint32, error) {
	if err := db.requireOpen(); err != nil {
		return 0, err
	}
	var total uint32
	for _, s := range db.shards {
		tf, err := s.GetTermFreq(ctx, term)
		if err != nil {
			return 0, err
		}
		total += tf
	}
	return total, nil
}

func (db *Database) GetCollectionFreq(ctx context.Context, term []byte) (uint64, error) {
	if err := db.requireOpen(); err != nil {
		return 0, err
	}
	var total uint64
	for _, s := range db.shards {
		cf, err := s.GetCollectionFreq(ctx, term)
		if err != nil {
			return 0, err
		}
		total += cf
	}
	return total, nil
}

func (db *Database) GetWDFUpperBound(ctx context.Context, term []byte) (uint32, error) {
	if err := db.requireOpen(); err != nil {
		return 0, err
	}
	var max uint32
	for _, s := range db.shards {
		w, err := s.GetWDFUpperBound(ctx, term)
		if err != nil {
			return 0, err
		}
		if w > max {
			max = w
		}
	}
	return max, nil
}

func (db *Database) GetDocLengthLowerBound(ctx context.Context) (uint32, error) {
	if err := db.requireOpen(); err != nil {
		return 0, err
	}
	var min uint32
	first := true
	for _, s := range db.shards {
		v, err := s.GetDocLengthLowerBound(ctx)
		if err != nil {
			return 0, err
		}
		if first || v < min {
			min = v
			first = false
		}
	}
	return min, nil
}

func (db *Database) GetDocLengthUpperBound(ctx context.Context) (uint32, error) {
	if err := db.requireOpen(); err != nil {
		return 0, err
	}
	var max uint32
	for _, s := range db.shards {
		v, err := s.GetDocLengthUpperBound(ctx)
		if err != nil {
			return 0, err
		}
		if v > max {
			max = v
		}
	}
	return max, nil
}

// PostlistBegin opens a posting-list cursor bound to this handle's state.
// Ending-sentinel construction (PostlistEnd) never requires I/O: it's
// simply a cursor that reports AtEnd without ever calling Advance.
func (db *Database) PostlistBegin(ctx context.Context, term []byte) (iterator.PostingList, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	if len(db.shards) == 1 {
		return db.shards[0].PostingListBegin(ctx, term)
	}
	return newMergedPostingList(ctx, db.shards, term)
}

func (db *Database) PostlistEnd(term []byte) iterator.PostingList {
	return atEndPostingList{term: term}
}

func (db *Database) TermlistBegin(ctx context.Context, docID ftsdoc.DocID) (iterator.TermList, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	return db.shardFor(docID).TermListBegin(ctx, docID)
}

func (db *Database) TermlistEnd() iterator.TermList {
	return atEndTermList{}
}

func (db *Database) PositionlistBegin(ctx context.Context, docID ftsdoc.DocID, term []byte) (iterator.PositionList, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	return db.shardFor(docID).PositionListBegin(ctx, docID, term)
}

func (db *Database) PositionlistEnd() iterator.PositionList {
	return atEndPositionList{}
}

func (db *Database) AlltermsBegin(ctx context.Context, prefix []byte) (iterator.AllTermsList, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	if len(db.shards) == 1 {
		return db.shards[0].AllTermsBegin(ctx, prefix)
	}
	return newMergedAllTermsList(ctx, db.shards, prefix)
}

func (db *Database) AlltermsEnd() iterator.AllTermsList {
	return atEndAllTermsList{}
}

// GetValueFreq returns the number of documents carrying a value in slot
// (spec.md §4.3's value-slot family).
func (db *Database) GetValueFreq(ctx context.Context, slot int) (uint32, error) {
	if err := db.requireOpen(); err != nil {
		return 0, err
	}
	var total uint32
	for _, s := range db.shards {
		v, err := s.GetValueFreq(ctx, slot)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// GetValueLowerBound returns the lexicographically smallest value stored in
// slot across every shard, or nil if no document carries one.
func (db *Database) GetValueLowerBound(ctx context.Context, slot int) ([]byte, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	var lower []byte
	for _, s := range db.shards {
		v, err := s.GetValueLowerBound(ctx, slot)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if lower == nil || bytes.Compare(v, lower) < 0 {
			lower = v
		}
	}
	return lower, nil
}

// GetValueUpperBound returns the lexicographically largest value stored in
// slot across every shard, or nil if no document carries one.
func (db *Database) GetValueUpperBound(ctx context.Context, slot int) ([]byte, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	var upper []byte
	for _, s := range db.shards {
		v, err := s.GetValueUpperBound(ctx, slot)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if upper == nil || bytes.Compare(v, upper) > 0 {
			upper = v
		}
	}
	return upper, nil
}

// ValuestreamBegin opens a (docid, value) cursor over slot bound to this
// handle's state.
func (db *Database) ValuestreamBegin(ctx context.Context, slot int) (iterator.ValueStream, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	if len(db.shards) == 1 {
		return db.shards[0].ValueStreamBegin(ctx, slot)
	}
	return newMergedValueStream(ctx, db.shards, slot)
}

// ValuestreamEnd never requires I/O (spec.md §4.3).
func (db *Database) ValuestreamEnd() iterator.ValueStream {
	return atEndValueStream{}
}

// GetMetadataKeysBegin is a read-only convenience view over the metadata
// map of the backend this handle was opened against (spec.md §6.3). A
// handle with no attached metadata store (a plain read-only open against a
// backend that carries no writable side-channel) reports an always-empty
// view rather than an error.
func (db *Database) GetMetadataKeysBegin(ctx context.Context) (iterator.MetadataList, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	if db.metadata == nil {
		return &keyCursor{state: iterator.Unstarted}, nil
	}
	return db.metadata.KeysBegin(), nil
}
