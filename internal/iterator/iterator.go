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

// Package iterator defines the uniform cursor contract every backend
// (local DA, remote) implements: posting lists, term lists, position
// lists, value streams, all-terms, spelling, synonyms and metadata. See
// spec.md §4.1.
package iterator

import (
	"context"

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
)

// State is the three-way cursor state from spec.md §4.1.
type State int

const (
	Unstarted State = iota
	Positioned
	AtEnd
)

// PostingList is the posting-list cursor contract. Two cursors over the
// same term from the same handle are independent (spec.md §3).
type PostingList interface {
	// Advance moves Unstarted->Positioned(first)|AtEnd, or
	// Positioned(x)->Positioned(next(x))|AtEnd. AtEnd is a no-op.
	Advance(ctx context.Context) error
	// SkipTo advances to the first element with docid >= key. wMin is an
	// advisory lower bound and must never filter more strongly than
	// "docid >= key and docid in the posting list" (spec.md §4.1).
	SkipTo(ctx context.Context, key ftsdoc.DocID, wMin uint32) error
	State() State
	// GetDocID, GetWDF, GetDocLength, GetUniqueTerms and Positions are
	// only valid when State() == Positioned.
	GetDocID() ftsdoc.DocID
	GetWDF() uint32
	GetDocLength() uint32
	GetUniqueTerms() uint32
	// Positions lazily materializes the ascending position list for the
	// current posting; it may perform I/O.
	Positions(ctx context.Context) ([]uint32, error)
	// TermFreq and Term are available in any state once the cursor has
	// been opened (they describe the term, not the current posting).
	TermFreq() uint32
	Term() []byte
}

// TermList is a document's termlist cursor: unique terms in a stable,
// unspecified per-cursor order, materialized eagerly (spec.md §4.2).
type TermList interface {
	Advance(ctx context.Context) error
	State() State
	GetTerm() []byte
	GetWDF() uint32
	GetTermFreq() uint32
}

// PositionList yields strictly ascending in-document positions for one
// (doc, term) pair.
type PositionList interface {
	Advance(ctx context.Context) error
	State() State
	GetPosition() uint32
}

// AllTermsList enumerates the database-wide term dictionary in
// lexicographic order, optionally restricted to a prefix.
type AllTermsList interface {
	Advance(ctx context.Context) error
	State() State
	GetTerm() []byte
	GetTermFreq() uint32
}

// ValueStream enumerates (docid, value) pairs for one value slot in
// ascending docid order.
type ValueStream interface {
	Advance(ctx context.Context) error
	SkipTo(ctx context.Context, key ftsdoc.DocID) error
	State() State
	GetDocID() ftsdoc.DocID
	GetValue() []byte
}

// SpellingList enumerates the spelling correction corpus.
type SpellingList interface {
	Advance(ctx context.Context) error
	State() State
	GetWord() []byte
}

// SynonymList enumerates the synonym set for one key term.
type SynonymList interface {
	Advance(ctx context.Context) error
	State() State
	GetSynonym() []byte
}

// MetadataList enumerates metadata keys.
type MetadataList interface {
	Advance(ctx context.Context) error
	State() State
	GetKey() []byte
}
