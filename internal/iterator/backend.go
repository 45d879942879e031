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

package iterator

import (
	"context"

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
)

// Backend is the capability set every concrete backend (local DA, remote
// TCP client) must satisfy so a Database handle can multiplex across
// shards without caring which kind of backend each shard is (spec.md §9's
// "virtual-inheritance backend hierarchy ... modelled as a capability
// set").
type Backend interface {
	PostingListBegin(ctx context.Context, term []byte) (PostingList, error)
	TermListBegin(ctx context.Context, docID ftsdoc.DocID) (TermList, error)
	PositionListBegin(ctx context.Context, docID ftsdoc.DocID, term []byte) (PositionList, error)
	AllTermsBegin(ctx context.Context, prefix []byte) (AllTermsList, error)

	GetDocument(ctx context.Context, docID ftsdoc.DocID) (*ftsdoc.Document, error)
	TermExists(ctx context.Context, term []byte) (bool, error)
	GetTermFreq(ctx context.Context, term []byte) (uint32, error)
	GetCollectionFreq(ctx context.Context, term []byte) (uint64, error)
	GetWDFUpperBound(ctx context.Context, term []byte) (uint32, error)

	GetDocLength(ctx context.Context, docID ftsdoc.DocID) (uint32, error)
	GetUniqueTerms(ctx context.Context, docID ftsdoc.DocID) (uint32, error)
	GetDocCount(ctx context.Context) (uint32, error)
	GetLastDocID(ctx context.Context) (ftsdoc.DocID, error)
	GetAvLength(ctx context.Context) (float64, error)
	GetDocLengthLowerBound(ctx context.Context) (uint32, error)
	GetDocLengthUpperBound(ctx context.Context) (uint32, error)

	// Value-slot family (spec.md §4.3): get_value_freq, get_value_lower_bound,
	// get_value_upper_bound and valuestream_begin over one numbered slot.
	GetValueFreq(ctx context.Context, slot int) (uint32, error)
	GetValueLowerBound(ctx context.Context, slot int) ([]byte, error)
	GetValueUpperBound(ctx context.Context, slot int) ([]byte, error)
	ValueStreamBegin(ctx context.Context, slot int) (ValueStream, error)
}

// WritableBackend extends Backend with the mutation surface a writable
// handle drives directly against its single local backend (spec.md §4.4).
// da.Writer implements it; da.Reader and remote.Client do not. cmd/ftsd
// wraps a remote.Client in an adapter whose mutation methods all return
// FeatureUnavailable.
type WritableBackend interface {
	Backend
	Stage(ctx context.Context, docID ftsdoc.DocID, doc *ftsdoc.Document) error
	StageDelete(ctx context.Context, docID ftsdoc.DocID) error
	NextDocID(ctx context.Context) (ftsdoc.DocID, error)
	Commit(ctx context.Context) error
	DiscardStaged(ctx context.Context) error
}
