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
	"sync"

	"github.com/heroiclabs/ftsdb/internal/ftserr"
	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// daTermState is the tagged variant from spec.md §9: a DATerm starts out
// knowing only its name, and is resolved to a heavy termRecord on first
// dictionary probe.
type daTermState int

const (
	unresolved daTermState = iota
	resolved
	resolvedAbsent // probed, dictionary confirmed the term does not exist
)

// DATerm is "name known now, heavy record fetched on first need."
type DATerm struct {
	name  []byte
	state daTermState
	rec   *termRecord
}

// TermCache memoizes both the dictionary probe and the posting-list
// opening for every term queried against one Reader. Entries are created
// on miss and never evicted for the life of the handle (spec.md §4.2).
type TermCache struct {
	mu      sync.Mutex
	entries map[string]*DATerm
}

func newTermCache() *TermCache {
	return &TermCache{entries: make(map[string]*DATerm)}
}

func (c *TermCache) get(term []byte) (*DATerm, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[string(term)]
	return t, ok
}

func (c *TermCache) put(term []byte, t *DATerm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[string(term)] = t
}

// Reader is the DA backend's read-only posting-list/term-dictionary/
// termlist surface for one segment. It is the unit dbhandle.Database
// multiplexes across shards.
type Reader struct {
	mu  sync.RWMutex
	seg *segment
	tc  *TermCache
}

// OpenReader builds a fresh, empty segment. Real deployments persist and
// reload segments from disk; the on-disk byte layout is out of scope
// (spec.md §1), so this constructor stands in for "load the current
// generation from the database directory".
func OpenReader() *Reader {
	return &Reader{seg: emptySegment(), tc: newTermCache()}
}

// replace swaps in a freshly built segment (used by the writable layer's
// commit path) and resets the term cache, since cached DATerm entries
// point at the previous segment's termRecords.
func (r *Reader) replace(seg *segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seg = seg
	r.tc = newTermCache()
}

func (r *Reader) snapshot() (*segment, *TermCache) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seg, r.tc
}

// resolve performs (or replays the cached result of) a dictionary probe
// for term. A probe for a term the cache has never seen returning "not
// found" is a clean absence, not corruption (spec.md §4.2).
func (r *Reader) resolve(term []byte) (*DATerm, error) {
	seg, tc := r.snapshot()
	if t, ok := tc.get(term); ok {
		return t, nil
	}

	idx, found, err := seg.dict.Get(term)
	if err != nil {
		return nil, ftserr.Newf(ftserr.DatabaseCorrupt, "dictionary probe for %q: %v", term, err)
	}
	t := &DATerm{name: append([]byte(nil), term...)}
	if !found {
		t.state = resolvedAbsent
		tc.put(term, t)
		return t, nil
	}
	if int(idx) >= len(seg.terms) {
		return nil, ftserr.Newf(ftserr.DatabaseCorrupt, "dictionary points past term table for %q", term)
	}
	t.state = resolved
	t.rec = seg.terms[idx]
	tc.put(term, t)
	return t, nil
}

// TermExists reports whether term occurs in any document.
func (r *Reader) TermExists(ctx context.Context, term []byte) (bool, error) {
	t, err := r.resolve(term)
	if err != nil {
		return false, err
	}
	return t.state == resolved, nil
}

// GetTermFreq returns the number of documents containing term (0 if absent).
func (r *Reader) GetTermFreq(ctx context.Context, term []byte) (uint32, error) {
	t, err := r.resolve(term)
	if err != nil {
		return 0, err
	}
	if t.state != resolved {
		return 0, nil
	}
	return t.rec.termFreq, nil
}

// GetCollectionFreq returns the total occurrence count of term.
func (r *Reader) GetCollectionFreq(ctx context.Context, term []byte) (uint64, error) {
	t, err := r.resolve(term)
	if err != nil {
		return 0, err
	}
	if t.state != resolved {
		return 0, nil
	}
	return t.rec.collFreq, nil
}

// GetWDFUpperBound returns an upper bound on wdf for term across all docs.
func (r *Reader) GetWDFUpperBound(ctx context.Context, term []byte) (uint32, error) {
	t, err := r.resolve(term)
	if err != nil {
		return 0, err
	}
	if t.state != resolved {
		return 0, nil
	}
	var max uint32
	for _, w := range t.rec.wdf {
		if w > max {
			max = w
		}
	}
	return max, nil
}

// PostingListBegin opens a posting-list cursor for term, Unstarted.
func (r *Reader) PostingListBegin(ctx context.Context, term []byte) (iterator.PostingList, error) {
	t, err := r.resolve(term)
	if err != nil {
		return nil, err
	}
	seg, _ := r.snapshot()
	return newPostingsCursor(t, seg.docs), nil
}

// TermListBegin opens a materialized termlist cursor for docID.
func (r *Reader) TermListBegin(ctx context.Context, docID ftsdoc.DocID) (iterator.TermList, error) {
	seg, _ := r.snapshot()
	info, ok := seg.docs[docID]
	if !ok {
		return nil, ftserr.Newf(ftserr.InvalidArgument, "docid %d does not exist", docID)
	}
	return newTermListCursor(info.terms), nil
}

// PositionListBegin opens a position-list cursor for (docID, term).
func (r *Reader) PositionListBegin(ctx context.Context, docID ftsdoc.DocID, term []byte) (iterator.PositionList, error) {
	t, err := r.resolve(term)
	if err != nil {
		return nil, err
	}
	if t.state != resolved {
		return newPositionListCursor(nil), nil
	}
	idx := t.rec.docIDs.Rank(uint32(docID)) - 1
	if !t.rec.docIDs.Contains(uint32(docID)) {
		return newPositionListCursor(nil), nil
	}
	positions, err := decodePositions(t.rec.posBlock[idx], t.rec.posCount[idx])
	if err != nil {
		return nil, err
	}
	return newPositionListCursor(positions), nil
}

// AllTermsBegin enumerates the dictionary, optionally restricted to prefix.
func (r *Reader) AllTermsBegin(ctx context.Context, prefix []byte) (iterator.AllTermsList, error) {
	seg, _ := r.snapshot()
	return newAllTermsCursor(seg, prefix)
}

// GetDocument fetches a document's stored data and value slots.
func (r *Reader) GetDocument(ctx context.Context, docID ftsdoc.DocID) (*ftsdoc.Document, error) {
	seg, _ := r.snapshot()
	info, ok := seg.docs[docID]
	if !ok {
		return nil, ftserr.Newf(ftserr.InvalidArgument, "docid %d does not exist", docID)
	}
	return &ftsdoc.Document{Data: info.data, Values: info.values}, nil
}

func (r *Reader) GetDocLength(ctx context.Context, docID ftsdoc.DocID) (uint32, error) {
	seg, _ := r.snapshot()
	info, ok := seg.docs[docID]
	if !ok {
		return 0, ftserr.Newf(ftserr.InvalidArgument, "docid %d does not exist", docID)
	}
	return info.doclen, nil
}

func (r *Reader) GetUniqueTerms(ctx context.Context, docID ftsdoc.DocID) (uint32, error) {
	seg, _ := r.snapshot()
	info, ok := seg.docs[docID]
	if !ok {
		return 0, ftserr.Newf(ftserr.InvalidArgument, "docid %d does not exist", docID)
	}
	return info.uniqueTerm, nil
}

func (r *Reader) GetDocCount(ctx context.Context) (uint32, error) {
	seg, _ := r.snapshot()
	return seg.docCount, nil
}

func (r *Reader) GetLastDocID(ctx context.Context) (ftsdoc.DocID, error) {
	seg, _ := r.snapshot()
	return seg.lastDoc, nil
}

func (r *Reader) GetAvLength(ctx context.Context) (float64, error) {
	seg, _ := r.snapshot()
	return seg.avgDocLength(), nil
}

func (r *Reader) GetDocLengthLowerBound(ctx context.Context) (uint32, error) {
	seg, _ := r.snapshot()
	var min uint32
	first := true
	for _, info := range seg.docs {
		if first || info.doclen < min {
			min = info.doclen
			first = false
		}
	}
	return min, nil
}

func (r *Reader) GetDocLengthUpperBound(ctx context.Context) (uint32, error) {
	seg, _ := r.snapshot()
	var max uint32
	for _, info := range seg.docs {
		if info.doclen > max {
			max = info.doclen
		}
	}
	return max, nil
}
