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

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
)

// Writer adds the mutation surface (iterator.WritableBackend) on top of a
// read-only Reader. Staged writes accumulate in memory; Commit rebuilds a
// fresh segment (spec.md §4.2's "DA backend" plus spec.md §4.4's writable
// layer) and atomically swaps it into the Reader.
type Writer struct {
	*Reader

	mu     sync.Mutex
	staged map[ftsdoc.DocID]*ftsdoc.Document // nil value = staged delete
	next   ftsdoc.DocID
}

// OpenWriter opens a writable DA backend. Real deployments load the
// current on-disk generation first; the byte layout is out of scope
// (spec.md §1), so this always starts from an empty segment.
func OpenWriter() *Writer {
	return &Writer{
		Reader: OpenReader(),
		staged: make(map[ftsdoc.DocID]*ftsdoc.Document),
	}
}

func (w *Writer) NextDocID(ctx context.Context) (ftsdoc.DocID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	seg, _ := w.Reader.snapshot()
	next := seg.lastDoc + 1
	if next <= w.next {
		next = w.next + 1
	}
	w.next = next
	return next, nil
}

func (w *Writer) Stage(ctx context.Context, docID ftsdoc.DocID, doc *ftsdoc.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := *doc
	w.staged[docID] = &cp
	return nil
}

func (w *Writer) StageDelete(ctx context.Context, docID ftsdoc.DocID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.staged[docID] = nil
	return nil
}

// Commit rebuilds the segment from the current generation plus staged
// changes and swaps it in. The caller (dbhandle's writable layer) is
// responsible for serializing Commit with concurrent Stage/StageDelete
// calls on the same handle; per spec.md §5, a single handle is not safe
// for concurrent use from multiple goroutines.
func (w *Writer) Commit(ctx context.Context) error {
	w.mu.Lock()
	staged := w.staged
	w.staged = make(map[ftsdoc.DocID]*ftsdoc.Document)
	w.mu.Unlock()

	if len(staged) == 0 {
		return nil
	}

	seg, _ := w.Reader.snapshot()
	merged := make(map[ftsdoc.DocID]ftsdoc.Document, len(seg.docs)+len(staged))
	for docID, info := range seg.docs {
		merged[docID] = ftsdoc.Document{Data: info.data, Values: info.values, Postings: info.postings}
	}
	for docID, doc := range staged {
		if doc == nil {
			delete(merged, docID)
			continue
		}
		merged[docID] = *doc
	}

	newSeg, err := buildSegment(&buildInput{docs: merged})
	if err != nil {
		return err
	}
	w.Reader.replace(newSeg)
	return nil
}

// DiscardStaged drops pending staged writes without touching the current
// segment (spec.md §4.4's cancel_transaction / close-with-active-txn path).
func (w *Writer) DiscardStaged(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.staged = make(map[ftsdoc.DocID]*ftsdoc.Document)
	return nil
}

// HasStaged reports whether any mutation is pending, so the writable
// handle's commit() can be a documented no-op when there's nothing to do.
func (w *Writer) HasStaged() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.staged) > 0
}

// GetDocCount overrides Reader.GetDocCount to fold in staged-but-uncommitted
// adds and deletes, so doccount observed within a writable handle matches
// what commit() would produce (spec.md §8's writable-handle seed scenarios).
func (w *Writer) GetDocCount(ctx context.Context) (uint32, error) {
	seg, _ := w.Reader.snapshot()
	w.mu.Lock()
	defer w.mu.Unlock()
	count := int(seg.docCount)
	for docID, doc := range w.staged {
		_, existed := seg.docs[docID]
		switch {
		case doc == nil && existed:
			count--
		case doc != nil && !existed:
			count++
		}
	}
	if count < 0 {
		count = 0
	}
	return uint32(count), nil
}

// GetLastDocID overrides Reader.GetLastDocID to account for staged adds
// that extend past the committed segment's last docid.
func (w *Writer) GetLastDocID(ctx context.Context) (ftsdoc.DocID, error) {
	seg, _ := w.Reader.snapshot()
	w.mu.Lock()
	defer w.mu.Unlock()
	last := seg.lastDoc
	for docID, doc := range w.staged {
		if doc != nil && docID > last {
			last = docID
		}
	}
	return last, nil
}
