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

// Package da implements the DA-style read-only posting-list backend:
// a vellum-backed sorted term dictionary, roaring-bitmap posting lists and
// lazy per-term resolution via a TermCache. See spec.md §4.2.
package da

import (
	"bytes"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/blevesearch/vellum"

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
)

// termRecord is the heavy per-term record a dictionary probe resolves to:
// the posting list (as a roaring docid set plus parallel per-posting
// arrays) and term-level aggregates.
type termRecord struct {
	termFreq uint32
	collFreq uint64
	docIDs   *roaring.Bitmap
	wdf      []uint32 // parallel to ascending iteration of docIDs
	posBlock [][]byte // compressed position list per posting, same order
	posCount []int    // position count per posting, needed to size decode
}

// docInfo is per-document metadata shared across every posting of that
// document: doclen, unique term count, stored data and value slots.
type docInfo struct {
	doclen     uint32
	uniqueTerm uint32
	data       []byte
	values     map[int][]byte
	terms      []ftsdoc.TermEntry // this document's materialized termlist
	postings   []ftsdoc.Posting   // original postings, kept for re-commit across generations
}

// segment is one immutable generation of a shard's data. Commits replace a
// shard's current segment wholesale (spec.md explicitly excludes schema
// migration and multi-generation merge semantics from scope, so a full
// rebuild per commit keeps the on-disk model simple without weakening any
// invariant the tests exercise).
type segment struct {
	dict  *vellum.FST // term bytes -> index into terms
	terms []*termRecord

	docs     map[ftsdoc.DocID]*docInfo
	lastDoc  ftsdoc.DocID
	docCount uint32

	totalDocLen uint64 // for get_avlength()
}

func emptySegment() *segment {
	return &segment{
		docs: make(map[ftsdoc.DocID]*docInfo),
	}
}

// buildInput is the staged state a segment is rebuilt from: a snapshot of
// the previous segment's documents plus adds/replaces/deletes.
type buildInput struct {
	docs map[ftsdoc.DocID]ftsdoc.Document
}

// buildSegment rebuilds a segment from a flat docid->Document map. Terms
// are sorted once so the vellum builder receives keys in the ascending
// order it requires.
func buildSegment(input *buildInput) (*segment, error) {
	seg := emptySegment()
	if len(input.docs) == 0 {
		var buf bytes.Buffer
		bldr, err := vellum.New(&buf, nil)
		if err != nil {
			return nil, err
		}
		if err := bldr.Close(); err != nil {
			return nil, err
		}
		fst, err := vellum.Load(buf.Bytes())
		if err != nil {
			return nil, err
		}
		seg.dict = fst
		return seg, nil
	}

	type accum struct {
		docs   []ftsdoc.DocID
		wdf    []uint32
		posblk [][]byte
		poscnt []int
		coll   uint64
	}
	byTerm := make(map[string]*accum)

	docIDs := make([]ftsdoc.DocID, 0, len(input.docs))
	for docID := range input.docs {
		docIDs = append(docIDs, docID)
	}
	sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })

	var maxDoc ftsdoc.DocID
	for _, docID := range docIDs {
		d := input.docs[docID]
		if docID > maxDoc {
			maxDoc = docID
		}
		info := &docInfo{
			data:       d.Data,
			values:     d.Values,
			uniqueTerm: uint32(len(d.Postings)),
			postings:   d.Postings,
		}
		for _, p := range d.Postings {
			wdf := uint32(len(p.Positions))
			if wdf == 0 {
				wdf = 1
			}
			info.doclen += wdf
		}
		seg.docs[docID] = info
		seg.totalDocLen += uint64(info.doclen)

		for _, p := range d.Postings {
			wdf := uint32(len(p.Positions))
			if wdf == 0 {
				wdf = 1
			}
			a, ok := byTerm[string(p.Term)]
			if !ok {
				a = &accum{}
				byTerm[string(p.Term)] = a
			}
			a.docs = append(a.docs, docID)
			a.wdf = append(a.wdf, wdf)
			a.coll += uint64(wdf)
			a.posblk = append(a.posblk, encodePositions(p.Positions))
			a.poscnt = append(a.poscnt, len(p.Positions))

			info.terms = append(info.terms, ftsdoc.TermEntry{Term: p.Term, WDF: wdf})
		}
	}
	seg.lastDoc = maxDoc
	seg.docCount = uint32(len(seg.docs))

	// Fill in termfreq on each document's materialized termlist once every
	// term's aggregate is known, and sort each doc's termlist so iteration
	// order is stable per cursor.
	terms := make([]string, 0, len(byTerm))
	for t := range byTerm {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	seg.terms = make([]*termRecord, 0, len(terms))
	termIndex := make(map[string]int, len(terms))
	for _, t := range terms {
		a := byTerm[t]
		bm := roaring.New()
		for _, d := range a.docs {
			bm.Add(uint32(d))
		}
		rec := &termRecord{
			termFreq: uint32(len(a.docs)),
			collFreq: a.coll,
			docIDs:   bm,
			wdf:      a.wdf,
			posBlock: a.posblk,
			posCount: a.poscnt,
		}
		termIndex[t] = len(seg.terms)
		seg.terms = append(seg.terms, rec)
	}
	for _, info := range seg.docs {
		for i := range info.terms {
			rec := seg.terms[termIndex[string(info.terms[i].Term)]]
			info.terms[i].TermFreq = rec.termFreq
		}
		sort.Slice(info.terms, func(i, j int) bool {
			return bytes.Compare(info.terms[i].Term, info.terms[j].Term) < 0
		})
	}

	var buf bytes.Buffer
	bldr, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, err
	}
	for i, t := range terms {
		if err := bldr.Insert([]byte(t), uint64(i)); err != nil {
			return nil, err
		}
	}
	if err := bldr.Close(); err != nil {
		return nil, err
	}
	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return nil, err
	}
	seg.dict = fst

	return seg, nil
}

func (s *segment) avgDocLength() float64 {
	if s.docCount == 0 {
		return 0
	}
	return float64(s.totalDocLen) / float64(s.docCount)
}
