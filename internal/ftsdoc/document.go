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

// Package ftsdoc holds the data model shared by every backend: documents,
// terms, postings and value slots. See spec.md §3.
package ftsdoc

// DocID identifies a document within its shard. Zero is never a valid
// docid; it is reserved as the Unstarted cursor sentinel.
type DocID uint32

// MaxDocID is the AtEnd cursor sentinel for posting-list cursors.
const MaxDocID DocID = ^DocID(0)

// MaxTermLen is the DA backend's term length bound (spec.md §3).
const MaxTermLen = 255

// Posting is one (term, positions) entry attached to a document being
// built for insertion.
type Posting struct {
	Term      []byte
	Positions []uint32
}

// Document is the unit of storage: opaque data, numbered value slots, and
// postings. The empty document (no postings, no values, no data) is valid.
type Document struct {
	Data     []byte
	Values   map[int][]byte
	Postings []Posting
}

// TermInfo is the per-term metadata of a resolved term: termfreq,
// collection frequency and the wdf upper bound.
type TermInfo struct {
	TermFreq     uint32 // number of documents containing the term
	CollFreq     uint64 // total occurrences across all documents
	WDFUpperBnd  uint32 // upper bound on wdf for this term across all docs
}

// TermEntry is one element of a document's materialized termlist:
// spec.md §4.2 says this list is built eagerly at cursor construction.
type TermEntry struct {
	Term     []byte
	WDF      uint32
	TermFreq uint32
}
