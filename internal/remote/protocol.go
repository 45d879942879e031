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

// Package remote implements the backend iterator contract over a raw TCP
// stream (spec.md §4.6). The wire format isn't specified (spec.md §1 puts
// byte-level layout out of scope), so requests and responses are gob
// values: one gob.Encoder/Decoder pair per connection, request-then-response,
// no pipelining. This keeps the protocol entirely inside the standard
// library, the same way spec.md leaves the real wire format unopinionated.
package remote

import (
	"time"

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
)

// opCode identifies the requested backend operation.
type opCode int

const (
	opPing opCode = iota
	opGetDocument
	opTermExists
	opGetTermFreq
	opGetCollectionFreq
	opGetWDFUpperBound
	opGetDocLength
	opGetUniqueTerms
	opGetDocCount
	opGetLastDocID
	opGetAvLength
	opGetDocLengthLowerBound
	opGetDocLengthUpperBound
	opPostingList  // returns the full materialized posting list for a term
	opTermList     // returns the full materialized termlist for a docid
	opPositionList // returns the full position list for (docid, term)
	opAllTerms     // returns the full term list, optionally restricted to a prefix
	opGetValueFreq
	opGetValueLowerBound
	opGetValueUpperBound
	opValueStream // returns the full materialized value stream for a slot
	opReopen
)

// request is the single envelope type sent client->server. Only the fields
// relevant to Op are populated.
type request struct {
	Op     opCode
	Term   []byte
	Prefix []byte
	DocID  ftsdoc.DocID
	Slot   int
}

// postingEntry is one flattened posting within a postingList response.
type postingEntry struct {
	DocID      ftsdoc.DocID
	WDF        uint32
	DocLength  uint32
	UniqueTerm uint32
	Positions  []uint32
}

// response is the single envelope type sent server->client.
type response struct {
	Err string // empty on success; otherwise ftserr.Kind name + message

	UUID      string
	Doc       *ftsdoc.Document
	Bool      bool
	Uint32    uint32
	Uint64    uint64
	Float64   float64
	DocID     ftsdoc.DocID
	Bytes     []byte // get_value_lower_bound / get_value_upper_bound result
	Postings  []postingEntry
	Terms     []ftsdoc.TermEntry
	Positions []uint32
	AllTerms  []allTermEntry
	Values    []valueEntry
}

type allTermEntry struct {
	Term     []byte
	TermFreq uint32
}

// valueEntry is one flattened (docid, value) pair within a valueStream
// response.
type valueEntry struct {
	DocID ftsdoc.DocID
	Value []byte
}

// defaultDialTimeout is used when Dial is given a non-positive timeout
// (cmd/ftsd passes DatabaseConfig.ConnectTimeoutMs).
const defaultDialTimeout = 5 * time.Second
