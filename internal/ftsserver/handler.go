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

package ftsserver

import (
	"context"
	"encoding/gob"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/heroiclabs/ftsdb/internal/dbhandle"
	"github.com/heroiclabs/ftsdb/internal/ftserr"
	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// The wire envelope types mirror internal/remote's unexported ones field
// for field: this package and internal/remote are the two ends of the same
// bespoke protocol (spec.md §4.5/§4.6) and must agree on layout without
// importing each other's unexported types, so the shapes are duplicated
// here deliberately rather than shared.

type wireOp int

const (
	opPing wireOp = iota
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
	opPostingList
	opTermList
	opPositionList
	opAllTerms
	opGetValueFreq
	opGetValueLowerBound
	opGetValueUpperBound
	opValueStream
	opReopen
)

type wireRequest struct {
	Op     wireOp
	Term   []byte
	Prefix []byte
	DocID  ftsdoc.DocID
	Slot   int
}

type wirePostingEntry struct {
	DocID      ftsdoc.DocID
	WDF        uint32
	DocLength  uint32
	UniqueTerm uint32
	Positions  []uint32
}

type wireAllTermEntry struct {
	Term     []byte
	TermFreq uint32
}

type wireValueEntry struct {
	DocID ftsdoc.DocID
	Value []byte
}

type wireResponse struct {
	Err       string
	UUID      string
	Doc       *ftsdoc.Document
	Bool      bool
	Uint32    uint32
	Uint64    uint64
	Float64   float64
	DocID     ftsdoc.DocID
	Bytes     []byte
	Postings  []wirePostingEntry
	Terms     []ftsdoc.TermEntry
	Positions []uint32
	AllTerms  []wireAllTermEntry
	Values    []wireValueEntry
}

// connHandler services one accepted connection's request/response loop
// against a bound Database. Every connHandler is bound to the Server's one
// shared Database; workers do not get handles of their own.
type connHandler struct {
	logger *zap.Logger
	db     *dbhandle.Database
}

func newConnHandler(logger *zap.Logger, db *dbhandle.Database) *connHandler {
	return &connHandler{logger: logger, db: db}
}

func (h *connHandler) serve(conn net.Conn) error {
	enc := gob.NewEncoder(conn)
	dec := gob.NewDecoder(conn)
	ctx := context.Background()

	for {
		var req wireRequest
		if err := dec.Decode(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		resp := h.handle(ctx, &req)
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
}

func (h *connHandler) handle(ctx context.Context, req *wireRequest) *wireResponse {
	switch req.Op {
	case opPing:
		return &wireResponse{}
	case opReopen:
		return h.handleReopen(ctx)
	case opGetDocument:
		doc, err := h.db.GetDocument(ctx, req.DocID)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Doc: doc}
	case opTermExists:
		ok, err := h.db.TermExists(ctx, req.Term)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Bool: ok}
	case opGetTermFreq:
		v, err := h.db.GetTermFreq(ctx, req.Term)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Uint32: v}
	case opGetCollectionFreq:
		v, err := h.db.GetCollectionFreq(ctx, req.Term)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Uint64: v}
	case opGetWDFUpperBound:
		v, err := h.db.GetWDFUpperBound(ctx, req.Term)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Uint32: v}
	case opGetDocLength:
		v, err := h.db.GetDocLength(ctx, req.DocID)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Uint32: v}
	case opGetUniqueTerms:
		v, err := h.db.GetUniqueTerms(ctx, req.DocID)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Uint32: v}
	case opGetDocCount:
		return &wireResponse{Uint32: h.db.GetDocCount()}
	case opGetLastDocID:
		return &wireResponse{DocID: h.db.GetLastDocID()}
	case opGetAvLength:
		return &wireResponse{Float64: h.db.GetAvLength()}
	case opGetDocLengthLowerBound:
		v, err := h.db.GetDocLengthLowerBound(ctx)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Uint32: v}
	case opGetDocLengthUpperBound:
		v, err := h.db.GetDocLengthUpperBound(ctx)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Uint32: v}
	case opPostingList:
		return h.handlePostingList(ctx, req.Term)
	case opTermList:
		return h.handleTermList(ctx, req.DocID)
	case opPositionList:
		return h.handlePositionList(ctx, req.DocID, req.Term)
	case opAllTerms:
		return h.handleAllTerms(ctx, req.Prefix)
	case opGetValueFreq:
		v, err := h.db.GetValueFreq(ctx, req.Slot)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Uint32: v}
	case opGetValueLowerBound:
		v, err := h.db.GetValueLowerBound(ctx, req.Slot)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Bytes: v}
	case opGetValueUpperBound:
		v, err := h.db.GetValueUpperBound(ctx, req.Slot)
		if err != nil {
			return errResponse(err)
		}
		return &wireResponse{Bytes: v}
	case opValueStream:
		return h.handleValueStream(ctx, req.Slot)
	default:
		return &wireResponse{Err: "InvalidOperation: unknown op"}
	}
}

func (h *connHandler) handleReopen(ctx context.Context) *wireResponse {
	if err := h.db.Reopen(ctx); err != nil {
		return errResponse(err)
	}
	return &wireResponse{
		UUID:    h.db.GetUUID().String(),
		Uint32:  h.db.GetDocCount(),
		DocID:   h.db.GetLastDocID(),
		Float64: h.db.GetAvLength(),
	}
}

func (h *connHandler) handlePostingList(ctx context.Context, term []byte) *wireResponse {
	pl, err := h.db.PostlistBegin(ctx, term)
	if err != nil {
		return errResponse(err)
	}
	var out []wirePostingEntry
	for {
		if err := pl.Advance(ctx); err != nil {
			return errResponse(err)
		}
		if pl.State() != iterator.Positioned {
			break
		}
		positions, err := pl.Positions(ctx)
		if err != nil {
			return errResponse(err)
		}
		out = append(out, wirePostingEntry{
			DocID:      pl.GetDocID(),
			WDF:        pl.GetWDF(),
			DocLength:  pl.GetDocLength(),
			UniqueTerm: pl.GetUniqueTerms(),
			Positions:  positions,
		})
	}
	return &wireResponse{Postings: out}
}

func (h *connHandler) handleTermList(ctx context.Context, docID ftsdoc.DocID) *wireResponse {
	tl, err := h.db.TermlistBegin(ctx, docID)
	if err != nil {
		return errResponse(err)
	}
	var out []ftsdoc.TermEntry
	for {
		if err := tl.Advance(ctx); err != nil {
			return errResponse(err)
		}
		if tl.State() != iterator.Positioned {
			break
		}
		out = append(out, ftsdoc.TermEntry{Term: tl.GetTerm(), WDF: tl.GetWDF(), TermFreq: tl.GetTermFreq()})
	}
	return &wireResponse{Terms: out}
}

func (h *connHandler) handlePositionList(ctx context.Context, docID ftsdoc.DocID, term []byte) *wireResponse {
	pl, err := h.db.PositionlistBegin(ctx, docID, term)
	if err != nil {
		return errResponse(err)
	}
	var out []uint32
	for {
		if err := pl.Advance(ctx); err != nil {
			return errResponse(err)
		}
		if pl.State() != iterator.Positioned {
			break
		}
		out = append(out, pl.GetPosition())
	}
	return &wireResponse{Positions: out}
}

func (h *connHandler) handleAllTerms(ctx context.Context, prefix []byte) *wireResponse {
	al, err := h.db.AlltermsBegin(ctx, prefix)
	if err != nil {
		return errResponse(err)
	}
	var out []wireAllTermEntry
	for {
		if err := al.Advance(ctx); err != nil {
			return errResponse(err)
		}
		if al.State() != iterator.Positioned {
			break
		}
		out = append(out, wireAllTermEntry{Term: al.GetTerm(), TermFreq: al.GetTermFreq()})
	}
	return &wireResponse{AllTerms: out}
}

func (h *connHandler) handleValueStream(ctx context.Context, slot int) *wireResponse {
	vs, err := h.db.ValuestreamBegin(ctx, slot)
	if err != nil {
		return errResponse(err)
	}
	var out []wireValueEntry
	for {
		if err := vs.Advance(ctx); err != nil {
			return errResponse(err)
		}
		if vs.State() != iterator.Positioned {
			break
		}
		out = append(out, wireValueEntry{DocID: vs.GetDocID(), Value: vs.GetValue()})
	}
	return &wireResponse{Values: out}
}

func errResponse(err error) *wireResponse {
	return &wireResponse{Err: ftserr.WireMessage(err)}
}
