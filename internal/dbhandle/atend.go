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

	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// The *End constructors never perform I/O (spec.md §4.3): they return a
// cursor permanently in the AtEnd state, so `it == it_end` can be compared
// without touching the backend.

type atEndPostingList struct{ term []byte }

func (atEndPostingList) Advance(context.Context) error                      { return nil }
func (atEndPostingList) SkipTo(context.Context, ftsdoc.DocID, uint32) error  { return nil }
func (atEndPostingList) State() iterator.State                              { return iterator.AtEnd }
func (atEndPostingList) GetDocID() ftsdoc.DocID                             { return ftsdoc.MaxDocID }
func (atEndPostingList) GetWDF() uint32                                    { return 0 }
func (atEndPostingList) GetDocLength() uint32                              { return 0 }
func (atEndPostingList) GetUniqueTerms() uint32                            { return 0 }
func (atEndPostingList) Positions(context.Context) ([]uint32, error)       { return nil, nil }
func (a atEndPostingList) TermFreq() uint32                                { return 0 }
func (a atEndPostingList) Term() []byte                                    { return a.term }

type atEndTermList struct{}

func (atEndTermList) Advance(context.Context) error { return nil }
func (atEndTermList) State() iterator.State         { return iterator.AtEnd }
func (atEndTermList) GetTerm() []byte               { return nil }
func (atEndTermList) GetWDF() uint32                { return 0 }
func (atEndTermList) GetTermFreq() uint32           { return 0 }

type atEndPositionList struct{}

func (atEndPositionList) Advance(context.Context) error { return nil }
func (atEndPositionList) State() iterator.State         { return iterator.AtEnd }
func (atEndPositionList) GetPosition() uint32           { return 0 }

type atEndAllTermsList struct{}

func (atEndAllTermsList) Advance(context.Context) error { return nil }
func (atEndAllTermsList) State() iterator.State         { return iterator.AtEnd }
func (atEndAllTermsList) GetTerm() []byte               { return nil }
func (atEndAllTermsList) GetTermFreq() uint32           { return 0 }

type atEndValueStream struct{}

func (atEndValueStream) Advance(context.Context) error                     { return nil }
func (atEndValueStream) SkipTo(context.Context, ftsdoc.DocID) error        { return nil }
func (atEndValueStream) State() iterator.State                            { return iterator.AtEnd }
func (atEndValueStream) GetDocID() ftsdoc.DocID                           { return ftsdoc.MaxDocID }
func (atEndValueStream) GetValue() []byte                                 { return nil }
