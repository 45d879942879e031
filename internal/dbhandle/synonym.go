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
	"sync"

	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// synonymMap is the term -> {synonyms} multimap sub-API (spec.md §4.4).
// Keys with at least one synonym are kept in orderedKeys so
// synonym_keys_begin() enumerates lexicographically.
type synonymMap struct {
	mu   sync.Mutex
	keys orderedKeys
	data map[string]map[string]struct{}
}

func newSynonymMap() *synonymMap {
	return &synonymMap{data: make(map[string]map[string]struct{})}
}

// Add registers synonym as a synonym of term.
func (m *synonymMap) Add(term, synonym []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(term)
	set, ok := m.data[key]
	if !ok {
		set = make(map[string]struct{})
		m.data[key] = set
		m.keys.insert(term)
	}
	set[string(synonym)] = struct{}{}
}

// Remove drops synonym from term's set.
func (m *synonymMap) Remove(term, synonym []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(term)
	set, ok := m.data[key]
	if !ok {
		return
	}
	delete(set, string(synonym))
	if len(set) == 0 {
		delete(m.data, key)
		m.keys.remove(term)
	}
}

// Clear drops every synonym registered for term.
func (m *synonymMap) Clear(term []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(term)
	if _, ok := m.data[key]; !ok {
		return
	}
	delete(m.data, key)
	m.keys.remove(term)
}

// Get returns the synonyms currently registered for term, in unspecified
// order.
func (m *synonymMap) Get(term []byte) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.data[string(term)]
	out := make([][]byte, 0, len(set))
	for s := range set {
		out = append(out, []byte(s))
	}
	return out
}

// KeysBegin enumerates every key term with at least one synonym, ascending.
func (m *synonymMap) KeysBegin() iterator.MetadataList {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &keyCursor{keys: m.keys.snapshot(), state: iterator.Unstarted}
}

// keyCursor is the shared ordered-byte-key enumerator used by both the
// synonym-keys and metadata-keys sub-APIs.
type keyCursor struct {
	keys  [][]byte
	idx   int
	state iterator.State
}

func (c *keyCursor) Advance(context.Context) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	if c.state == iterator.Positioned {
		c.idx++
	}
	if c.idx >= len(c.keys) {
		c.state = iterator.AtEnd
		return nil
	}
	c.state = iterator.Positioned
	return nil
}

func (c *keyCursor) State() iterator.State { return c.state }

func (c *keyCursor) GetKey() []byte {
	if c.state != iterator.Positioned {
		return nil
	}
	return c.keys[c.idx]
}
