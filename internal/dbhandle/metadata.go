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
	"sync"

	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// metadataStore is the byte-string keyed, byte-string valued map persisted
// alongside the database (spec.md §4.4). Keys are kept in a sorted slice
// (via orderedKeys) so KeysBegin enumerates ascending without a sort step.
// Setting a key to an empty value deletes it, matching the teacher's
// convention for tombstone-by-empty-value in its own key/value caches.
type metadataStore struct {
	mu   sync.Mutex
	keys orderedKeys
	data map[string][]byte
}

func newMetadataStore() *metadataStore {
	return &metadataStore{data: make(map[string][]byte)}
}

// Set stores value under key. An empty value deletes the key instead.
func (s *metadataStore) Set(key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := string(key)
	if len(value) == 0 {
		if _, ok := s.data[k]; ok {
			delete(s.data, k)
			s.keys.remove(key)
		}
		return
	}
	if _, ok := s.data[k]; !ok {
		s.keys.insert(key)
	}
	s.data[k] = append([]byte(nil), value...)
}

// Get returns the value stored under key, or nil if absent.
func (s *metadataStore) Get(key []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil
	}
	return append([]byte(nil), v...)
}

// KeysBegin enumerates every stored key in ascending order.
func (s *metadataStore) KeysBegin() iterator.MetadataList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &keyCursor{keys: s.keys.snapshot(), state: iterator.Unstarted}
}
