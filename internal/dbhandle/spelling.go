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
	"sort"
	"sync"

	"github.com/heroiclabs/ftsdb/internal/iterator"
)

// spellingWord is one corpus entry: a word and the number of times it has
// been added minus removed.
type spellingWord struct {
	word []byte
	freq uint32
}

// spellingCorpus is the add/remove/suggest side-channel used to produce
// spelling corrections (spec.md §4.4). Entries live in a slice kept sorted
// by word so SpellingBegin enumerates lexicographically without a separate
// sort step; frequency bumps never change a word's position, so the common
// Add/Remove path on an already-known word touches no ordering at all.
type spellingCorpus struct {
	mu      sync.Mutex
	ordered []*spellingWord
	byWord  map[string]*spellingWord
}

func newSpellingCorpus() *spellingCorpus {
	return &spellingCorpus{byWord: make(map[string]*spellingWord)}
}

func (c *spellingCorpus) insertionPoint(word []byte) int {
	return sort.Search(len(c.ordered), func(i int) bool {
		return string(c.ordered[i].word) >= string(word)
	})
}

// Add increments word's frequency in the corpus, inserting it if new.
func (c *spellingCorpus) Add(word []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := string(word)
	if w, ok := c.byWord[key]; ok {
		w.freq++
		return
	}
	w := &spellingWord{word: append([]byte(nil), word...), freq: 1}
	c.byWord[key] = w
	i := c.insertionPoint(word)
	c.ordered = append(c.ordered, nil)
	copy(c.ordered[i+1:], c.ordered[i:])
	c.ordered[i] = w
}

// Remove drops one occurrence of word; the word leaves the corpus once its
// frequency reaches zero.
func (c *spellingCorpus) Remove(word []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := string(word)
	w, ok := c.byWord[key]
	if !ok {
		return
	}
	w.freq--
	if w.freq > 0 {
		return
	}
	delete(c.byWord, key)
	i := c.insertionPoint(word)
	if i < len(c.ordered) && c.ordered[i] == w {
		c.ordered = append(c.ordered[:i], c.ordered[i+1:]...)
	}
}

// Suggest returns the corpus word closest to q under Damerau-Levenshtein
// edit distance, breaking ties by higher frequency then lexicographic order
// (spec.md §4.4). Returns nil if the corpus is empty.
func (c *spellingCorpus) Suggest(q []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	var best *spellingWord
	bestDist := -1
	for _, w := range c.ordered {
		d := damerauLevenshtein(q, w.word)
		switch {
		case bestDist == -1 || d < bestDist:
			best, bestDist = w, d
		case d == bestDist && w.freq > best.freq:
			best = w
		}
	}
	if best == nil {
		return nil
	}
	return append([]byte(nil), best.word...)
}

// SpellingBegin enumerates the corpus in ascending lexicographic order.
func (c *spellingCorpus) SpellingBegin() iterator.SpellingList {
	c.mu.Lock()
	defer c.mu.Unlock()
	words := make([][]byte, len(c.ordered))
	for i, w := range c.ordered {
		words[i] = w.word
	}
	return &spellingCursor{words: words}
}

type spellingCursor struct {
	words [][]byte
	idx   int
	state iterator.State
}

func (c *spellingCursor) Advance(context.Context) error {
	if c.state == iterator.AtEnd {
		return nil
	}
	if c.state == iterator.Positioned {
		c.idx++
	}
	if c.idx >= len(c.words) {
		c.state = iterator.AtEnd
		return nil
	}
	c.state = iterator.Positioned
	return nil
}

func (c *spellingCursor) State() iterator.State { return c.state }

func (c *spellingCursor) GetWord() []byte {
	if c.state != iterator.Positioned {
		return nil
	}
	return c.words[c.idx]
}

// damerauLevenshtein computes the optimal-string-alignment edit distance
// between two byte strings: insertion, deletion, substitution, and
// transposition of two adjacent bytes each cost 1 (spec.md §4.4).
func damerauLevenshtein(a, b []byte) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	la, lb := len(a), len(b)
	// d[i][j] holds the edit distance between a[:i] and b[:j].
	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if t := d[i-2][j-2] + 1; t < m {
					m = t
				}
			}
			d[i][j] = m
		}
	}
	return d[la][lb]
}
