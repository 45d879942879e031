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

import "sort"

// orderedKeys keeps a set of byte-string keys sorted ascending, backing the
// metadata and synonym key-enumeration sub-APIs (spec.md §4.4). Insert and
// remove are O(n) (a shift on top of the binary search), which is the right
// tradeoff here: both sub-APIs enumerate far more often than they mutate,
// and per-handle key counts are small.
type orderedKeys [][]byte

func (k orderedKeys) search(key []byte) int {
	return sort.Search(len(k), func(i int) bool {
		return string(k[i]) >= string(key)
	})
}

// insert adds key, which the caller has already verified is not present.
func (k *orderedKeys) insert(key []byte) {
	i := k.search(key)
	cp := append([]byte(nil), key...)
	*k = append(*k, nil)
	copy((*k)[i+1:], (*k)[i:])
	(*k)[i] = cp
}

// remove drops key if present.
func (k *orderedKeys) remove(key []byte) {
	i := k.search(key)
	if i < len(*k) && string((*k)[i]) == string(key) {
		*k = append((*k)[:i], (*k)[i+1:]...)
	}
}

// snapshot returns a copy of the current ascending key order.
func (k orderedKeys) snapshot() [][]byte {
	out := make([][]byte, len(k))
	copy(out, k)
	return out
}
