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

	"github.com/heroiclabs/ftsdb/internal/ftserr"
)

// pathLocks is the process-wide registry backing the writable-database
// lock: an exclusive, path-scoped advisory lock held by exactly one
// writable handle (spec.md §3, §5). It is scoped to a path, not global,
// per spec.md §9's design note on global state.
var pathLocks = struct {
	mu    sync.Mutex
	held  map[string]struct{}
}{held: make(map[string]struct{})}

// acquireLock takes the exclusive writable lock for path, returning
// ftserr.DatabaseLock if another writer already holds it.
func acquireLock(path string) error {
	pathLocks.mu.Lock()
	defer pathLocks.mu.Unlock()
	if _, ok := pathLocks.held[path]; ok {
		return ftserr.Newf(ftserr.DatabaseLock, "writable database already open at %q", path)
	}
	pathLocks.held[path] = struct{}{}
	return nil
}

// releaseLock is idempotent: releasing an already-released path is a no-op.
func releaseLock(path string) {
	pathLocks.mu.Lock()
	defer pathLocks.mu.Unlock()
	delete(pathLocks.held, path)
}
