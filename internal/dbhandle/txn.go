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

// txnState is the transaction state machine from spec.md §4.4: None and
// Active, entered/left only via begin/commit/cancel_transaction.
type txnState int

const (
	txnNone txnState = iota
	txnActive
)

// txn tracks the local-only transaction state for a WritableDatabase.
// Entering Active never performs a backend round-trip (spec.md §4.4); it is
// purely a guard on which operations are legal next.
type txn struct {
	state txnState
	flush bool // flush_on_commit, set by begin_transaction(flush)
}
