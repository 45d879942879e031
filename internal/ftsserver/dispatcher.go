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

// Package ftsserver implements the TCP remote-protocol server (C5): a
// listener loop that dispatches each accepted connection to a worker
// servicing the remote backend protocol against a bound database handle.
// See spec.md §4.5.
package ftsserver

import (
	"net"
)

// Dispatcher abstracts how an accepted connection is serviced (spec.md
// §9's "forking server" design note: fork a worker on POSIX, spawn a
// thread on Windows). Go has no such platform split to hide, but the seam
// is kept so a process-isolated dispatcher could be substituted without
// touching the accept loop.
type Dispatcher interface {
	Dispatch(conn net.Conn, handle func(net.Conn))
}

// goroutineDispatcher services every connection on its own goroutine. This
// is the only dispatcher this package ships; it plays the role the
// teacher's per-connection session goroutines play for websocket clients.
type goroutineDispatcher struct{}

func (goroutineDispatcher) Dispatch(conn net.Conn, handle func(net.Conn)) {
	go handle(conn)
}
