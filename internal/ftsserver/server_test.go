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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heroiclabs/ftsdb/internal/da"
	"github.com/heroiclabs/ftsdb/internal/dbhandle"
	"github.com/heroiclabs/ftsdb/internal/ftserr"
	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/remote"
)

// capturingDispatcher records every accepted conn so a test can close it
// directly, simulating the remote peer dying mid-connection (spec.md §8
// seed scenario 6) without waiting on a real network partition.
type capturingDispatcher struct {
	conns chan net.Conn
}

func (d *capturingDispatcher) Dispatch(conn net.Conn, handle func(net.Conn)) {
	d.conns <- conn
	go handle(conn)
}

func newTestServer(t *testing.T) (*Server, *capturingDispatcher, *dbhandle.WritableDatabase) {
	t.Helper()
	logger := zap.NewNop()

	writer := da.OpenWriter()
	wdb, err := dbhandle.OpenWritable(logger, t.TempDir(), writer)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = wdb.AddDocument(ctx, &ftsdoc.Document{Data: []byte("hello world")})
	require.NoError(t, err)
	require.NoError(t, wdb.Commit(ctx))

	srv := New(logger, wdb.Database, Config{ListenAddr: "127.0.0.1:0"})
	disp := &capturingDispatcher{conns: make(chan net.Conn, 4)}
	srv.dispatcher = disp

	require.NoError(t, srv.Listen("127.0.0.1:0"))
	go srv.Run(ctx)

	return srv, disp, wdb
}

func TestServerRoundTrip(t *testing.T) {
	srv, _, wdb := newTestServer(t)
	defer wdb.Close(context.Background())
	defer srv.Close(context.Background())

	ctx := context.Background()
	client, err := remote.Dial(ctx, zap.NewNop(), srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer client.Close(ctx)

	require.NotEmpty(t, client.GetUUID())
	docCount, err := client.GetDocCount(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(1), docCount)

	doc, err := client.GetDocument(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), doc.Data)

	require.NoError(t, client.KeepAlive(ctx))
}

// TestServerRemotePeerDeath implements seed scenario 6: capture the uuid,
// kill the peer, then every operation requiring a fresh round trip must
// raise NetworkError while the cached-at-open fields keep answering from
// cache.
func TestServerRemotePeerDeath(t *testing.T) {
	srv, disp, wdb := newTestServer(t)
	defer wdb.Close(context.Background())
	defer srv.Close(context.Background())

	ctx := context.Background()
	client, err := remote.Dial(ctx, zap.NewNop(), srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer client.Close(ctx)

	uuid := client.GetUUID()
	require.NotEmpty(t, uuid)

	// Kill the peer: close the server's side of the accepted connection
	// out from under the client.
	serverConn := <-disp.conns
	require.NoError(t, serverConn.Close())
	time.Sleep(20 * time.Millisecond)

	err = client.KeepAlive(ctx)
	require.Error(t, err)
	require.Equal(t, ftserr.NetworkError, ftserr.KindOf(err))

	// Cached uuid remains readable even once broken.
	require.Equal(t, uuid, client.GetUUID())

	_, err = client.GetDocument(ctx, 1)
	require.Error(t, err)
	require.Equal(t, ftserr.NetworkError, ftserr.KindOf(err))

	_, err = client.PostingListBegin(ctx, []byte("hello"))
	require.Error(t, err)
	require.Equal(t, ftserr.NetworkError, ftserr.KindOf(err))
}
