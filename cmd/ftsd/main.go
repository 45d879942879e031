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

// Command ftsd runs the TCP remote-protocol server (C5) in front of
// either a local DA backend or another node's remote backend (C6),
// wired from YAML/flag configuration the way nakamad wires server.Config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/heroiclabs/ftsdb/internal/config"
	"github.com/heroiclabs/ftsdb/internal/da"
	"github.com/heroiclabs/ftsdb/internal/dbhandle"
	"github.com/heroiclabs/ftsdb/internal/ftserr"
	"github.com/heroiclabs/ftsdb/internal/ftsdoc"
	"github.com/heroiclabs/ftsdb/internal/ftsserver"
	"github.com/heroiclabs/ftsdb/internal/iterator"
	"github.com/heroiclabs/ftsdb/internal/remote"
)

var (
	version  string
	commitID string
)

func main() {
	semver := fmt.Sprintf("%s+%s", version, commitID)

	bootstrap := zap.NewExample()
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println(semver)
		return
	}

	cfg := config.ParseArgs(bootstrap, os.Args)
	logger := config.SetupLogging(bootstrap, cfg)
	defer logger.Sync()

	logger.Info("ftsd starting", zap.String("name", cfg.GetName()), zap.String("version", semver))
	logger.Info("data directory", zap.String("path", cfg.GetDataDir()))

	backend, err := openBackend(logger, cfg.GetDatabase())
	if err != nil {
		logger.Fatal("failed to open database backend", zap.Error(err))
	}

	db, err := dbhandle.OpenWritable(logger, cfg.GetDataDir(), backend)
	if err != nil {
		logger.Fatal("failed to open database handle", zap.Error(err))
	}

	srv := ftsserver.New(logger, db.Database, ftsserver.Config{
		ListenAddr: cfg.GetSocket().ListenAddr,
		NoDelay:    cfg.GetSocket().NoDelay,
		Verbose:    cfg.GetLog().Verbose,
		AdminAddr:  cfg.GetAdmin().ListenAddr,
	})
	if err := srv.Listen(cfg.GetSocket().ListenAddr); err != nil {
		logger.Fatal("failed to bind listen address", zap.Error(err))
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Run(context.Background())
	}()

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Close(shutdownCtx); err != nil {
		logger.Warn("error closing server", zap.Error(err))
	}
	if err := db.Close(shutdownCtx); err != nil {
		logger.Warn("error closing database handle", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// openBackend constructs the single shard backend this node's handle will
// wrap: a local in-process DA writer, or a remote.Client dialed against
// another node's listener, per spec.md §8's database-open parameters.
func openBackend(logger *zap.Logger, dbCfg *config.DatabaseConfig) (iterator.WritableBackend, error) {
	switch dbCfg.Mode {
	case "", "local":
		return da.OpenWriter(), nil
	case "remote":
		addr := fmt.Sprintf("%s:%d", dbCfg.RemoteHost, dbCfg.RemotePort)
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(dbCfg.ConnectTimeoutMs)*time.Millisecond)
		defer cancel()
		client, err := remote.Dial(ctx, logger, addr, time.Duration(dbCfg.ConnectTimeoutMs)*time.Millisecond)
		if err != nil {
			return nil, err
		}
		return remoteWritableBackend{client}, nil
	default:
		return nil, ftserr.Newf(ftserr.InvalidArgument, "unknown database mode %q", dbCfg.Mode)
	}
}

// remoteWritableBackend adapts remote.Client (a read-only iterator.Backend)
// into an iterator.WritableBackend for a node whose database lives on
// another ftsd: mutation operations are not supported over the remote
// protocol (spec.md §4.6 describes it purely as a read backend), so they
// raise FeatureUnavailable rather than silently doing nothing.
type remoteWritableBackend struct {
	*remote.Client
}

var errRemoteReadOnly = ftserr.New(ftserr.FeatureUnavailable, "remote backend does not support writes")

func (remoteWritableBackend) Stage(ctx context.Context, docID ftsdoc.DocID, doc *ftsdoc.Document) error {
	return errRemoteReadOnly
}

func (remoteWritableBackend) StageDelete(ctx context.Context, docID ftsdoc.DocID) error {
	return errRemoteReadOnly
}

func (remoteWritableBackend) NextDocID(ctx context.Context) (ftsdoc.DocID, error) {
	return 0, errRemoteReadOnly
}

func (remoteWritableBackend) Commit(ctx context.Context) error {
	return errRemoteReadOnly
}

func (remoteWritableBackend) DiscardStaged(ctx context.Context) error {
	return errRemoteReadOnly
}
