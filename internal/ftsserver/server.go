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
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/heroiclabs/ftsdb/internal/dbhandle"
)

// Server is the TCP remote-protocol listener (C5, spec.md §4.5). Each
// accepted connection is serviced against db by a connHandler; the server
// holds no other cross-connection state.
type Server struct {
	logger  *zap.Logger
	db      *dbhandle.Database
	verbose bool
	noDelay bool

	dispatcher Dispatcher

	mu       sync.Mutex
	listener net.Listener
	stopped  bool

	connCounter  prometheus.Counter
	errCounter   prometheus.Counter
	acceptErrCtr prometheus.Counter

	admin *http.Server
}

// Config carries the socket and admin-HTTP settings for New.
type Config struct {
	ListenAddr string
	NoDelay    bool
	Verbose    bool
	AdminAddr  string // empty disables the admin HTTP mux
}

// New constructs a Server bound to db but does not yet listen; call Listen
// and then Run (or RunOnce) to start accepting connections.
func New(logger *zap.Logger, db *dbhandle.Database, cfg Config) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		logger:     logger,
		db:         db,
		verbose:    cfg.Verbose,
		noDelay:    cfg.NoDelay,
		dispatcher: goroutineDispatcher{},
		connCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftsdb_server_connections_total",
			Help: "Total TCP connections accepted.",
		}),
		errCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftsdb_server_connection_errors_total",
			Help: "Total per-connection handler errors.",
		}),
		acceptErrCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftsdb_server_accept_errors_total",
			Help: "Total transient accept() errors retried.",
		}),
	}
	registry.MustRegister(s.connCounter, s.errCounter, s.acceptErrCtr)

	if cfg.AdminAddr != "" {
		r := mux.NewRouter()
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		s.admin = &http.Server{Addr: cfg.AdminAddr, Handler: r}
	}
	return s
}

// Listen opens the TCP listening socket, applying TCP_NODELAY per
// connection at accept time if configured (spec.md §4.5: "TCP_NODELAY is
// optional and set at construction").
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Run loops forever accepting connections, dispatching each to a worker,
// until a permanent accept error occurs or Close is called (spec.md §4.5).
// Transient errors (closed-but-retryable per net.Error.Temporary-style
// checks) are retried; Run never returns nil except via an explicit Close.
func (s *Server) Run(ctx context.Context) error {
	if s.admin != nil {
		go func() {
			if err := s.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Warn("admin http server stopped", zap.Error(err))
			}
		}()
	}
	for {
		conn, err := s.accept()
		if err != nil {
			if s.isStopped() {
				return nil
			}
			return err
		}
		s.connCounter.Inc()
		if s.verbose {
			s.logger.Info("connection accepted", zap.String("remote", conn.RemoteAddr().String()))
		}
		s.dispatcher.Dispatch(conn, s.serviceConn)
	}
}

// RunOnce accepts exactly one connection, services it to completion, then
// returns (spec.md §4.5).
func (s *Server) RunOnce(ctx context.Context) error {
	conn, err := s.accept()
	if err != nil {
		return err
	}
	s.connCounter.Inc()
	s.serviceConn(conn)
	return nil
}

// Addr returns the listener's bound address. Only meaningful after Listen
// has succeeded; used by callers (and tests) that bind to ":0" and need
// the port the OS actually chose.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) accept() (net.Conn, error) {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil, errors.New("ftsserver: Listen must be called before Run")
	}
	for {
		conn, err := ln.Accept()
		if err == nil {
			if tc, ok := conn.(*net.TCPConn); ok {
				_ = tc.SetNoDelay(s.noDelay)
			}
			return conn, nil
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Temporary() {
			s.acceptErrCtr.Inc()
			time.Sleep(5 * time.Millisecond)
			continue
		}
		return nil, err
	}
}

func (s *Server) serviceConn(conn net.Conn) {
	defer conn.Close()
	h := newConnHandler(s.logger, s.db)
	if err := h.serve(conn); err != nil {
		s.errCounter.Inc()
		if s.verbose {
			s.logger.Info("connection closed", zap.Error(err))
		}
	}
}

func (s *Server) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Close stops accepting new connections. In-flight per-connection workers
// are not interrupted (spec.md §4.5: "per-connection worker failures never
// affect the listener", and likewise the listener never forces a worker to
// stop).
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	ln := s.listener
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	if s.admin != nil {
		_ = s.admin.Shutdown(ctx)
	}
	return err
}
