// Copyright 2025 venslabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the scan pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/venslabs/depaudit/pkg/api/types"
	"github.com/venslabs/depaudit/pkg/metrics"
	"github.com/venslabs/depaudit/pkg/requestid"
)

const (
	RequestIDHeader = "X-Request-ID"

	// maxBodyBytes bounds the size of a scan request.
	maxBodyBytes = 1 << 20
)

// Scanner runs one scan. Scan must not fail; errors are reported in the result.
type Scanner interface {
	Scan(ctx context.Context, req types.ScanRequest) *types.ScanResult
}

type Opts struct {
	Scanner    Scanner
	Metrics    *metrics.Metrics
	ListenAddr string
	// WriteTimeout must cover the longest scan.
	WriteTimeout time.Duration
}

type Server struct {
	o      Opts
	server *http.Server
}

func New(o Opts) (*Server, error) {
	if o.Scanner == nil {
		return nil, errors.New("no scanner")
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	return &Server{o: o}, nil
}

// Handler returns the routes of the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/scan", s.o.Metrics.Middleware("/scan", http.HandlerFunc(s.handleScan)))
	mux.Handle("/health", s.o.Metrics.Middleware("/health", http.HandlerFunc(handleHealth)))
	mux.Handle("/metrics", s.o.Metrics.Handler())
	return requestID(mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.o.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.o.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Listening", "addr", s.o.ListenAddr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req types.ScanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		slog.WarnContext(r.Context(), "Invalid scan request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}

	slog.InfoContext(r.Context(), "Scan requested", "file", req.FilePath, "client", r.RemoteAddr)
	s.o.Metrics.ScansInFlight.Inc()
	res := s.o.Scanner.Scan(r.Context(), req)
	s.o.Metrics.ScansInFlight.Dec()

	writeJSON(w, http.StatusOK, res)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// requestID propagates or assigns the X-Request-ID of every request.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(requestid.With(r.Context(), id)))
	})
}
