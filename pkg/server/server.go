// Package server exposes a read-only HTTP view of a live run: JSON status
// and transcript endpoints plus a websocket that streams messages as they
// are appended. It is an observer; control of the run stays on the console.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nstogner/tandem/pkg/conversation"
	"github.com/nstogner/tandem/pkg/transcript"
)

// Server serves the watch API for one run.
type Server struct {
	manager    *conversation.Manager
	transcript *transcript.Transcript
	srv        *http.Server
}

// New creates a new Server.
func New(manager *conversation.Manager, tr *transcript.Transcript) *Server {
	return &Server{manager: manager, transcript: tr}
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}

	slog.Info("Starting watch server", "addr", addr)
	return s.srv.ListenAndServe()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/agents", s.handleAgents)
	mux.HandleFunc("GET /api/transcript", s.handleTranscript)
	mux.HandleFunc("/api/watch", s.handleWatch)
	return mux
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.manager.Status())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	agents := s.manager.Agents()
	s.jsonResponse(w, http.StatusOK, agents[:])
}

// handleTranscript returns messages, optionally only those after ?since=N.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, s.transcript.Since(since))
		return
	}
	s.jsonResponse(w, http.StatusOK, s.transcript.Snapshot())
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	slog.Error("API error", "error", err)
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}
