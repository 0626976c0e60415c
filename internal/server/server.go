// Package server exposes the pipeline over HTTP: a status endpoint, a thin
// proxy to the game client's live data API, cached audio downloads, the
// commentary history, Prometheus metrics, a manual commentary trigger and
// the WebSocket relay.
package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riftcoach/riftcoach/internal/coach"
	"github.com/riftcoach/riftcoach/internal/history"
	"github.com/riftcoach/riftcoach/internal/relay"
	"github.com/riftcoach/riftcoach/internal/speech"
)

// Status is the response body of GET /status.
type Status struct {
	InGame       bool   `json:"inGame"`
	RelayClients int    `json:"relayClients"`
	Provider     string `json:"speechProvider"`
	LLMEnabled   bool   `json:"llmEnabled"`
}

// Deps wires the server to the rest of the pipeline. StatusFunc must be
// non-nil; optional fields disable their endpoints when nil.
type Deps struct {
	StatusFunc func() Status

	// ClientBaseURL is the live client data root the proxy forwards to.
	ClientBaseURL func() string

	Cache *speech.Cache
	Queue *speech.Queue
	Store *history.Store
	Coach *coach.Coach
	Hub   *relay.Hub
}

// Server serves the riftcoach HTTP API.
type Server struct {
	deps  Deps
	http  *http.Server
	proxy *http.Client
}

// New builds the server listening on addr.
func New(addr string, deps Deps) *Server {
	s := &Server{
		deps: deps,
		proxy: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				// The game client uses a self-signed loopback certificate.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/status", s.handleStatus)
	r.Get("/liveclientdata/*", s.handleProxy)
	r.Get("/audio/{key}", s.handleAudio)
	r.Get("/history", s.handleHistory)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/debug/commentary", s.handleTrigger)
	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.ServeHTTP)
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown. A closed-server
// error is translated to nil.
func (s *Server) ListenAndServe() error {
	slog.Info("server: listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen on %s: %w", s.http.Addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.StatusFunc())
}

// handleProxy forwards GET /liveclientdata/* to the game client so browser
// UIs can read live data without their own TLS exception.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if s.deps.ClientBaseURL == nil {
		http.Error(w, "proxy disabled", http.StatusNotFound)
		return
	}
	rest := chi.URLParam(r, "*")
	url := strings.TrimRight(s.deps.ClientBaseURL(), "/") + "/" + rest

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		http.Error(w, "bad proxy target", http.StatusBadGateway)
		return
	}
	resp, err := s.proxy.Do(req)
	if err != nil {
		http.Error(w, "game client unreachable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		http.Error(w, "cache disabled", http.StatusNotFound)
		return
	}
	key := chi.URLParam(r, "key")
	if !speech.ValidKey(key) {
		http.Error(w, "invalid cache key", http.StatusBadRequest)
		return
	}
	if !s.deps.Cache.Has(key) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, s.deps.Cache.Path(key))
}

// handleHistory prefers the durable store; the in-memory ring answers when
// persistence is not configured.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		entries, err := s.deps.Store.Recent(r.Context(), 20)
		if err != nil {
			slog.Error("server: history query failed", "error", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}
	if s.deps.Queue != nil {
		writeJSON(w, http.StatusOK, s.deps.Queue.History())
		return
	}
	http.Error(w, "history disabled", http.StatusNotFound)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if s.deps.Coach == nil {
		http.Error(w, "coach disabled", http.StatusNotFound)
		return
	}
	var body struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.deps.Coach.Trigger(r.Context(), coach.Category(body.Category)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("server: write response", "error", err)
	}
}
