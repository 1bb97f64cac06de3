// Package httpapi exposes the session controls, the observable pipeline state
// and Prometheus metrics over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/session"
	"github.com/foxseedlab/tsuyaku/internal/token"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	requestBodyLimit = 4 << 10
	startTimeout     = 15 * time.Second
)

type Controller interface {
	Start(ctx context.Context, sourceLanguage string) (session.Status, error)
	Stop(ctx context.Context) (session.Status, error)
	Status() session.Status
}

type Server struct {
	controller Controller
	hub        *Hub
	gatherer   prometheus.Gatherer
	server     *http.Server
}

func NewServer(addr string, controller Controller, hub *Hub, gatherer prometheus.Gatherer) *Server {
	s := &Server{controller: controller, hub: hub, gatherer: gatherer}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/api/session", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/session/start", s.handleStart).Methods(http.MethodPost)
	router.HandleFunc("/api/session/stop", s.handleStop).Methods(http.MethodPost)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if s.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if s.hub != nil {
		router.HandleFunc("/ws", s.hub.ServeWS)
	}
	return router
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		slog.Info("starting http server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down http server")
	if s.hub != nil {
		s.hub.Close()
	}
	return s.server.Shutdown(ctx)
}

type startRequest struct {
	Language string `json:"language"`
}

type errorResponse struct {
	Error  string         `json:"error"`
	Status session.Status `json:"status"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, requestBodyLimit))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), startTimeout)
	defer cancel()
	st, err := s.controller.Start(ctx, strings.TrimSpace(req.Language))
	if err != nil {
		slog.Warn("start session request failed", "error", err, "language", req.Language)
		writeJSON(w, statusCodeFor(err), errorResponse{Error: err.Error(), Status: st})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	st, err := s.controller.Stop(r.Context())
	if err != nil {
		writeJSON(w, statusCodeFor(err), errorResponse{Error: err.Error(), Status: st})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, session.ErrAlreadyActive), errors.Is(err, session.ErrNotActive):
		return http.StatusConflict
	case errors.Is(err, token.ErrAuthentication):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
