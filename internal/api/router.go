package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sriail/browser-ig/internal/config"
)

type Server struct {
	cfg      *config.Config
	sessions SessionService
	history  HistoryReader
	slots    SlotStats
	vnc      http.HandlerFunc
	logger   *slog.Logger
	mux      *http.ServeMux
}

func NewServer(cfg *config.Config, sessions SessionService, history HistoryReader, slots SlotStats, vnc http.HandlerFunc, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		history:  history,
		slots:    slots,
		vnc:      vnc,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.authMiddleware(s.requestIDMiddleware(s.mux))
}

func (s *Server) routes() {
	// Session routes (with auth)
	s.mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /v1/sessions/{id}", s.handleSessionStatus)
	s.mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleStopSession)

	// VNC relay (no auth: browser websocket clients cannot set headers)
	s.mux.HandleFunc("GET /v1/sessions/{id}/vnc", s.handleVNC)

	// History and status (with auth)
	s.mux.HandleFunc("GET /v1/history", s.handleHistory)
	s.mux.HandleFunc("GET /v1/status", s.handleStatus)

	// Health check (no auth)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
