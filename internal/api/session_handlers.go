package api

import (
	"net/http"

	"github.com/sriail/browser-ig/internal/session"
)

type createSessionRequest struct {
	Browser string `json:"browser"`
	RAM     string `json:"ram"`
	VRAM    int    `json:"vram"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeValidationError(w, "invalid json: "+err.Error(), nil)
		return
	}

	if err := validateCreateSessionRequest(req); err != nil {
		writeValidationError(w, err.Error(), nil)
		return
	}

	s.logger.Debug("create session request", "browser", req.Browser, "ram", req.RAM, "vram", req.VRAM)
	res, err := s.sessions.Create(r.Context(), session.CreateOpts{
		Browser: req.Browser,
		RAM:     req.RAM,
		VRAM:    req.VRAM,
	})
	if err != nil {
		s.logger.Error("create session", "error", err)
		writeAPIError(w, err)
		return
	}
	s.logger.Debug("session created", "session_id", res.SessionID, "browser", req.Browser, "simulated", res.Simulated)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validateSessionID(id); err != nil {
		writeValidationError(w, err.Error(), nil)
		return
	}
	st, err := s.sessions.Status(id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.sessions.List()
	s.logger.Debug("list sessions", "count", len(list))
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validateSessionID(id); err != nil {
		writeValidationError(w, err.Error(), nil)
		return
	}
	s.logger.Debug("stop session", "session_id", id)
	if err := s.sessions.Stop(id); err != nil {
		s.logger.Error("stop session", "session_id", id, "error", err)
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleVNC(w http.ResponseWriter, r *http.Request) {
	if err := validateSessionID(r.PathValue("id")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.vnc(w, r)
}
