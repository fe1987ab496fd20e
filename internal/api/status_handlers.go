package api

import (
	"net/http"
	"strconv"

	"github.com/sriail/browser-ig/internal/store"
)

const defaultHistoryLimit = 50

type statusResponse struct {
	ActiveSessions int           `json:"activeSessions"`
	SlotsInUse     int           `json:"slotsInUse"`
	SlotsTotal     int           `json:"slotsTotal"`
	Browsers       []string      `json:"browsers"`
	VRAMChoices    []int         `json:"vramChoices"`
	History        *store.Counts `json:"history,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		ActiveSessions: s.sessions.Active(),
		SlotsInUse:     s.slots.InUse(),
		SlotsTotal:     s.slots.Size(),
		Browsers:       s.cfg.Browsers,
		VRAMChoices:    s.cfg.VRAMChoices(),
	}
	counts, err := s.history.Counts()
	if err != nil {
		s.logger.Warn("history counts", "error", err)
	} else {
		resp.History = counts
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeValidationError(w, "limit must be an integer", nil)
			return
		}
		limit = n
	}
	if err := validateHistoryLimit(limit); err != nil {
		writeValidationError(w, err.Error(), nil)
		return
	}

	records, err := s.history.Recent(limit)
	if err != nil {
		s.logger.Error("history query", "error", err)
		writeAPIError(w, err)
		return
	}
	if records == nil {
		records = []*store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}
