package api

import (
	"encoding/json"
	"net/http"
)

// Alert Handlers

func (s *Server) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	minConfidence := getFloatParam(r, "min_confidence", 0)

	minLimit, maxLimit := 1, 500
	limit := getIntParam(r, "limit", 100, &minLimit, &maxLimit)
	minOffset := 0
	offset := getIntParam(r, "offset", 0, &minOffset, nil)

	alerts, err := s.repo.GetAlerts(level, minConfidence, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load alerts", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

func (s *Server) handleGetContractAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid contract ID", nil)
		return
	}

	minLimit, maxLimit := 1, 500
	limit := getIntParam(r, "limit", 50, &minLimit, &maxLimit)

	alerts, err := s.repo.GetAlertsByContract(id, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load alerts", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}
