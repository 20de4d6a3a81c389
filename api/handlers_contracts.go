package api

import (
	"encoding/json"
	"net/http"
)

// Contract Handlers

func (s *Server) handleGetContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := s.repo.GetActiveContracts()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load contracts", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contracts)
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid contract ID", nil)
		return
	}

	contract, err := s.repo.GetContract(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load contract", err)
		return
	}
	if contract == nil {
		respondWithError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	latest, err := s.repo.GetLatestReport(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load latest report", err)
		return
	}

	resp := map[string]interface{}{
		"contract":      contract,
		"latest_report": latest,
	}
	if latest != nil {
		resp["positioning"] = map[string]int64{
			"dealer_net":     latest.DealerNet(),
			"asset_mgr_net":  latest.AssetMgrNet(),
			"lev_money_net":  latest.LevNet(),
			"non_report_net": latest.NonReportNet(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleGetContractReports(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid contract ID", nil)
		return
	}

	minLimit, maxLimit := 1, 1000
	limit := getIntParam(r, "limit", 52, &minLimit, &maxLimit)

	reports, err := s.repo.GetRecentReports(id, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load reports", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reports)
}

func (s *Server) handleGetContractStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid contract ID", nil)
		return
	}

	stats, err := s.repo.GetContractStatistics(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load statistics", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
