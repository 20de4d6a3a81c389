package api

import (
	"encoding/json"
	"net/http"

	"whaleradarr/database"
)

// Ingestion Handlers
//
// All ingestion endpoints are idempotent: re-posting the same rows overwrites
// the existing ones instead of creating duplicates.

func (s *Server) handleIngestContract(w http.ResponseWriter, r *http.Request) {
	var contract database.Contract
	if err := json.NewDecoder(r.Body).Decode(&contract); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if contract.CFTCContractCode == "" || contract.ContractName == "" {
		respondWithError(w, http.StatusBadRequest, "cftc_contract_code and contract_name are required", nil)
		return
	}

	contract.ID = 0
	if err := s.repo.SaveContract(&contract); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to save contract", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(contract)
}

func (s *Server) handleIngestReports(w http.ResponseWriter, r *http.Request) {
	var reports []database.WeeklyReport
	if err := json.NewDecoder(r.Body).Decode(&reports); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved := 0
	for i := range reports {
		if reports[i].ContractID <= 0 || reports[i].ReportDate.IsZero() {
			continue
		}
		reports[i].ID = 0
		if err := s.repo.SaveWeeklyReport(&reports[i]); err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to save report", err)
			return
		}
		saved++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"received": len(reports), "saved": saved})
}

func (s *Server) handleIngestWeeklyPrices(w http.ResponseWriter, r *http.Request) {
	var prices []database.WeeklyPrice
	if err := json.NewDecoder(r.Body).Decode(&prices); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved := 0
	for i := range prices {
		if prices[i].ContractID <= 0 || prices[i].ReportDate.IsZero() {
			continue
		}
		prices[i].ID = 0
		if err := s.repo.SaveWeeklyPrice(&prices[i]); err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to save weekly price", err)
			return
		}
		saved++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"received": len(prices), "saved": saved})
}

func (s *Server) handleIngestDailyPrices(w http.ResponseWriter, r *http.Request) {
	var prices []database.DailyPrice
	if err := json.NewDecoder(r.Body).Decode(&prices); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved := 0
	for i := range prices {
		if prices[i].ContractID <= 0 || prices[i].Date.IsZero() {
			continue
		}
		prices[i].ID = 0
		if err := s.repo.SaveDailyPrice(&prices[i]); err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to save daily price", err)
			return
		}
		saved++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"received": len(prices), "saved": saved})
}
