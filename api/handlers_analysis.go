package api

import (
	"encoding/json"
	"net/http"

	"whaleradarr/app"
)

// Analysis Handlers

// handleRunAnalysis triggers the statistics + alert chain for one contract
func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
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

	alert, err := s.pipeline.RunContract(contract)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Analysis failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"contract_id": id,
		"alert":       alert, // nil when the contract has no data yet
	})
}

func (s *Server) handleGetStaleness(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid contract ID", nil)
		return
	}

	result := s.staleness.CalculateScore(r.Context(), id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleGetHistoricalEdge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid contract ID", nil)
		return
	}

	threshold := getFloatParam(r, "threshold", s.edgeThreshold)
	minWeeks, maxWeeks := 1, 26
	forwardWeeks := getIntParam(r, "forward_weeks", s.edgeForwardWeeks, &minWeeks, &maxWeeks)
	minYears, maxYears := 1, 20
	lookbackYears := getIntParam(r, "lookback_years", s.edgeLookbackYrs, &minYears, &maxYears)

	result, err := s.edge.AnalyzeHistoricalEdge(id, threshold, forwardWeeks, lookbackYears)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Backtest failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleGetRadar(w http.ResponseWriter, r *http.Request) {
	result, err := s.radar.GetRadarRankings(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Radar ranking failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// heatmapCell is one (contract, week) point of the COT index heatmap
type heatmapCell struct {
	ReportDate string  `json:"report_date"`
	CotIndex   float64 `json:"cot_index"`
	LevNet     int64   `json:"lev_net"`
}

// heatmapRow is one contract's recent COT index trail
type heatmapRow struct {
	ContractID     int64         `json:"contract_id"`
	ContractCode   string        `json:"contract_code"`
	ContractName   string        `json:"contract_name"`
	MarketCategory string        `json:"market_category"`
	Cells          []heatmapCell `json:"cells"` // oldest first
}

// handleGetHeatmap returns the leveraged fund COT index trail for every
// active contract over the requested number of weeks, grouped by market
// category. Contracts without statistics are skipped.
func (s *Server) handleGetHeatmap(w http.ResponseWriter, r *http.Request) {
	minWeeks, maxWeeks := 1, 52
	weeks := getIntParam(r, "weeks", 12, &minWeeks, &maxWeeks)

	contracts, err := s.repo.GetActiveContracts()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load contracts", err)
		return
	}

	heatmap := make(map[string][]heatmapRow)
	for i := range contracts {
		c := &contracts[i]

		stats, err := s.repo.GetStatistics(c.ID, "lev_money", "net")
		if err != nil || stats == nil {
			continue
		}
		reports, err := s.repo.GetRecentReports(c.ID, weeks)
		if err != nil || len(reports) == 0 {
			continue
		}

		// GetRecentReports returns newest first; render oldest first
		cells := make([]heatmapCell, 0, len(reports))
		for j := len(reports) - 1; j >= 0; j-- {
			report := &reports[j]
			cells = append(cells, heatmapCell{
				ReportDate: report.ReportDate.Format("2006-01-02"),
				CotIndex:   app.CotIndexValue(float64(report.LevNet()), stats.AllTimeMin, stats.AllTimeMax),
				LevNet:     report.LevNet(),
			})
		}

		heatmap[c.MarketCategory] = append(heatmap[c.MarketCategory], heatmapRow{
			ContractID:     c.ID,
			ContractCode:   c.CFTCContractCode,
			ContractName:   c.ContractName,
			MarketCategory: c.MarketCategory,
			Cells:          cells,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"weeks":   weeks,
		"sectors": heatmap,
	})
}
