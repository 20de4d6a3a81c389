package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"whaleradarr/app"
	"whaleradarr/database"
	"whaleradarr/notifications"
	"whaleradarr/realtime"
)

// Server handles HTTP API requests
type Server struct {
	repo      *database.CotRepository
	pipeline  *app.AnalysisPipeline
	radar     *app.RadarService
	staleness *app.StalenessService
	edge      *app.EdgeService
	webhookMq *notifications.WebhookManager
	broker    *realtime.Broker
	wsHub     *realtime.WSHub

	edgeThreshold    float64
	edgeForwardWeeks int
	edgeLookbackYrs  int
}

// NewServer creates a new API server instance
func NewServer(
	repo *database.CotRepository,
	pipeline *app.AnalysisPipeline,
	radar *app.RadarService,
	staleness *app.StalenessService,
	edge *app.EdgeService,
	webhookMq *notifications.WebhookManager,
	broker *realtime.Broker,
	wsHub *realtime.WSHub,
) *Server {
	return &Server{
		repo:             repo,
		pipeline:         pipeline,
		radar:            radar,
		staleness:        staleness,
		edge:             edge,
		webhookMq:        webhookMq,
		broker:           broker,
		wsHub:            wsHub,
		edgeThreshold:    20.0,
		edgeForwardWeeks: 4,
		edgeLookbackYrs:  5,
	}
}

// SetEdgeDefaults overrides the backtest defaults used when query parameters
// are absent.
func (s *Server) SetEdgeDefaults(threshold float64, forwardWeeks, lookbackYears int) {
	s.edgeThreshold = threshold
	s.edgeForwardWeeks = forwardWeeks
	s.edgeLookbackYrs = lookbackYears
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Live alert feeds
	mux.Handle("GET /api/events", s.broker) // SSE endpoint
	mux.Handle("GET /api/ws", s.wsHub)      // WebSocket endpoint

	// Contracts
	mux.HandleFunc("GET /api/contracts", s.handleGetContracts)
	mux.HandleFunc("GET /api/contracts/{id}", s.handleGetContract)
	mux.HandleFunc("GET /api/contracts/{id}/reports", s.handleGetContractReports)
	mux.HandleFunc("GET /api/contracts/{id}/statistics", s.handleGetContractStatistics)
	mux.HandleFunc("GET /api/contracts/{id}/alerts", s.handleGetContractAlerts)

	// Alerts
	mux.HandleFunc("GET /api/alerts", s.handleGetAlerts)

	// Analysis
	mux.HandleFunc("POST /api/analysis/contracts/{id}/run", s.handleRunAnalysis)
	mux.HandleFunc("GET /api/analysis/contracts/{id}/staleness", s.handleGetStaleness)
	mux.HandleFunc("GET /api/analysis/contracts/{id}/edge", s.handleGetHistoricalEdge)
	mux.HandleFunc("GET /api/analysis/radar", s.handleGetRadar)
	mux.HandleFunc("GET /api/analysis/heatmap", s.handleGetHeatmap)

	// Data ingestion
	mux.HandleFunc("POST /api/ingest/contracts", s.handleIngestContract)
	mux.HandleFunc("POST /api/ingest/reports", s.handleIngestReports)
	mux.HandleFunc("POST /api/ingest/prices/weekly", s.handleIngestWeeklyPrices)
	mux.HandleFunc("POST /api/ingest/prices/daily", s.handleIngestDailyPrices)

	// Webhook management routes
	mux.HandleFunc("GET /api/config/webhooks", s.handleGetWebhooks)
	mux.HandleFunc("POST /api/config/webhooks", s.handleCreateWebhook)
	mux.HandleFunc("PUT /api/config/webhooks/{id}", s.handleUpdateWebhook)
	mux.HandleFunc("DELETE /api/config/webhooks/{id}", s.handleDeleteWebhook)

	mux.HandleFunc("GET /health", s.handleHealth)

	// Add middleware
	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// Handlers are distributed across multiple files:
// - handlers_contracts.go: Contract metadata, reports, statistics
// - handlers_alerts.go: Alert queries
// - handlers_analysis.go: Staleness, radar, historical edge, heatmap
// - handlers_ingest.go: Report and price ingestion
// - handlers_config.go: Webhooks, health check
