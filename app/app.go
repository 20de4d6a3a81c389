package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"whaleradarr/cache"
	"whaleradarr/config"
	"whaleradarr/database"
	"whaleradarr/llm"
	"whaleradarr/marketdata"
	"whaleradarr/notifications"
	"whaleradarr/realtime"
)

// APIServer is the HTTP surface started by the App. Defined as an interface
// so the app package does not import api (which already imports app).
type APIServer interface {
	Start(port int) error
}

// App represents the main application
type App struct {
	config         *config.Config
	db             *database.Database
	redis          *cache.RedisClient
	repo           *database.CotRepository
	webhookManager *notifications.WebhookManager
	broker         *realtime.Broker
	wsHub          *realtime.WSHub
	market         *marketdata.Client

	analyzer  *AnalyzerService
	staleness *StalenessService
	radar     *RadarService
	edge      *EdgeService
	insights  *InsightGenerator
	pipeline  *AnalysisPipeline

	newServer func(a *App) APIServer
}

// New creates a new application instance. newServer builds the HTTP server
// once all services are wired.
func New(cfg *config.Config, newServer func(a *App) APIServer) *App {
	return &App{
		config:    cfg,
		newServer: newServer,
	}
}

// Accessors used by the API server constructor

func (a *App) Repo() *database.CotRepository               { return a.repo }
func (a *App) Pipeline() *AnalysisPipeline                 { return a.pipeline }
func (a *App) Radar() *RadarService                        { return a.radar }
func (a *App) Staleness() *StalenessService                { return a.staleness }
func (a *App) Edge() *EdgeService                          { return a.edge }
func (a *App) WebhookManager() *notifications.WebhookManager { return a.webhookManager }
func (a *App) Broker() *realtime.Broker                    { return a.broker }
func (a *App) WSHub() *realtime.WSHub                      { return a.wsHub }

// Start starts the application
func (a *App) Start() error {
	// Setup context for graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Database connection
	fmt.Println("🗄️  Connecting to database...")

	dbPort, err := strconv.Atoi(a.config.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid database port: %w", err)
	}

	db, err := database.Connect(
		a.config.DatabaseHost,
		dbPort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	// 2. Redis connection
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)

	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Caching disabled.")
	} else {
		a.redis = redisClient
	}

	// 3. Initialize schema
	a.repo = database.NewCotRepository(a.db)
	if err := a.repo.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	// 4. Webhook manager (with Redis)
	a.webhookManager = notifications.NewWebhookManager(a.repo, a.redis)

	// 5. Realtime feeds
	a.broker = realtime.NewBroker()
	go a.broker.Run()
	a.wsHub = realtime.NewWSHub()

	// 6. Market data client (with Redis response cache)
	a.market = marketdata.NewClient(
		a.config.MarketData.BaseURL,
		time.Duration(a.config.MarketData.TimeoutSeconds)*time.Second,
		a.redis,
		time.Duration(a.config.MarketData.CacheTTLMinutes)*time.Minute,
	)

	// 7. LLM client if enabled
	var llmClient *llm.Client
	if a.config.LLM.Enabled {
		llmClient = llm.NewClient(a.config.LLM.Endpoint, a.config.LLM.APIKey, a.config.LLM.Model)
		log.Printf("✅ LLM insight narration ENABLED (Model: %s)", a.config.LLM.Model)
	} else {
		log.Println("ℹ️  LLM insight narration DISABLED")
	}

	// 8. Analysis services
	a.analyzer = NewAnalyzerService(a.repo)
	a.staleness = NewStalenessService(a.repo, a.market, a.config.Analysis.StalenessDecayDays, a.config.Analysis.MinDailyBars)
	a.insights = NewInsightGenerator(llmClient)
	a.radar = NewRadarService(a.repo, a.staleness, a.insights)
	a.edge = NewEdgeService(a.repo)

	// 9. Analysis pipeline with alert fan-out
	a.pipeline = NewAnalysisPipeline(
		a.repo,
		a.analyzer,
		time.Duration(a.config.Analysis.PipelineIntervalHours)*time.Hour,
		a.config.Analysis.LookbackWindow,
	)
	a.pipeline.AddSink(a.broadcastAlert)
	a.pipeline.AddSink(a.notifyAlert)
	go a.pipeline.Start()

	// 10. API server
	apiServer := a.newServer(a)
	go func() {
		if err := apiServer.Start(a.config.APIPort); err != nil {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	// 11. Wait for interrupt and perform graceful shutdown
	return a.gracefulShutdown(cancel)
}

// broadcastAlert pushes a fresh alert to SSE and WebSocket clients
func (a *App) broadcastAlert(alert *database.WhaleAlert, contract *database.Contract, netChange int64) {
	event := map[string]interface{}{
		"type":       "whale_alert",
		"alert":      alert,
		"contract":   contract.CFTCContractCode,
		"net_change": netChange,
	}
	a.broker.BroadcastJSON(event)

	if msg, err := json.Marshal(event); err == nil {
		a.wsHub.Broadcast(msg)
	}
}

// notifyAlert fans the alert out to registered webhooks. Rollover and plain
// Low alerts are informational only and never notified.
func (a *App) notifyAlert(alert *database.WhaleAlert, contract *database.Contract, netChange int64) {
	if alert.AlertLevel != AlertLevelHigh && alert.AlertLevel != AlertLevelMedium {
		return
	}
	a.webhookManager.SendAlert(alert, contract, netChange)
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown(cancel context.CancelFunc) error {
	// Setup signal handling
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal
	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	// Cancel context to stop all goroutines
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown tasks with timeout
	shutdownComplete := make(chan struct{})
	go func() {
		if a.pipeline != nil {
			fmt.Println("📊 Stopping analysis pipeline...")
			a.pipeline.Stop()
		}

		// Close database connection
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		// Close Redis connection
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	// Wait for shutdown to complete or timeout
	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
