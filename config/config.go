package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// HTTP API
	APIPort int

	// Market data provider (daily OHLCV for staleness scoring)
	MarketData MarketDataConfig

	// LLM configuration (optional radar insight narration)
	LLM LLMConfig

	// Analysis parameters and thresholds
	Analysis AnalysisConfig
}

// MarketDataConfig holds the external chart API configuration
type MarketDataConfig struct {
	BaseURL         string
	TimeoutSeconds  int
	CacheTTLMinutes int
}

// LLMConfig holds LLM service configuration
type LLMConfig struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	Model    string
}

// AnalysisConfig holds statistical analysis parameters
type AnalysisConfig struct {
	// Rolling statistics window (~3 years of weekly reports)
	LookbackWindow int

	// Pipeline cadence
	PipelineIntervalHours int

	// Staleness scoring
	MinDailyBars       int
	StalenessDecayDays float64

	// Historical edge backtest defaults
	EdgeThreshold     float64
	EdgeForwardWeeks  int
	EdgeLookbackYears int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "whaleradarr"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "whaleradarr"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "whaleradarr123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		APIPort: getEnvInt("API_PORT", 8080),

		MarketData: MarketDataConfig{
			BaseURL:         getEnvOrDefault("MARKET_DATA_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
			TimeoutSeconds:  getEnvInt("MARKET_DATA_TIMEOUT", 10),
			CacheTTLMinutes: getEnvInt("MARKET_DATA_CACHE_TTL", 15),
		},

		// LLM configuration
		LLM: LLMConfig{
			Enabled:  getEnvOrDefault("LLM_ENABLED", "false") == "true",
			Endpoint: getEnvOrDefault("LLM_ENDPOINT", "https://api.openai.com/v1"),
			APIKey:   getEnvOrDefault("LLM_API_KEY", ""),
			Model:    getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		},

		// Analysis configuration
		Analysis: AnalysisConfig{
			LookbackWindow:        getEnvInt("ANALYSIS_LOOKBACK_WINDOW", 156),
			PipelineIntervalHours: getEnvInt("ANALYSIS_PIPELINE_INTERVAL", 6),

			MinDailyBars:       getEnvInt("STALENESS_MIN_DAILY_BARS", 14),
			StalenessDecayDays: getEnvFloat("STALENESS_DECAY_DAYS", 5.0),

			EdgeThreshold:     getEnvFloat("EDGE_THRESHOLD", 20.0),
			EdgeForwardWeeks:  getEnvInt("EDGE_FORWARD_WEEKS", 4),
			EdgeLookbackYears: getEnvInt("EDGE_LOOKBACK_YEARS", 5),
		},
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
