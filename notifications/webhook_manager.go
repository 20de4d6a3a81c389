package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"whaleradarr/cache"
	"whaleradarr/database"
	"whaleradarr/helpers"
)

// WebhookManager handles webhook notifications
type WebhookManager struct {
	repo   *database.CotRepository
	redis  *cache.RedisClient
	client *http.Client
}

// WebhookPayload represents the JSON payload sent to webhooks
type WebhookPayload struct {
	AlertID          int64                  `json:"AlertID"`
	AlertLevel       string                 `json:"AlertLevel"`
	ReportDate       time.Time              `json:"ReportDate"`
	ContractCode     string                 `json:"ContractCode"`
	ContractName     string                 `json:"ContractName"`
	MarketCategory   string                 `json:"MarketCategory"`
	ZScore           float64                `json:"ZScore"`
	CotIndex         float64                `json:"CotIndex"`
	PriceContext     string                 `json:"PriceContext"`
	ConfidenceScore  float64                `json:"ConfidenceScore"`
	WeeklyFlowChange string                 `json:"WeeklyFlowChange"`
	Message          string                 `json:"Message"`
	Metadata         map[string]interface{} `json:"Metadata,omitempty"`
}

// NewWebhookManager creates a new webhook manager
func NewWebhookManager(repo *database.CotRepository, redis *cache.RedisClient) *WebhookManager {
	return &WebhookManager{
		repo:  repo,
		redis: redis,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendAlert processes and sends the alert to matching webhooks. netChange is
// the week-over-week leveraged fund net flow in contracts.
func (wm *WebhookManager) SendAlert(alert *database.WhaleAlert, contract *database.Contract, netChange int64) {
	// 1. Get all active webhooks
	webhooks, err := wm.getActiveWebhooks()
	if err != nil {
		log.Printf("⚠️  Failed to load webhooks: %v", err)
		return
	}

	if len(webhooks) == 0 {
		return
	}

	// 2. Prepare payload
	payload := wm.CreatePayload(alert, contract, netChange)
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️  Failed to marshal webhook payload: %v", err)
		return
	}

	// 3. Process each webhook (async)
	for _, hook := range webhooks {
		if wm.shouldSend(hook, alert, contract) {
			go wm.deliverWebhook(hook, alert.ID, payloadBytes)
		}
	}
}

func (wm *WebhookManager) getActiveWebhooks() ([]database.AlertWebhook, error) {
	// Try cache first
	cacheKey := "active_webhooks"
	if wm.redis != nil {
		var cached []database.AlertWebhook
		if err := wm.redis.Get(context.Background(), cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	// Fetch from DB
	webhooks, err := wm.repo.GetActiveWebhooks()
	if err != nil {
		return nil, err
	}

	// Update cache (expire 1 hour)
	if wm.redis != nil {
		_ = wm.redis.Set(context.Background(), cacheKey, webhooks, 1*time.Hour)
	}

	return webhooks, err
}

// CreatePayload generates the webhook payload from an alert
func (wm *WebhookManager) CreatePayload(alert *database.WhaleAlert, contract *database.Contract, netChange int64) WebhookPayload {
	flow := helpers.FormatCapitalFlow(netChange)

	// Format readable message
	// Example: "🐋 WHALE ALERT! Gold (088691) High | Z-Score: 4.50 | COT Index: 97.2 | Flow: +12,400 | Strength/Markup"
	message := fmt.Sprintf("🐋 WHALE ALERT! %s (%s) %s | Z-Score: %.2f | COT Index: %.1f | Flow: %s | %s",
		contract.ContractName,
		contract.CFTCContractCode,
		alert.AlertLevel,
		alert.ZScore,
		alert.CotIndex,
		flow,
		alert.PriceContext,
	)

	return WebhookPayload{
		AlertID:          alert.ID,
		AlertLevel:       alert.AlertLevel,
		ReportDate:       alert.ReportDate,
		ContractCode:     contract.CFTCContractCode,
		ContractName:     contract.ContractName,
		MarketCategory:   contract.MarketCategory,
		ZScore:           alert.ZScore,
		CotIndex:         alert.CotIndex,
		PriceContext:     alert.PriceContext,
		ConfidenceScore:  alert.ConfidenceScore,
		WeeklyFlowChange: flow,
		Message:          message,
		Metadata: map[string]interface{}{
			"is_rollover_week": alert.IsRolloverWeek,
			"contract_id":      alert.ContractID,
		},
	}
}

func (wm *WebhookManager) shouldSend(hook database.AlertWebhook, alert *database.WhaleAlert, contract *database.Contract) bool {
	// Check alert level filter
	if hook.AlertLevels != "" && hook.AlertLevels != "null" {
		// Lenient check: matches if the level is present in the string (JSON or CSV)
		if !strings.Contains(hook.AlertLevels, alert.AlertLevel) {
			return false
		}
	}

	// Check market category filter
	if hook.MarketCategories != "" && hook.MarketCategories != "null" {
		if !strings.Contains(hook.MarketCategories, contract.MarketCategory) {
			return false
		}
	}

	// Check confidence threshold
	if hook.MinConfidence != nil && alert.ConfidenceScore < *hook.MinConfidence {
		return false
	}

	return true
}

func (wm *WebhookManager) deliverWebhook(hook database.AlertWebhook, alertID int64, payload []byte) {
	maxRetries := hook.RetryCount
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var resp *http.Response
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, _ := http.NewRequest(hook.Method, hook.URL, bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Whale-Radarr-Alert/1.0")

		log.Printf("🔹 Sending webhook to %s (Attempt %d/%d)", hook.URL, attempt, maxRetries)

		// Auth headers
		if hook.AuthType == "BEARER" {
			req.Header.Set("Authorization", "Bearer "+hook.AuthValue)
		} else if hook.AuthHeader != "" {
			req.Header.Set(hook.AuthHeader, hook.AuthValue)
		}

		resp, err = wm.client.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			// Success
			wm.logDelivery(hook.ID, alertID, "SUCCESS", resp.StatusCode, "", attempt)
			if resp.Body != nil {
				resp.Body.Close()
			}
			return
		}

		// Wait before retry
		if attempt < maxRetries {
			time.Sleep(time.Duration(hook.RetryDelaySeconds) * time.Second)
		}
	}

	// Failed
	status := "FAILED"
	errMsg := ""
	statusCode := 0
	if err != nil {
		errMsg = err.Error()
	} else if resp != nil {
		statusCode = resp.StatusCode
		resp.Body.Close()
	}

	wm.logDelivery(hook.ID, alertID, status, statusCode, errMsg, maxRetries)
}

func (wm *WebhookManager) logDelivery(webhookID int, alertID int64, status string, code int, err string, attempt int) {
	logEntry := &database.AlertWebhookLog{
		WebhookID:    webhookID,
		WhaleAlertID: &alertID,
		TriggeredAt:  time.Now(),
		Status:       status,
		RetryAttempt: attempt,
	}

	if code != 0 {
		logEntry.HTTPStatusCode = &code
	}
	if err != "" {
		logEntry.ErrorMessage = err
	}

	if dbErr := wm.repo.SaveWebhookLog(logEntry); dbErr != nil {
		log.Printf("⚠️  Failed to save webhook log: %v", dbErr)
	}
}

// RefreshCache reloads webhook configurations
func (wm *WebhookManager) RefreshCache() {
	if wm.redis != nil {
		_ = wm.redis.Delete(context.Background(), "active_webhooks")
		log.Println("🔄 Webhook cache invalidated")
	}
}
