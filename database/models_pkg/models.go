package models

import "time"

// Contract represents a tradable futures contract tracked by the system.
// Each contract maps a CFTC contract code to an optional market-data ticker
// used for staleness scoring.
//
// Key Fields:
//   - CFTCContractCode: Unique CFTC identifier for the contract
//   - MarketCategory: Sector grouping used by radar aggregation (equity, crypto, metal, ...)
//   - YahooTicker: External chart-API symbol; nil disables staleness scoring
//   - IsActive: Inactive contracts are skipped by the pipeline and radar
type Contract struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CFTCContractCode  string    `gorm:"size:20;uniqueIndex;not null" json:"cftc_contract_code"`
	ContractName      string    `gorm:"size:255;not null" json:"contract_name"`
	MarketCategory    string    `gorm:"size:50;index;not null" json:"market_category"`
	YahooTicker       *string   `gorm:"size:20" json:"yahoo_ticker,omitempty"`
	Exchange          *string   `gorm:"size:50" json:"exchange,omitempty"`
	ContractUnitValue float64   `gorm:"type:decimal(12,2);default:1.0" json:"contract_unit_value"`
	IsActive          bool      `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Contract
func (Contract) TableName() string {
	return "contracts"
}

// WeeklyReport represents one week of disaggregated positioning data for a
// contract: long/short contract counts per trader category plus the
// non-reporting (retail proxy) bucket and total open interest.
//
// Net positions are always derived (long - short) via methods, never stored,
// so they can never drift from their inputs. Rows are immutable once ingested
// except for idempotent re-ingestion of the same (contract, report date) key.
type WeeklyReport struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ContractID int64     `gorm:"index;uniqueIndex:uq_contract_report_date,priority:1;not null" json:"contract_id"`
	ReportDate time.Time `gorm:"type:date;index;uniqueIndex:uq_contract_report_date,priority:2;not null" json:"report_date"`

	// Dealer
	DealerLong   int64 `gorm:"default:0" json:"dealer_long"`
	DealerShort  int64 `gorm:"default:0" json:"dealer_short"`
	DealerSpread int64 `gorm:"default:0" json:"dealer_spread"`

	// Asset Manager
	AssetMgrLong   int64 `gorm:"default:0" json:"asset_mgr_long"`
	AssetMgrShort  int64 `gorm:"default:0" json:"asset_mgr_short"`
	AssetMgrSpread int64 `gorm:"default:0" json:"asset_mgr_spread"`

	// Leveraged Funds
	LevLong   int64 `gorm:"default:0" json:"lev_long"`
	LevShort  int64 `gorm:"default:0" json:"lev_short"`
	LevSpread int64 `gorm:"default:0" json:"lev_spread"`

	// Retail Proxy
	NonReportLong  int64 `gorm:"default:0" json:"non_report_long"`
	NonReportShort int64 `gorm:"default:0" json:"non_report_short"`

	OpenInterest   int64 `gorm:"not null" json:"open_interest"`
	IsRolloverWeek bool  `gorm:"default:false" json:"is_rollover_week"`
}

// TableName specifies the table name for WeeklyReport
func (WeeklyReport) TableName() string {
	return "weekly_reports"
}

// DealerNet returns the dealer net position (long - short)
func (r *WeeklyReport) DealerNet() int64 {
	return r.DealerLong - r.DealerShort
}

// AssetMgrNet returns the asset manager net position (long - short)
func (r *WeeklyReport) AssetMgrNet() int64 {
	return r.AssetMgrLong - r.AssetMgrShort
}

// LevNet returns the leveraged fund net position (long - short)
func (r *WeeklyReport) LevNet() int64 {
	return r.LevLong - r.LevShort
}

// LevGross returns the leveraged fund gross exposure (long + short)
func (r *WeeklyReport) LevGross() int64 {
	return r.LevLong + r.LevShort
}

// NonReportNet returns the non-reporting trader net position (long - short)
func (r *WeeklyReport) NonReportNet() int64 {
	return r.NonReportLong - r.NonReportShort
}

// WeeklyPrice holds OHLCV for a contract on a report date (Tuesday), with
// the VWAP of the reporting window and the close deviation from it. Read-only
// price context for alert generation and backtesting.
type WeeklyPrice struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ContractID int64     `gorm:"index;uniqueIndex:uq_contract_price,priority:1;not null" json:"contract_id"`
	ReportDate time.Time `gorm:"type:date;uniqueIndex:uq_contract_price,priority:2;not null" json:"report_date"`

	OpenPrice  *float64 `gorm:"type:decimal(16,6)" json:"open_price,omitempty"`
	HighPrice  *float64 `gorm:"type:decimal(16,6)" json:"high_price,omitempty"`
	LowPrice   *float64 `gorm:"type:decimal(16,6)" json:"low_price,omitempty"`
	ClosePrice *float64 `gorm:"type:decimal(16,6)" json:"close_price,omitempty"`

	// VWAP over the Wednesday -> Tuesday reporting window
	ReportingVWAP  *float64 `gorm:"type:decimal(16,6)" json:"reporting_vwap,omitempty"`
	CloseVsVWAPPct *float64 `gorm:"type:decimal(10,2)" json:"close_vs_vwap_pct,omitempty"`
	Volume         int64    `gorm:"default:0" json:"volume"`

	DataSource *string `gorm:"size:20" json:"data_source,omitempty"`
}

// TableName specifies the table name for WeeklyPrice
func (WeeklyPrice) TableName() string {
	return "weekly_prices"
}

// DailyPrice holds one daily OHLCV bar for a contract, cached locally for
// reference-price lookups when the weekly row is missing.
type DailyPrice struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ContractID int64     `gorm:"index;uniqueIndex:uq_contract_daily_price,priority:1;not null" json:"contract_id"`
	Date       time.Time `gorm:"type:date;index;uniqueIndex:uq_contract_daily_price,priority:2;not null" json:"date"`

	OpenPrice  float64 `gorm:"type:decimal(16,6);not null" json:"open_price"`
	HighPrice  float64 `gorm:"type:decimal(16,6);not null" json:"high_price"`
	LowPrice   float64 `gorm:"type:decimal(16,6);not null" json:"low_price"`
	ClosePrice float64 `gorm:"type:decimal(16,6);not null" json:"close_price"`
	Volume     int64   `gorm:"default:0" json:"volume"`

	DataSource string `gorm:"size:20;default:yahoo" json:"data_source"`
}

// TableName specifies the table name for DailyPrice
func (DailyPrice) TableName() string {
	return "daily_prices"
}

// ContractStatistics stores the live rolling statistics for one positioning
// series: (contract, trader category, position type). At most one row per key.
// Rows are overwritten in place on every statistics run; no history is kept.
//
// Median and IQR adapt to a ~3-year rolling window while min/max span the
// entire available history so the COT index reflects multi-year extremes.
type ContractStatistics struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ContractID int64 `gorm:"uniqueIndex:uq_contract_stats,priority:1;not null" json:"contract_id"`

	TraderCategory string `gorm:"size:20;uniqueIndex:uq_contract_stats,priority:2;not null" json:"trader_category"` // dealer, asset_mgr, lev_money
	PositionType   string `gorm:"size:10;uniqueIndex:uq_contract_stats,priority:3;not null" json:"position_type"`   // long, short, net, gross

	RollingMedian float64 `gorm:"type:decimal(15,2)" json:"rolling_median"`
	RollingIQR    float64 `gorm:"type:decimal(15,2)" json:"rolling_iqr"`
	AllTimeMin    float64 `gorm:"type:decimal(15,2)" json:"all_time_min"`
	AllTimeMax    float64 `gorm:"type:decimal(15,2)" json:"all_time_max"`
}

// TableName specifies the table name for ContractStatistics
func (ContractStatistics) TableName() string {
	return "contract_statistics"
}

// WhaleAlert represents a classified positioning anomaly for one contract and
// report week. Exactly one alert can exist per (contract, report date);
// regeneration replaces the previous row.
//
// Key Fields:
//   - AlertLevel: High, Medium, Low or "Low (Rollover)"
//   - ZScore: Robust z-score of leveraged fund net vs the rolling baseline
//   - CotIndex: Position of the current net within the all-time range (0-100)
//   - PriceContext: "Strength/Markup", "Weakness/Absorption" or "Neutral"
//   - ConfidenceScore: 0-100, forced to 10 on rollover weeks
type WhaleAlert struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ContractID int64     `gorm:"index;not null" json:"contract_id"`
	ReportDate time.Time `gorm:"type:date;index;not null" json:"report_date"`

	AlertLevel      string    `gorm:"size:20" json:"alert_level"`
	ZScore          float64   `gorm:"type:decimal(10,4)" json:"z_score"`
	CotIndex        float64   `gorm:"type:decimal(5,2)" json:"cot_index"`
	PriceContext    string    `gorm:"size:50" json:"price_context"`
	ConfidenceScore float64   `gorm:"type:decimal(5,2)" json:"confidence_score"`
	IsRolloverWeek  bool      `gorm:"default:false" json:"is_rollover_week"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for WhaleAlert
func (WhaleAlert) TableName() string {
	return "whale_alerts"
}

// AlertWebhook holds webhook registration for alert notifications
type AlertWebhook struct {
	ID                int        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string     `gorm:"size:100;not null" json:"name"`
	URL               string     `gorm:"not null" json:"url"`
	Method            string     `gorm:"size:10;default:POST" json:"method"`
	AuthType          string     `gorm:"size:20" json:"auth_type"`
	AuthHeader        string     `gorm:"size:100" json:"auth_header"`
	AuthValue         string     `json:"auth_value"`
	AlertLevels       string     `json:"alert_levels"`      // Stored as JSON array
	MarketCategories  string     `json:"market_categories"` // Stored as JSON array
	MinConfidence     *float64   `gorm:"type:decimal(5,2)" json:"min_confidence,omitempty"`
	IsActive          bool       `gorm:"default:true" json:"is_active"`
	RetryCount        int        `gorm:"default:3" json:"retry_count"`
	RetryDelaySeconds int        `gorm:"default:5" json:"retry_delay_seconds"`
	TimeoutSeconds    int        `gorm:"default:10" json:"timeout_seconds"`
	LastTriggeredAt   *time.Time `json:"last_triggered_at,omitempty"`
	LastSuccessAt     *time.Time `json:"last_success_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	TotalSent         int        `gorm:"default:0" json:"total_sent"`
	TotalFailed       int        `gorm:"default:0" json:"total_failed"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for AlertWebhook
func (AlertWebhook) TableName() string {
	return "alert_webhooks"
}

// AlertWebhookLog holds webhook delivery logs
type AlertWebhookLog struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WebhookID      int       `gorm:"index;not null" json:"webhook_id"`
	WhaleAlertID   *int64    `json:"whale_alert_id,omitempty"`
	TriggeredAt    time.Time `gorm:"index;not null" json:"triggered_at"`
	Status         string    `gorm:"type:text" json:"status"` // SUCCESS, FAILED, TIMEOUT
	HTTPStatusCode *int      `json:"http_status_code,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	RetryAttempt   int       `gorm:"default:0" json:"retry_attempt"`
}

// TableName specifies the table name for AlertWebhookLog
func (AlertWebhookLog) TableName() string {
	return "alert_webhook_logs"
}
