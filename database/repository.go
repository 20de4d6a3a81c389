package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CotRepository handles database operations for COT positioning data
type CotRepository struct {
	db *Database
}

// NewCotRepository creates a new COT repository
func NewCotRepository(db *Database) *CotRepository {
	return &CotRepository{db: db}
}

// DateOnly truncates a timestamp to its UTC calendar date. All report and
// price dates are stored and compared at date granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InitSchema performs auto-migration for all tables
func (r *CotRepository) InitSchema() error {
	fmt.Println("🔄 Starting database schema initialization...")

	err := r.db.db.AutoMigrate(
		&Contract{},
		&WeeklyReport{},
		&WeeklyPrice{},
		&DailyPrice{},
		&ContractStatistics{},
		&WhaleAlert{},
		&AlertWebhook{},
		&AlertWebhookLog{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	fmt.Println("✅ Database schema ready")
	return nil
}

// ============================================================================
// Contracts
// ============================================================================

// GetActiveContracts retrieves all active contracts
func (r *CotRepository) GetActiveContracts() ([]Contract, error) {
	var contracts []Contract
	err := r.db.db.Where("is_active = ?", true).Order("cftc_contract_code ASC").Find(&contracts).Error
	return contracts, err
}

// GetContract retrieves a contract by ID, nil when not found
func (r *CotRepository) GetContract(id int64) (*Contract, error) {
	var contract Contract
	err := r.db.db.First(&contract, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// SaveContract creates or updates a contract keyed by its CFTC code
func (r *CotRepository) SaveContract(contract *Contract) error {
	return r.db.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cftc_contract_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"contract_name", "market_category", "yahoo_ticker", "exchange",
			"contract_unit_value", "is_active",
		}),
	}).Create(contract).Error
}

// ============================================================================
// Weekly Reports
// ============================================================================

// GetReports retrieves the full positioning history for a contract, oldest first
func (r *CotRepository) GetReports(contractID int64) ([]WeeklyReport, error) {
	var reports []WeeklyReport
	err := r.db.db.
		Where("contract_id = ?", contractID).
		Order("report_date ASC").
		Find(&reports).Error
	return reports, err
}

// GetReportsSince retrieves reports on or after the cutoff date, oldest first
func (r *CotRepository) GetReportsSince(contractID int64, cutoff time.Time) ([]WeeklyReport, error) {
	var reports []WeeklyReport
	err := r.db.db.
		Where("contract_id = ? AND report_date >= ?", contractID, DateOnly(cutoff)).
		Order("report_date ASC").
		Find(&reports).Error
	return reports, err
}

// GetRecentReports retrieves the most recent reports for a contract, newest first
func (r *CotRepository) GetRecentReports(contractID int64, limit int) ([]WeeklyReport, error) {
	var reports []WeeklyReport
	err := r.db.db.
		Where("contract_id = ?", contractID).
		Order("report_date DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

// GetLatestReport retrieves the most recent report for a contract, nil when none exists
func (r *CotRepository) GetLatestReport(contractID int64) (*WeeklyReport, error) {
	var report WeeklyReport
	err := r.db.db.
		Where("contract_id = ?", contractID).
		Order("report_date DESC").
		First(&report).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveWeeklyReport upserts a report keyed by (contract_id, report_date).
// Re-ingesting the same week overwrites the previous row.
func (r *CotRepository) SaveWeeklyReport(report *WeeklyReport) error {
	report.ReportDate = DateOnly(report.ReportDate)
	return r.db.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "contract_id"}, {Name: "report_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"dealer_long", "dealer_short", "dealer_spread",
			"asset_mgr_long", "asset_mgr_short", "asset_mgr_spread",
			"lev_long", "lev_short", "lev_spread",
			"non_report_long", "non_report_short",
			"open_interest", "is_rollover_week",
		}),
	}).Create(report).Error
}

// ============================================================================
// Prices
// ============================================================================

// GetWeeklyPrice retrieves the weekly price row matching a report date, nil when absent
func (r *CotRepository) GetWeeklyPrice(contractID int64, reportDate time.Time) (*WeeklyPrice, error) {
	var price WeeklyPrice
	err := r.db.db.
		Where("contract_id = ? AND report_date = ?", contractID, DateOnly(reportDate)).
		First(&price).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &price, nil
}

// GetWeeklyPricesSince retrieves weekly prices on or after the cutoff, oldest first
func (r *CotRepository) GetWeeklyPricesSince(contractID int64, cutoff time.Time) ([]WeeklyPrice, error) {
	var prices []WeeklyPrice
	err := r.db.db.
		Where("contract_id = ? AND report_date >= ?", contractID, DateOnly(cutoff)).
		Order("report_date ASC").
		Find(&prices).Error
	return prices, err
}

// SaveWeeklyPrice upserts a weekly price keyed by (contract_id, report_date)
func (r *CotRepository) SaveWeeklyPrice(price *WeeklyPrice) error {
	price.ReportDate = DateOnly(price.ReportDate)
	return r.db.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "contract_id"}, {Name: "report_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open_price", "high_price", "low_price", "close_price",
			"reporting_vwap", "close_vs_vwap_pct", "volume", "data_source",
		}),
	}).Create(price).Error
}

// GetDailyPrices retrieves daily bars on or after the cutoff, oldest first
func (r *CotRepository) GetDailyPrices(contractID int64, cutoff time.Time) ([]DailyPrice, error) {
	var prices []DailyPrice
	err := r.db.db.
		Where("contract_id = ? AND date >= ?", contractID, DateOnly(cutoff)).
		Order("date ASC").
		Find(&prices).Error
	return prices, err
}

// SaveDailyPrice upserts a daily bar keyed by (contract_id, date)
func (r *CotRepository) SaveDailyPrice(price *DailyPrice) error {
	price.Date = DateOnly(price.Date)
	return r.db.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "contract_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open_price", "high_price", "low_price", "close_price", "volume", "data_source",
		}),
	}).Create(price).Error
}

// ============================================================================
// Statistics
// ============================================================================

// GetStatistics retrieves the live statistics row for one series, nil when absent
func (r *CotRepository) GetStatistics(contractID int64, category, positionType string) (*ContractStatistics, error) {
	var stats ContractStatistics
	err := r.db.db.
		Where("contract_id = ? AND trader_category = ? AND position_type = ?",
			contractID, category, positionType).
		First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetContractStatistics retrieves all statistics rows for a contract
func (r *CotRepository) GetContractStatistics(contractID int64) ([]ContractStatistics, error) {
	var stats []ContractStatistics
	err := r.db.db.
		Where("contract_id = ?", contractID).
		Order("trader_category ASC, position_type ASC").
		Find(&stats).Error
	return stats, err
}

// UpsertStatistics overwrites the single live row for a series, creating it if
// missing. No history is kept: (contract, category, position type) is a key to
// exactly one row.
func (r *CotRepository) UpsertStatistics(stats *ContractStatistics) error {
	return r.db.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "contract_id"}, {Name: "trader_category"}, {Name: "position_type"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"rolling_median", "rolling_iqr", "all_time_min", "all_time_max",
		}),
	}).Create(stats).Error
}

// ============================================================================
// Alerts
// ============================================================================

// ReplaceAlert deletes any existing alert for the same (contract, report date)
// and inserts the new one in a single transaction. Re-running alert generation
// therefore replaces the prior alert instead of accumulating duplicates.
func (r *CotRepository) ReplaceAlert(alert *WhaleAlert) error {
	alert.ReportDate = DateOnly(alert.ReportDate)
	return r.db.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("contract_id = ? AND report_date = ?", alert.ContractID, alert.ReportDate).
			Delete(&WhaleAlert{}).Error; err != nil {
			return err
		}
		return tx.Create(alert).Error
	})
}

// GetAlerts retrieves alerts with optional level and confidence filters,
// newest report date first then highest confidence
func (r *CotRepository) GetAlerts(level string, minConfidence float64, limit, offset int) ([]WhaleAlert, error) {
	var alerts []WhaleAlert
	query := r.db.db.Order("report_date DESC, confidence_score DESC")

	if level != "" {
		query = query.Where("alert_level = ?", level)
	}
	if minConfidence > 0 {
		query = query.Where("confidence_score >= ?", minConfidence)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&alerts).Error
	return alerts, err
}

// GetAlertsByContract retrieves recent alerts for one contract, newest first
func (r *CotRepository) GetAlertsByContract(contractID int64, limit int) ([]WhaleAlert, error) {
	var alerts []WhaleAlert
	query := r.db.db.
		Where("contract_id = ?", contractID).
		Order("report_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&alerts).Error
	return alerts, err
}

// ============================================================================
// Webhooks
// ============================================================================

// GetActiveWebhooks retrieves all active webhook registrations
func (r *CotRepository) GetActiveWebhooks() ([]AlertWebhook, error) {
	var webhooks []AlertWebhook
	err := r.db.db.Where("is_active = ?", true).Find(&webhooks).Error
	return webhooks, err
}

// GetWebhooks retrieves all webhook registrations
func (r *CotRepository) GetWebhooks() ([]AlertWebhook, error) {
	var webhooks []AlertWebhook
	err := r.db.db.Order("id ASC").Find(&webhooks).Error
	return webhooks, err
}

// GetWebhookByID retrieves a webhook by ID
func (r *CotRepository) GetWebhookByID(id int) (*AlertWebhook, error) {
	var webhook AlertWebhook
	err := r.db.db.First(&webhook, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &webhook, nil
}

// SaveWebhook creates or updates a webhook registration
func (r *CotRepository) SaveWebhook(webhook *AlertWebhook) error {
	return r.db.db.Save(webhook).Error
}

// DeleteWebhook removes a webhook registration and its delivery logs
func (r *CotRepository) DeleteWebhook(id int) error {
	return r.db.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("webhook_id = ?", id).Delete(&AlertWebhookLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&AlertWebhook{}, id).Error
	})
}

// SaveWebhookLog persists a webhook delivery log entry
func (r *CotRepository) SaveWebhookLog(entry *AlertWebhookLog) error {
	return r.db.db.Create(entry).Error
}
