package app

import (
	"log"
	"math"
	"sort"

	"whaleradarr/database"
)

// Analysis constants
const (
	// DefaultLookbackWindow is the rolling statistics window (~3 years of weekly reports)
	DefaultLookbackWindow = 156

	// MinReportsForStats is the sample size below which rolling statistics
	// are computed best-effort with a warning
	MinReportsForStats = 52

	// iqrToStdDev rescales IQR to a standard-deviation equivalent under a
	// normal distribution (IQR ≈ 1.349σ, 1/1.349 ≈ 0.7413)
	iqrToStdDev = 0.7413
)

// Alert levels
const (
	AlertLevelHigh     = "High"
	AlertLevelMedium   = "Medium"
	AlertLevelLow      = "Low"
	AlertLevelRollover = "Low (Rollover)"
)

// AnalyzerService computes rolling statistics and generates whale alerts
// from weekly positioning reports.
type AnalyzerService struct {
	repo *database.CotRepository
}

// NewAnalyzerService creates a new analyzer service
func NewAnalyzerService(repo *database.CotRepository) *AnalyzerService {
	return &AnalyzerService{repo: repo}
}

// SeriesStats holds robust rolling statistics for one positioning series
type SeriesStats struct {
	Median     float64
	Q1         float64
	Q3         float64
	IQR        float64
	AllTimeMin float64
	AllTimeMax float64
}

// trackedSeries maps a (trader category, position type) pair to its value
// extractor. These are the six series the statistics engine maintains.
var trackedSeries = []struct {
	Category     string
	PositionType string
	Value        func(r *database.WeeklyReport) float64
}{
	{"dealer", "net", func(r *database.WeeklyReport) float64 { return float64(r.DealerNet()) }},
	{"asset_mgr", "net", func(r *database.WeeklyReport) float64 { return float64(r.AssetMgrNet()) }},
	{"lev_money", "net", func(r *database.WeeklyReport) float64 { return float64(r.LevNet()) }},
	{"lev_money", "long", func(r *database.WeeklyReport) float64 { return float64(r.LevLong) }},
	{"lev_money", "short", func(r *database.WeeklyReport) float64 { return float64(r.LevShort) }},
	{"lev_money", "gross", func(r *database.WeeklyReport) float64 { return float64(r.LevGross()) }},
}

// UpdateContractStatistics recomputes rolling statistics for all six tracked
// series of a contract and overwrites the live rows. Median/Q1/Q3 cover the
// most recent lookbackWindow observations; min/max cover the entire history.
// A contract with no reports is a no-op, not an error.
func (s *AnalyzerService) UpdateContractStatistics(contractID int64, lookbackWindow int) error {
	if lookbackWindow <= 0 {
		lookbackWindow = DefaultLookbackWindow
	}

	reports, err := s.repo.GetReports(contractID)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		log.Printf("⚠️  No reports found for contract %d, skipping statistics", contractID)
		return nil
	}
	if len(reports) < MinReportsForStats {
		log.Printf("⚠️  Insufficient data for contract %d (rows=%d), computing best-effort statistics",
			contractID, len(reports))
	}

	for _, series := range trackedSeries {
		values := make([]float64, len(reports))
		for i := range reports {
			values[i] = series.Value(&reports[i])
		}

		stats := ComputeSeriesStats(values, lookbackWindow)

		row := &database.ContractStatistics{
			ContractID:     contractID,
			TraderCategory: series.Category,
			PositionType:   series.PositionType,
			RollingMedian:  stats.Median,
			RollingIQR:     stats.IQR,
			AllTimeMin:     stats.AllTimeMin,
			AllTimeMax:     stats.AllTimeMax,
		}
		if err := s.repo.UpsertStatistics(row); err != nil {
			return err
		}
	}

	log.Printf("✅ Statistics updated for contract %d (%d reports)", contractID, len(reports))
	return nil
}

// ComputeSeriesStats computes rolling median/quartiles over the trailing
// window and min/max over the full series. The values slice must be ordered
// oldest first.
func ComputeSeriesStats(values []float64, window int) SeriesStats {
	if len(values) == 0 {
		return SeriesStats{}
	}

	windowed := values
	if len(values) > window {
		windowed = values[len(values)-window:]
	}

	sorted := make([]float64, len(windowed))
	copy(sorted, windowed)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)

	stats := SeriesStats{
		Median: quantile(sorted, 0.50),
		Q1:     q1,
		Q3:     q3,
		IQR:    q3 - q1,
	}

	stats.AllTimeMin = values[0]
	stats.AllTimeMax = values[0]
	for _, v := range values[1:] {
		stats.AllTimeMin = math.Min(stats.AllTimeMin, v)
		stats.AllTimeMax = math.Max(stats.AllTimeMax, v)
	}
	return stats
}

// quantile returns the p-quantile of an ascending-sorted slice using linear
// interpolation between closest ranks.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// GenerateAlert classifies the most recent report for a contract against its
// rolling baseline and replaces the stored alert for that report week.
// Returns the stored alert, or nil when inputs are missing (no report, or
// statistics not yet computed — statistics must run before alert generation).
func (s *AnalyzerService) GenerateAlert(contractID int64) (*database.WhaleAlert, error) {
	report, err := s.repo.GetLatestReport(contractID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		log.Printf("⚠️  No reports found for contract %d, skipping alert", contractID)
		return nil, nil
	}

	stats, err := s.repo.GetStatistics(contractID, "lev_money", "net")
	if err != nil {
		return nil, err
	}
	if stats == nil {
		log.Printf("⚠️  No leveraged fund statistics for contract %d, run statistics first", contractID)
		return nil, nil
	}

	price, err := s.repo.GetWeeklyPrice(contractID, report.ReportDate)
	if err != nil {
		return nil, err
	}

	alert := BuildAlert(report, stats, price)

	if err := s.repo.ReplaceAlert(alert); err != nil {
		return nil, err
	}

	log.Printf("✅ Generated alert for contract %d: level=%s z=%.2f", contractID, alert.AlertLevel, alert.ZScore)
	return alert, nil
}

// CotIndexValue places a value within its historical range on a 0-100 scale.
// A degenerate range (min == max) yields the midpoint 50.
func CotIndexValue(current, min, max float64) float64 {
	denom := max - min
	if denom <= 0 {
		return 50.0
	}
	return (current - min) / denom * 100
}

// BuildAlert computes z-score, COT index, price context and the alert
// level/confidence ladder for one report against its baseline. Pure logic;
// persistence happens in GenerateAlert.
func BuildAlert(report *database.WeeklyReport, stats *database.ContractStatistics, price *database.WeeklyPrice) *database.WhaleAlert {
	currentNet := float64(report.LevNet())

	// Robust z-score: deviation from rolling median in rescaled-IQR units
	zScore := 0.0
	if iqrScale := stats.RollingIQR * iqrToStdDev; iqrScale > 0 {
		zScore = (currentNet - stats.RollingMedian) / iqrScale
	}

	cotIndex := CotIndexValue(currentNet, stats.AllTimeMin, stats.AllTimeMax)

	priceContext := "Neutral"
	if price != nil && price.CloseVsVWAPPct != nil && price.ClosePrice != nil && price.ReportingVWAP != nil {
		if *price.ClosePrice >= *price.ReportingVWAP {
			priceContext = "Strength/Markup"
		} else {
			priceContext = "Weakness/Absorption"
		}
	}

	alertLevel := AlertLevelLow
	confidence := 50.0

	absZ := math.Abs(zScore)
	if absZ > 2.0 {
		alertLevel = AlertLevelHigh
		confidence += 30
	} else if absZ > 1.0 {
		alertLevel = AlertLevelMedium
		confidence += 10
	}

	if cotIndex > 90 || cotIndex < 10 {
		confidence += 10
	}

	// Rollover weeks carry structurally noisy positioning; suppress the alert
	// no matter how extreme the raw z-score is
	if report.IsRolloverWeek {
		alertLevel = AlertLevelRollover
		confidence = 10.0
	}

	return &database.WhaleAlert{
		ContractID:      report.ContractID,
		ReportDate:      report.ReportDate,
		AlertLevel:      alertLevel,
		ZScore:          zScore,
		CotIndex:        cotIndex,
		PriceContext:    priceContext,
		ConfidenceScore: confidence,
		IsRolloverWeek:  report.IsRolloverWeek,
	}
}
