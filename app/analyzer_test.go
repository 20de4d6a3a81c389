package app

import (
	"math"
	"testing"
	"time"

	"whaleradarr/database"
)

func floatPtr(v float64) *float64 { return &v }

func levReport(levLong, levShort int64, rollover bool) *database.WeeklyReport {
	return &database.WeeklyReport{
		ContractID:     1,
		ReportDate:     time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		LevLong:        levLong,
		LevShort:       levShort,
		OpenInterest:   10000,
		IsRolloverWeek: rollover,
	}
}

func TestComputeSeriesStats(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	stats := ComputeSeriesStats(values, 4)

	// Window covers [7 8 9 10]; min/max cover the full series
	if stats.Median != 8.5 {
		t.Errorf("Median = %v, want 8.5", stats.Median)
	}
	if stats.IQR != 1.5 {
		t.Errorf("IQR = %v, want 1.5", stats.IQR)
	}
	if stats.AllTimeMin != 1 || stats.AllTimeMax != 10 {
		t.Errorf("range = [%v, %v], want [1, 10]", stats.AllTimeMin, stats.AllTimeMax)
	}
}

func TestComputeSeriesStatsDegenerate(t *testing.T) {
	if stats := ComputeSeriesStats(nil, 156); stats != (SeriesStats{}) {
		t.Errorf("empty series should yield zero stats, got %+v", stats)
	}

	stats := ComputeSeriesStats([]float64{42}, 156)
	if stats.Median != 42 || stats.IQR != 0 {
		t.Errorf("single value: median=%v iqr=%v, want 42 and 0", stats.Median, stats.IQR)
	}
	if stats.AllTimeMin != 42 || stats.AllTimeMax != 42 {
		t.Errorf("single value range = [%v, %v], want [42, 42]", stats.AllTimeMin, stats.AllTimeMax)
	}
}

func TestBuildAlertExtremePositioning(t *testing.T) {
	report := levReport(200, 0, false)
	stats := &database.ContractStatistics{
		RollingMedian: 100,
		RollingIQR:    20,
		AllTimeMin:    0,
		AllTimeMax:    200,
	}

	alert := BuildAlert(report, stats, nil)

	// (200-100)/(20*0.7413) ≈ 6.745
	if math.Abs(alert.ZScore-6.745) > 0.01 {
		t.Errorf("ZScore = %v, want ≈6.745", alert.ZScore)
	}
	if alert.AlertLevel != AlertLevelHigh {
		t.Errorf("AlertLevel = %q, want %q", alert.AlertLevel, AlertLevelHigh)
	}
	if alert.CotIndex != 100 {
		t.Errorf("CotIndex = %v, want 100", alert.CotIndex)
	}
	// 50 base + 30 extreme z + 10 extreme COT index
	if alert.ConfidenceScore != 90 {
		t.Errorf("ConfidenceScore = %v, want 90", alert.ConfidenceScore)
	}
	if alert.PriceContext != "Neutral" {
		t.Errorf("PriceContext = %q, want Neutral without price data", alert.PriceContext)
	}
}

func TestBuildAlertAtMedian(t *testing.T) {
	report := levReport(100, 0, false)
	stats := &database.ContractStatistics{
		RollingMedian: 100,
		RollingIQR:    20,
		AllTimeMin:    0,
		AllTimeMax:    200,
	}

	alert := BuildAlert(report, stats, nil)

	if alert.ZScore != 0 {
		t.Errorf("ZScore = %v, want 0 when net equals the median", alert.ZScore)
	}
	if alert.AlertLevel != AlertLevelLow {
		t.Errorf("AlertLevel = %q, want %q", alert.AlertLevel, AlertLevelLow)
	}
	if alert.ConfidenceScore != 50 {
		t.Errorf("ConfidenceScore = %v, want 50", alert.ConfidenceScore)
	}
}

func TestBuildAlertZeroIQR(t *testing.T) {
	report := levReport(500, 0, false)
	stats := &database.ContractStatistics{
		RollingMedian: 100,
		RollingIQR:    0,
		AllTimeMin:    100,
		AllTimeMax:    100,
	}

	alert := BuildAlert(report, stats, nil)

	if alert.ZScore != 0 {
		t.Errorf("ZScore = %v, want 0 on zero IQR", alert.ZScore)
	}
	if alert.CotIndex != 50 {
		t.Errorf("CotIndex = %v, want midpoint 50 on degenerate range", alert.CotIndex)
	}
}

func TestBuildAlertRolloverSuppression(t *testing.T) {
	report := levReport(200, 0, true)
	stats := &database.ContractStatistics{
		RollingMedian: 100,
		RollingIQR:    20,
		AllTimeMin:    0,
		AllTimeMax:    200,
	}

	alert := BuildAlert(report, stats, nil)

	if alert.AlertLevel != AlertLevelRollover {
		t.Errorf("AlertLevel = %q, want %q", alert.AlertLevel, AlertLevelRollover)
	}
	if alert.ConfidenceScore != 10 {
		t.Errorf("ConfidenceScore = %v, want 10 on rollover weeks", alert.ConfidenceScore)
	}
	// z-score itself is still reported for transparency
	if alert.ZScore == 0 {
		t.Error("ZScore should still be computed on rollover weeks")
	}
}

func TestBuildAlertPriceContext(t *testing.T) {
	stats := &database.ContractStatistics{RollingMedian: 0, RollingIQR: 10, AllTimeMin: -100, AllTimeMax: 100}

	tests := []struct {
		name  string
		price *database.WeeklyPrice
		want  string
	}{
		{"no price row", nil, "Neutral"},
		{"missing vwap", &database.WeeklyPrice{ClosePrice: floatPtr(105)}, "Neutral"},
		{
			"close above vwap",
			&database.WeeklyPrice{ClosePrice: floatPtr(105), ReportingVWAP: floatPtr(100), CloseVsVWAPPct: floatPtr(5)},
			"Strength/Markup",
		},
		{
			"close at vwap",
			&database.WeeklyPrice{ClosePrice: floatPtr(100), ReportingVWAP: floatPtr(100), CloseVsVWAPPct: floatPtr(0)},
			"Strength/Markup",
		},
		{
			"close below vwap",
			&database.WeeklyPrice{ClosePrice: floatPtr(95), ReportingVWAP: floatPtr(100), CloseVsVWAPPct: floatPtr(-5)},
			"Weakness/Absorption",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := BuildAlert(levReport(10, 0, false), stats, tt.price)
			if alert.PriceContext != tt.want {
				t.Errorf("PriceContext = %q, want %q", alert.PriceContext, tt.want)
			}
		})
	}
}

func TestCotIndexValue(t *testing.T) {
	tests := []struct {
		name              string
		current, min, max float64
		want              float64
	}{
		{"at minimum", -50, -50, 50, 0},
		{"at maximum", 50, -50, 50, 100},
		{"midpoint", 0, -50, 50, 50},
		{"degenerate range", 42, 42, 42, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CotIndexValue(tt.current, tt.min, tt.max); got != tt.want {
				t.Errorf("CotIndexValue(%v, %v, %v) = %v, want %v", tt.current, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}

	if got := quantile(sorted, 0.5); got != 25 {
		t.Errorf("median = %v, want 25", got)
	}
	if got := quantile(sorted, 0); got != 10 {
		t.Errorf("p0 = %v, want 10", got)
	}
	if got := quantile(sorted, 1); got != 40 {
		t.Errorf("p100 = %v, want 40", got)
	}
}
