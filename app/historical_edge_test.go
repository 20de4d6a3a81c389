package app

import (
	"math"
	"testing"
	"time"

	"whaleradarr/database"
)

func edgeReport(date time.Time, amLong, amShort, nrLong, nrShort int64) database.WeeklyReport {
	return database.WeeklyReport{
		ContractID:     1,
		ReportDate:     date,
		AssetMgrLong:   amLong,
		AssetMgrShort:  amShort,
		NonReportLong:  nrLong,
		NonReportShort: nrShort,
		OpenInterest:   10000,
	}
}

func TestSentimentGapNetShare(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		report database.WeeklyReport
		want   float64
	}{
		{
			// 800/1200×100 − 0/1000×100 = 66.67
			"whales net long vs flat retail",
			edgeReport(date, 1000, 200, 500, 500),
			66.67,
		},
		{
			"whales net short",
			edgeReport(date, 200, 1000, 500, 500),
			-66.67,
		},
		{
			"no whale positions",
			edgeReport(date, 0, 0, 500, 500),
			0,
		},
		{
			"no retail positions",
			edgeReport(date, 1000, 200, 0, 0),
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SentimentGapNetShare(&tt.report)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("SentimentGapNetShare = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunEdgeBacktestNoTriggers(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := []database.WeeklyReport{
		edgeReport(date, 1000, 200, 500, 500), // gap 66.67
	}
	prices := map[string]float64{"2024-01-02": 100}

	// Gaps are bounded within [-100, 100], so threshold 200 can never trigger
	result := RunEdgeBacktest(reports, prices, 200, 4)

	if result.SampleSize != 0 {
		t.Errorf("SampleSize = %d, want 0", result.SampleSize)
	}
	if len(result.Occurrences) != 0 {
		t.Errorf("Occurrences = %d entries, want empty list", len(result.Occurrences))
	}
	if result.WinRate != 0 || result.AvgReturn != 0 {
		t.Errorf("empty backtest must carry zero statistics, got win_rate=%v avg=%v", result.WinRate, result.AvgReturn)
	}
}

func TestRunEdgeBacktestLongSignal(t *testing.T) {
	entry := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := []database.WeeklyReport{
		edgeReport(entry, 1000, 200, 500, 500), // gap 66.67, long
	}
	prices := map[string]float64{
		"2024-01-02": 100,
		"2024-01-30": 110, // exactly 4 weeks forward
	}

	result := RunEdgeBacktest(reports, prices, 20, 4)

	if result.SampleSize != 1 {
		t.Fatalf("SampleSize = %d, want 1", result.SampleSize)
	}
	occ := result.Occurrences[0]
	if occ.Direction != "long" {
		t.Errorf("Direction = %q, want long", occ.Direction)
	}
	if occ.ReturnPct != 10 {
		t.Errorf("ReturnPct = %v, want 10", occ.ReturnPct)
	}
	if !occ.Win {
		t.Error("a positive long return must count as a win")
	}
	if result.WinRate != 100 {
		t.Errorf("WinRate = %v, want 100", result.WinRate)
	}
}

func TestRunEdgeBacktestShortNegation(t *testing.T) {
	entry := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := []database.WeeklyReport{
		edgeReport(entry, 200, 1000, 500, 500), // gap -66.67, short
	}
	prices := map[string]float64{
		"2024-01-02": 100,
		"2024-01-30": 90, // price fell: short wins
	}

	result := RunEdgeBacktest(reports, prices, 20, 4)

	if result.SampleSize != 1 {
		t.Fatalf("SampleSize = %d, want 1", result.SampleSize)
	}
	occ := result.Occurrences[0]
	if occ.Direction != "short" {
		t.Errorf("Direction = %q, want short", occ.Direction)
	}
	if occ.ReturnPct != 10 {
		t.Errorf("ReturnPct = %v, want +10 after short negation", occ.ReturnPct)
	}
	if !occ.Win {
		t.Error("a profitable short must count as a win")
	}
}

func TestRunEdgeBacktestExitSearchWindow(t *testing.T) {
	entry := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := []database.WeeklyReport{
		edgeReport(entry, 1000, 200, 500, 500),
	}

	// No price on the exact target date; nearest forward price is 5 days late
	prices := map[string]float64{
		"2024-01-02": 100,
		"2024-02-04": 105, // target 2024-01-30 + 5 days
	}
	result := RunEdgeBacktest(reports, prices, 20, 4)
	if result.SampleSize != 1 {
		t.Fatalf("SampleSize = %d, want 1 (exit found within the search window)", result.SampleSize)
	}
	if result.Occurrences[0].ExitPrice != 105 {
		t.Errorf("ExitPrice = %v, want 105", result.Occurrences[0].ExitPrice)
	}

	// Beyond the 14-day search window the trigger is dropped
	prices = map[string]float64{
		"2024-01-02": 100,
		"2024-02-20": 105,
	}
	result = RunEdgeBacktest(reports, prices, 20, 4)
	if result.SampleSize != 0 {
		t.Errorf("SampleSize = %d, want 0 when no exit price exists within 14 days", result.SampleSize)
	}
}

func TestRunEdgeBacktestAggregates(t *testing.T) {
	start := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)

	var reports []database.WeeklyReport
	prices := make(map[string]float64)

	// Three long triggers with forward returns +10%, -5%, +20%
	exitPrices := []float64{110, 95, 120}
	for i, exit := range exitPrices {
		entry := start.AddDate(0, 0, i*7*6) // spaced out so exits never collide
		reports = append(reports, edgeReport(entry, 1000, 200, 500, 500))
		prices[entry.Format("2006-01-02")] = 100
		prices[entry.AddDate(0, 0, 4*7).Format("2006-01-02")] = exit
	}

	result := RunEdgeBacktest(reports, prices, 20, 4)

	if result.SampleSize != 3 {
		t.Fatalf("SampleSize = %d, want 3", result.SampleSize)
	}
	if math.Abs(result.WinRate-66.7) > 0.1 {
		t.Errorf("WinRate = %v, want ≈66.7", result.WinRate)
	}
	if math.Abs(result.AvgReturn-8.33) > 0.01 {
		t.Errorf("AvgReturn = %v, want ≈8.33", result.AvgReturn)
	}
	// Upper median of sorted returns [-5, 10, 20]
	if result.MedianReturn != 10 {
		t.Errorf("MedianReturn = %v, want 10", result.MedianReturn)
	}
	if result.MaxReturn != 20 || result.MinReturn != -5 {
		t.Errorf("range = [%v, %v], want [-5, 20]", result.MinReturn, result.MaxReturn)
	}
	if result.WinAvg != 15 {
		t.Errorf("WinAvg = %v, want 15", result.WinAvg)
	}
	if result.LossAvg != -5 {
		t.Errorf("LossAvg = %v, want -5", result.LossAvg)
	}
}
