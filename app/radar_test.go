package app

import (
	"testing"
	"time"

	"whaleradarr/database"
)

func radarReport(date time.Time, amLong, amShort, nrLong, nrShort, oi int64) database.WeeklyReport {
	return database.WeeklyReport{
		ContractID:     1,
		ReportDate:     date,
		AssetMgrLong:   amLong,
		AssetMgrShort:  amShort,
		NonReportLong:  nrLong,
		NonReportShort: nrShort,
		OpenInterest:   oi,
	}
}

func TestCalculateConvictionDirection(t *testing.T) {
	date := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		current database.WeeklyReport
		want    string
	}{
		{
			// Institutions heavily long, retail heavily short
			"bullish divergence",
			radarReport(date, 1000, 0, 0, 1000, 10000),
			"BULLISH",
		},
		{
			// Institutions heavily short, retail heavily long
			"bearish divergence",
			radarReport(date, 0, 1000, 1000, 0, 10000),
			"BEARISH",
		},
		{
			// Identical long shares on both sides: gap under the 5pt band
			"aligned positioning",
			radarReport(date, 500, 500, 500, 500, 10000),
			"NEUTRAL",
		},
	}

	prev := radarReport(date.AddDate(0, 0, -7), 500, 500, 500, 500, 10000)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := CalculateConviction(&tt.current, &prev, 1.0)
			if data.Direction != tt.want {
				t.Errorf("Direction = %q, want %q (gap=%v)", data.Direction, tt.want, data.SentimentGap)
			}
		})
	}
}

func TestCalculateConvictionScoreBounds(t *testing.T) {
	date := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	// Push every sub-score to its ceiling
	current := radarReport(date, 5000, 0, 0, 5000, 10000)
	prev := radarReport(date.AddDate(0, 0, -7), 10, 0, 0, 10, 10000)

	data := CalculateConviction(&current, &prev, 1.0)
	if data.Score < 0 || data.Score > 100 {
		t.Errorf("Score = %v, must stay within [0, 100]", data.Score)
	}

	// With full confidence and saturated factors the composite approaches 100
	if data.Score < 90 {
		t.Errorf("Score = %v, want near-maximal for fully saturated inputs", data.Score)
	}
}

func TestCalculateConvictionConfidenceSquared(t *testing.T) {
	date := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	current := radarReport(date, 500, 500, 500, 500, 10000)
	prev := radarReport(date.AddDate(0, 0, -7), 500, 500, 500, 500, 10000)

	// Signal quality is confidence squared, so half confidence gives 25
	data := CalculateConviction(&current, &prev, 0.5)
	if data.Breakdown.SignalQuality != 25 {
		t.Errorf("SignalQuality = %v, want 25 for confidence 0.5", data.Breakdown.SignalQuality)
	}
	if data.Confidence != 50 {
		t.Errorf("Confidence = %v, want 50", data.Confidence)
	}
}

func TestCalculateConvictionStationaryWeeks(t *testing.T) {
	date := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	current := radarReport(date, 800, 200, 300, 700, 10000)
	prev := radarReport(date.AddDate(0, 0, -7), 800, 200, 300, 700, 10000)

	// Identical consecutive weeks carry zero capital momentum, and two
	// evaluations of the same pair must agree exactly (zero momentum)
	a := CalculateConviction(&current, &prev, 1.0)
	b := CalculateConviction(&current, &prev, 1.0)

	if a.AMNetChange != 0 {
		t.Errorf("AMNetChange = %v, want 0 for unchanged positioning", a.AMNetChange)
	}
	if a.Breakdown.CapitalMomentum != 0 {
		t.Errorf("CapitalMomentum = %v, want 0", a.Breakdown.CapitalMomentum)
	}
	if a.Score != b.Score {
		t.Errorf("repeated evaluation diverged: %v vs %v", a.Score, b.Score)
	}
}

func TestPadReportWindow(t *testing.T) {
	date := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	one := radarReport(date, 100, 0, 0, 100, 1000)

	window := padReportWindow([]database.WeeklyReport{one}, 3)
	if len(window) != 3 {
		t.Fatalf("window length = %d, want 3", len(window))
	}
	for i := range window {
		if !window[i].ReportDate.Equal(one.ReportDate) {
			t.Errorf("window[%d] not padded from the only available report", i)
		}
	}

	// A padded window makes current and prior scores identical: momentum 0
	conf := 1.0
	current := CalculateConviction(&window[0], &window[1], conf)
	prior := CalculateConviction(&window[1], &window[2], conf)
	if current.Score != prior.Score {
		t.Errorf("padded history should yield zero momentum, got %v vs %v", current.Score, prior.Score)
	}
}

func TestConvictionGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{92, "EXTREME CONVICTION"},
		{80, "EXTREME CONVICTION"},
		{79.9, "HIGH CONVICTION"},
		{65, "HIGH CONVICTION"},
		{50, "MODERATE CONVICTION"},
		{35, "WEAK CONVICTION"},
		{10, "NO CONVICTION"},
	}

	for _, tt := range tests {
		if got := ConvictionGrade(tt.score); got != tt.want {
			t.Errorf("ConvictionGrade(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
