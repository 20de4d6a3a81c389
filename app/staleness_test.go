package app

import (
	"testing"
	"time"

	"whaleradarr/marketdata"
)

// flatBars builds n identical daily bars with no range and constant volume,
// so every displacement factor collapses to its neutral value.
func flatBars(n int, price, volume float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, n)
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = marketdata.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: volume,
		}
	}
	return bars
}

func TestComputeStalenessQuietMarket(t *testing.T) {
	bars := flatBars(30, 100, 1000)

	result := ComputeStaleness(bars, 100, 0, 5.0)

	if result.Failed() {
		t.Fatalf("unexpected error result: %s", result.Err)
	}
	if result.ReliabilityPct != 100 {
		t.Errorf("ReliabilityPct = %v, want 100 for a flat market on report day", result.ReliabilityPct)
	}
	if result.Label != "High Reliability" {
		t.Errorf("Label = %q, want High Reliability", result.Label)
	}
}

func TestComputeStalenessNeutralFallbacks(t *testing.T) {
	// Zero ATR, zero volume stddev: factors must fall back instead of
	// dividing by zero
	bars := flatBars(30, 100, 1000)

	result := ComputeStaleness(bars, 150, 0, 5.0)

	b := result.Breakdown
	if b.RawPriceDisp != 0 {
		t.Errorf("RawPriceDisp = %v, want 0 when ATR is zero", b.RawPriceDisp)
	}
	if b.RawVolSpike != 1.0 {
		t.Errorf("RawVolSpike = %v, want neutral 1.0 when long ATR is zero", b.RawVolSpike)
	}
	if b.RawVolumeZ != 0 {
		t.Errorf("RawVolumeZ = %v, want 0 when volume stddev is zero", b.RawVolumeZ)
	}
}

func TestComputeStalenessTimeDecay(t *testing.T) {
	bars := flatBars(30, 100, 1000)

	// At or past the full decay horizon only the time factor contributes:
	// staleness = 0.15, reliability = 85
	result := ComputeStaleness(bars, 100, 5, 5.0)
	if result.ReliabilityPct != 85 {
		t.Errorf("ReliabilityPct = %v, want 85 at the decay horizon", result.ReliabilityPct)
	}

	// Time decay saturates at 1.0
	far := ComputeStaleness(bars, 100, 50, 5.0)
	if far.ReliabilityPct != 85 {
		t.Errorf("ReliabilityPct = %v, want 85 far past the horizon", far.ReliabilityPct)
	}
	if far.Breakdown.TimeDecay != 1.0 {
		t.Errorf("TimeDecay = %v, want saturated 1.0", far.Breakdown.TimeDecay)
	}
}

func TestComputeStalenessPriceDisplacement(t *testing.T) {
	// Bars with a constant 2-point daily range: ATR14 = 2
	bars := make([]marketdata.Bar, 30)
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = marketdata.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100,
			Volume: 1000,
		}
	}

	// Close drifted 4 points = 2 ATR from the reference: displacement saturates
	result := ComputeStaleness(bars, 104, 0, 5.0)
	if result.Breakdown.PriceDisplacement != 1.0 {
		t.Errorf("PriceDisplacement = %v, want saturated 1.0 at 2 ATR", result.Breakdown.PriceDisplacement)
	}
	// Only the price factor is active: staleness = 0.35, reliability = 65
	if result.ReliabilityPct != 65 {
		t.Errorf("ReliabilityPct = %v, want 65", result.ReliabilityPct)
	}
	if result.Label != "Partial Reliability" {
		t.Errorf("Label = %q, want Partial Reliability", result.Label)
	}
}

func TestComputeStalenessBounds(t *testing.T) {
	bars := make([]marketdata.Bar, 30)
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = marketdata.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   100,
			High:   110,
			Low:    90,
			Close:  100,
			Volume: float64(1000 + i*10),
		}
	}
	// Spike the last bar hard on every axis
	bars[len(bars)-1].Close = 500
	bars[len(bars)-1].High = 510
	bars[len(bars)-1].Low = 90
	bars[len(bars)-1].Volume = 1_000_000

	result := ComputeStaleness(bars, 100, 30, 5.0)
	if result.ReliabilityPct < 0 || result.ReliabilityPct > 100 {
		t.Errorf("ReliabilityPct = %v, must stay within [0, 100]", result.ReliabilityPct)
	}
}

func TestClassifyReliability(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{95, "High Reliability"},
		{80, "High Reliability"},
		{79.9, "Partial Reliability"},
		{55, "Partial Reliability"},
		{54.9, "Caution - Potentially Stale"},
		{30, "Caution - Potentially Stale"},
		{29.9, "Very Low Reliability"},
		{0, "Very Low Reliability"},
	}

	for _, tt := range tests {
		if got := classifyReliability(tt.score); got != tt.want {
			t.Errorf("classifyReliability(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestTrueRangesGapHandling(t *testing.T) {
	bars := []marketdata.Bar{
		{High: 105, Low: 100, Close: 102},
		// Gap up: true range must span back to the previous close
		{High: 112, Low: 110, Close: 111},
	}

	tr := trueRanges(bars)
	if tr[0] != 5 {
		t.Errorf("tr[0] = %v, want high-low 5 for the first bar", tr[0])
	}
	if tr[1] != 10 {
		t.Errorf("tr[1] = %v, want 10 (high vs previous close)", tr[1])
	}
}
