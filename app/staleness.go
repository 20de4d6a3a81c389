package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"whaleradarr/database"
	"whaleradarr/marketdata"
)

// Staleness scoring constants
const (
	// Staleness composite weights
	weightPriceDisplacement = 0.35
	weightVolatilitySpike   = 0.25
	weightVolumeAnomaly     = 0.25
	weightTimeDecay         = 0.15

	// MinDailyBars is the minimum daily history needed for stable indicators
	MinDailyBars = 14

	// dailyHistoryDays is the calendar window requested from the chart API
	dailyHistoryDays = 90
)

// MarketDataProvider supplies recent daily OHLCV history for a ticker
type MarketDataProvider interface {
	GetDailyHistory(ctx context.Context, ticker string, days int) ([]marketdata.Bar, error)
}

// StalenessResult is the tagged outcome of a staleness calculation. When Err
// is non-empty the score could not be computed and callers must fall back to
// a neutral confidence instead of failing their batch.
type StalenessResult struct {
	ReliabilityPct float64             `json:"reliability_pct"`
	Label          string              `json:"label"`
	Breakdown      *StalenessBreakdown `json:"breakdown,omitempty"`
	Err            string              `json:"error,omitempty"`
}

// Failed reports whether the calculation produced an error result
func (r *StalenessResult) Failed() bool {
	return r.Err != ""
}

// StalenessBreakdown exposes the normalized displacement factors plus raw
// metrics for debugging and frontend display
type StalenessBreakdown struct {
	PriceDisplacement float64 `json:"price_displacement"`
	VolatilitySpike   float64 `json:"volatility_spike"`
	VolumeAnomaly     float64 `json:"volume_anomaly"`
	TimeDecay         float64 `json:"time_decay"`

	RawPriceDisp   float64 `json:"raw_price_disp"`
	RawVolSpike    float64 `json:"raw_vol_spike"`
	RawVolumeZ     float64 `json:"raw_volume_z"`
	DaysSince      int     `json:"days_since"`
	CotDate        string  `json:"cot_date"`
	CurrentPrice   float64 `json:"current_price"`
	ReferencePrice float64 `json:"reference_price"`
}

// StalenessService scores how much real-time market action has invalidated
// the latest COT report for a contract.
type StalenessService struct {
	repo      *database.CotRepository
	market    MarketDataProvider
	decayDays float64
	minBars   int
	now       func() time.Time
}

// NewStalenessService creates a new staleness service
func NewStalenessService(repo *database.CotRepository, market MarketDataProvider, decayDays float64, minBars int) *StalenessService {
	if decayDays <= 0 {
		decayDays = 5.0
	}
	if minBars <= 0 {
		minBars = MinDailyBars
	}
	return &StalenessService{
		repo:      repo,
		market:    market,
		decayDays: decayDays,
		minBars:   minBars,
		now:       time.Now,
	}
}

func errResult(format string, args ...interface{}) *StalenessResult {
	return &StalenessResult{Err: fmt.Sprintf(format, args...)}
}

// CalculateScore computes the reliability score for a contract's latest
// report. Missing inputs (contract, ticker, report, market data, reference
// price) produce an error result, never a Go error — external data failures
// must not abort a multi-contract batch.
func (s *StalenessService) CalculateScore(ctx context.Context, contractID int64) *StalenessResult {
	contract, err := s.repo.GetContract(contractID)
	if err != nil || contract == nil || contract.YahooTicker == nil || *contract.YahooTicker == "" {
		return errResult("contract not found or missing market data ticker")
	}

	lastReport, err := s.repo.GetLatestReport(contractID)
	if err != nil || lastReport == nil {
		return errResult("no COT report found")
	}

	// Reference price: weekly close on the report date when recorded
	var refPrice *float64
	if weekly, err := s.repo.GetWeeklyPrice(contractID, lastReport.ReportDate); err == nil && weekly != nil {
		refPrice = weekly.ClosePrice
	}

	bars, err := s.market.GetDailyHistory(ctx, *contract.YahooTicker, dailyHistoryDays)
	if err != nil {
		return errResult("market data error: %v", err)
	}
	if len(bars) < s.minBars {
		return errResult("insufficient market data (%d bars)", len(bars))
	}

	// Fall back to an exact date match in the fetched history
	if refPrice == nil {
		reportDate := database.DateOnly(lastReport.ReportDate)
		for i := range bars {
			if database.DateOnly(bars[i].Date).Equal(reportDate) {
				refPrice = &bars[i].Close
				break
			}
		}
	}
	if refPrice == nil {
		return errResult("reference price not found")
	}

	daysSince := int(s.now().UTC().Sub(database.DateOnly(lastReport.ReportDate)).Hours() / 24)
	result := ComputeStaleness(bars, *refPrice, daysSince, s.decayDays)
	result.Breakdown.CotDate = database.DateOnly(lastReport.ReportDate).Format("2006-01-02")
	return result
}

// ComputeStaleness derives the reliability score from daily bars, the COT
// reference price and the elapsed days. Pure logic; degenerate inputs (zero
// ATR, zero volume stddev) fall back to neutral factor values rather than
// dividing by zero.
func ComputeStaleness(bars []marketdata.Bar, refPrice float64, daysSince int, decayDays float64) *StalenessResult {
	current := bars[len(bars)-1]

	tr := trueRanges(bars)
	atr14 := trailingMean(tr, 14)
	atr5 := trailingMean(tr, 5)
	atr20 := trailingMean(tr, 20)

	// A. Price displacement in ATR units
	priceDisp := 0.0
	if atr14 > 0 {
		priceDisp = math.Abs(current.Close-refPrice) / atr14
	}

	// B. Volatility spike: short ATR vs long ATR ratio, neutral when flat
	volSpike := 1.0
	if atr20 > 0 {
		volSpike = atr5 / atr20
	}

	// C. Volume anomaly: 20-day z-score of today's volume
	volumeZ := 0.0
	volMean, volStd := trailingMeanStd(volumes(bars), 20)
	if volStd > 0 {
		volumeZ = (current.Volume - volMean) / volStd
	}

	// Normalization: each factor saturates into [0, 1]
	dPrice := clamp01(priceDisp / 2.0)
	dVol := clamp01(math.Max(volSpike-1.0, 0))
	dVolume := clamp01(math.Max(volumeZ, 0) / 3.0)
	dTime := clamp01(float64(daysSince) / decayDays)

	staleness := weightPriceDisplacement*dPrice +
		weightVolatilitySpike*dVol +
		weightVolumeAnomaly*dVolume +
		weightTimeDecay*dTime

	reliability := math.Max(0, math.Min(100, (1.0-staleness)*100.0))

	return &StalenessResult{
		ReliabilityPct: round1(reliability),
		Label:          classifyReliability(reliability),
		Breakdown: &StalenessBreakdown{
			PriceDisplacement: round2(dPrice),
			VolatilitySpike:   round2(dVol),
			VolumeAnomaly:     round2(dVolume),
			TimeDecay:         round2(dTime),
			RawPriceDisp:      round2(priceDisp),
			RawVolSpike:       round2(volSpike),
			RawVolumeZ:        round2(volumeZ),
			DaysSince:         daysSince,
			CurrentPrice:      current.Close,
			ReferencePrice:    refPrice,
		},
	}
}

// classifyReliability maps the score to its reliability band
func classifyReliability(r float64) string {
	switch {
	case r >= 80:
		return "High Reliability"
	case r >= 55:
		return "Partial Reliability"
	case r >= 30:
		return "Caution - Potentially Stale"
	default:
		return "Very Low Reliability"
	}
}

// trueRanges computes the daily true range series: max of high-low,
// |high-prevClose|, |low-prevClose|. The first bar has no previous close and
// uses high-low.
func trueRanges(bars []marketdata.Bar) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		hl := b.High - b.Low
		if i == 0 {
			tr[i] = hl
			continue
		}
		prevClose := bars[i-1].Close
		tr[i] = math.Max(hl, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}
	return tr
}

func volumes(bars []marketdata.Bar) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return vols
}

// trailingMean averages the last n values, or all of them when fewer exist
func trailingMean(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) > n {
		values = values[len(values)-n:]
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// trailingMeanStd returns the mean and sample standard deviation of the last
// n values
func trailingMeanStd(values []float64, n int) (float64, float64) {
	if len(values) > n {
		values = values[len(values)-n:]
	}
	if len(values) < 2 {
		return trailingMean(values, n), 0
	}
	mean := trailingMean(values, n)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(len(values)-1))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
