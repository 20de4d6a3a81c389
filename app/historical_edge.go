package app

import (
	"math"
	"sort"
	"time"

	"whaleradarr/database"
)

// Exit price search window: the nearest available price up to this many days
// past the exact forward target date is accepted
const exitSearchDays = 14

// EdgeOccurrence is one historical signal trigger with its forward outcome
type EdgeOccurrence struct {
	Date       string  `json:"date"`
	Gap        float64 `json:"gap"`
	Direction  string  `json:"direction"` // long, short
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	ReturnPct  float64 `json:"return_pct"`
	Win        bool    `json:"win"`
}

// EdgeBacktestResult aggregates the forward-return statistics of all
// threshold-exceeding sentiment gap weeks. A zero SampleSize with an empty
// occurrence list is a valid "no signal this period" outcome.
type EdgeBacktestResult struct {
	Threshold     float64          `json:"threshold"`
	ForwardWeeks  int              `json:"forward_weeks"`
	LookbackYears int              `json:"lookback_years"`
	SampleSize    int              `json:"sample_size"`
	WinRate       float64          `json:"win_rate"`
	AvgReturn     float64          `json:"avg_return"`
	MedianReturn  float64          `json:"median_return"`
	MaxReturn     float64          `json:"max_return"`
	MinReturn     float64          `json:"min_return"`
	WinAvg        float64          `json:"win_avg"`
	LossAvg       float64          `json:"loss_avg"`
	Occurrences   []EdgeOccurrence `json:"occurrences"`
}

// EdgeService backtests sentiment gap signals against forward price returns
type EdgeService struct {
	repo *database.CotRepository
	now  func() time.Time
}

// NewEdgeService creates a new historical edge service
func NewEdgeService(repo *database.CotRepository) *EdgeService {
	return &EdgeService{repo: repo, now: time.Now}
}

// SentimentGapNetShare computes the net-share sentiment gap between asset
// managers (whales) and non-reporting traders (retail proxy): each side's net
// position as a share of its gross total, in percentage points. Returns 0
// when either side has no positions at all.
func SentimentGapNetShare(r *database.WeeklyReport) float64 {
	whaleNet := float64(r.AssetMgrNet())
	retailNet := float64(r.NonReportNet())

	whaleTotal := math.Abs(float64(r.AssetMgrLong)) + math.Abs(float64(r.AssetMgrShort))
	retailTotal := math.Abs(float64(r.NonReportLong)) + math.Abs(float64(r.NonReportShort))

	if whaleTotal == 0 || retailTotal == 0 {
		return 0
	}
	return (whaleNet/whaleTotal)*100 - (retailNet/retailTotal)*100
}

// AnalyzeHistoricalEdge runs the backtest for one contract over its stored
// report and weekly price history.
func (s *EdgeService) AnalyzeHistoricalEdge(contractID int64, threshold float64, forwardWeeks, lookbackYears int) (*EdgeBacktestResult, error) {
	cutoff := s.now().UTC().AddDate(-lookbackYears, 0, 0)

	reports, err := s.repo.GetReportsSince(contractID, cutoff)
	if err != nil {
		return nil, err
	}

	prices, err := s.repo.GetWeeklyPricesSince(contractID, cutoff)
	if err != nil {
		return nil, err
	}

	priceByDate := make(map[string]float64, len(prices))
	for i := range prices {
		if prices[i].ClosePrice != nil {
			priceByDate[database.DateOnly(prices[i].ReportDate).Format("2006-01-02")] = *prices[i].ClosePrice
		}
	}

	result := RunEdgeBacktest(reports, priceByDate, threshold, forwardWeeks)
	result.LookbackYears = lookbackYears
	return result, nil
}

// RunEdgeBacktest scans reports for weeks where |sentiment gap| meets the
// threshold, pairs each trigger with the nearest forward price, and
// aggregates win rate and return statistics. Short-direction returns are
// negated so a "win" always means the implied direction was profitable.
// Pure logic over the supplied rows.
func RunEdgeBacktest(reports []database.WeeklyReport, priceByDate map[string]float64, threshold float64, forwardWeeks int) *EdgeBacktestResult {
	result := &EdgeBacktestResult{
		Threshold:    threshold,
		ForwardWeeks: forwardWeeks,
		Occurrences:  []EdgeOccurrence{},
	}

	var signals []EdgeOccurrence
	for i := range reports {
		gap := SentimentGapNetShare(&reports[i])
		if math.Abs(gap) < threshold {
			continue
		}

		entryDate := database.DateOnly(reports[i].ReportDate)
		entryPrice, ok := priceByDate[entryDate.Format("2006-01-02")]
		if !ok {
			continue
		}

		// Nearest forward price: scan ascending day offsets past the target
		targetDate := entryDate.AddDate(0, 0, forwardWeeks*7)
		exitPrice := 0.0
		found := false
		for offset := 0; offset < exitSearchDays; offset++ {
			if p, ok := priceByDate[targetDate.AddDate(0, 0, offset).Format("2006-01-02")]; ok {
				exitPrice = p
				found = true
				break
			}
		}
		if !found {
			continue
		}

		pctReturn := (exitPrice - entryPrice) / entryPrice * 100

		direction := "long"
		if gap < 0 {
			direction = "short"
			pctReturn = -pctReturn
		}

		signals = append(signals, EdgeOccurrence{
			Date:       entryDate.Format("2006-01-02"),
			Gap:        round2(gap),
			Direction:  direction,
			EntryPrice: round2(entryPrice),
			ExitPrice:  round2(exitPrice),
			ReturnPct:  round2(pctReturn),
			Win:        pctReturn > 0,
		})
	}

	if len(signals) == 0 {
		return result
	}

	returns := make([]float64, len(signals))
	winSum, lossSum := 0.0, 0.0
	winCount, lossCount := 0, 0
	sum := 0.0
	for i, sig := range signals {
		returns[i] = sig.ReturnPct
		sum += sig.ReturnPct
		if sig.Win {
			winSum += sig.ReturnPct
			winCount++
		} else {
			lossSum += sig.ReturnPct
			lossCount++
		}
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	result.SampleSize = len(signals)
	result.WinRate = round1(float64(winCount) / float64(len(signals)) * 100)
	result.AvgReturn = round2(sum / float64(len(returns)))
	result.MedianReturn = round2(sorted[len(sorted)/2])
	result.MaxReturn = round2(sorted[len(sorted)-1])
	result.MinReturn = round2(sorted[0])
	if winCount > 0 {
		result.WinAvg = round2(winSum / float64(winCount))
	}
	if lossCount > 0 {
		result.LossAvg = round2(lossSum / float64(lossCount))
	}

	// Most recent 10 occurrences verbatim
	tail := signals
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
	}
	result.Occurrences = tail

	return result
}
