package app

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"whaleradarr/database"
	"whaleradarr/helpers"
)

// Conviction score weights. The five sub-scores are clamped to [0,1] before
// weighting; the composite is scaled to 0-100.
const (
	weightSignalQuality       = 0.25
	weightSentimentDivergence = 0.20
	weightCapitalMomentum     = 0.20
	weightHistoricalEdge      = 0.20
	weightConcentration       = 0.15

	// neutralConfidence is the fallback when staleness scoring is unavailable
	neutralConfidence = 0.5

	// convictionWindow is the number of recent reports fed into the ranking:
	// current, previous (for momentum inputs) and one more to re-derive the
	// prior week's score
	convictionWindow = 3
)

// ConvictionBreakdown exposes the weighted sub-scores on a 0-100 scale
type ConvictionBreakdown struct {
	SignalQuality       float64 `json:"signal_quality"`
	SentimentDivergence float64 `json:"sentiment_divergence"`
	CapitalMomentum     float64 `json:"capital_momentum"`
	HistoricalEdge      float64 `json:"historical_edge"`
	Concentration       float64 `json:"concentration"`
}

// ConvictionData is one conviction evaluation of a report pair
type ConvictionData struct {
	Score        float64             `json:"score"`
	Direction    string              `json:"direction"` // BULLISH, BEARISH, NEUTRAL
	Confidence   float64             `json:"confidence"`
	SentimentGap float64             `json:"sentiment_gap"`
	AMNetChange  int64               `json:"am_net_change"`
	WinRate      float64             `json:"win_rate"`
	Breakdown    ConvictionBreakdown `json:"breakdown"`
}

// RadarEntry is one ranked contract in the radar output
type RadarEntry struct {
	ID             int64               `json:"id"`
	Ticker         string              `json:"ticker"`
	Name           string              `json:"name"`
	Category       string              `json:"category"`
	Score          float64             `json:"score"`
	Grade          string              `json:"grade"`
	Direction      string              `json:"direction"`
	Confidence     float64             `json:"confidence"`
	SentimentGap   float64             `json:"sentiment_gap"`
	CapitalFlowFmt string              `json:"capital_flow_fmt"`
	NetChange      int64               `json:"net_change"`
	WinRate        float64             `json:"win_rate"`
	Momentum1W     float64             `json:"momentum_1w"`
	LastUpdated    string              `json:"last_updated"`
	NextReportDate string              `json:"next_report_date"`
	Breakdown      ConvictionBreakdown `json:"breakdown"`
}

// RadarResult is the full radar ranking response
type RadarResult struct {
	TopPlay       *RadarEntry        `json:"top_play"`
	Rankings      []RadarEntry       `json:"rankings"`
	SectorSummary map[string]float64 `json:"sector_summary"`
	Insights      *RadarInsight      `json:"insights"`
}

// RadarService ranks all active contracts by institutional conviction score
type RadarService struct {
	repo      *database.CotRepository
	staleness *StalenessService
	insights  *InsightGenerator
}

// NewRadarService creates a new radar service
func NewRadarService(repo *database.CotRepository, staleness *StalenessService, insights *InsightGenerator) *RadarService {
	return &RadarService{
		repo:      repo,
		staleness: staleness,
		insights:  insights,
	}
}

// GetRadarRankings evaluates every active contract and returns the ranked
// list, sector averages and a generated market insight. Contracts without
// reports are skipped; staleness failures degrade to neutral confidence so a
// single bad ticker never aborts the ranking.
func (s *RadarService) GetRadarRankings(ctx context.Context) (*RadarResult, error) {
	contracts, err := s.repo.GetActiveContracts()
	if err != nil {
		return nil, err
	}

	rankings := make([]RadarEntry, 0, len(contracts))
	sectorScores := make(map[string][]float64)

	for _, contract := range contracts {
		recent, err := s.repo.GetRecentReports(contract.ID, convictionWindow)
		if err != nil {
			log.Printf("⚠️  Failed to fetch reports for %s: %v", contract.CFTCContractCode, err)
			continue
		}
		if len(recent) == 0 {
			continue
		}

		window := padReportWindow(recent, convictionWindow)

		confidence := s.currentConfidence(ctx, contract.ID)
		current := CalculateConviction(&window[0], &window[1], confidence)

		// Prior-week score for momentum. Historical weeks are assumed to have
		// been fresh when they were current, so confidence is fixed at 1.0.
		prev := CalculateConviction(&window[1], &window[2], 1.0)
		momentum := round1(current.Score - prev.Score)

		reportDate := database.DateOnly(window[0].ReportDate)
		entry := RadarEntry{
			ID:             contract.ID,
			Ticker:         contract.CFTCContractCode,
			Name:           contract.ContractName,
			Category:       contract.MarketCategory,
			Score:          current.Score,
			Grade:          ConvictionGrade(current.Score),
			Direction:      current.Direction,
			Confidence:     current.Confidence,
			SentimentGap:   current.SentimentGap,
			CapitalFlowFmt: helpers.FormatCapitalFlow(current.AMNetChange),
			NetChange:      current.AMNetChange,
			WinRate:        current.WinRate,
			Momentum1W:     momentum,
			LastUpdated:    time.Now().UTC().Format(time.RFC3339),
			NextReportDate: reportDate.AddDate(0, 0, 7).Format("2006-01-02"),
			Breakdown:      current.Breakdown,
		}

		rankings = append(rankings, entry)
		sectorScores[contract.MarketCategory] = append(sectorScores[contract.MarketCategory], current.Score)
	}

	// Descending by score; ties keep natural iteration order
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Score > rankings[j].Score
	})

	sectorSummary := make(map[string]float64, len(sectorScores))
	for sector, scores := range sectorScores {
		sum := 0.0
		for _, v := range scores {
			sum += v
		}
		sectorSummary[sector] = round1(sum / float64(len(scores)))
	}

	result := &RadarResult{
		Rankings:      rankings,
		SectorSummary: sectorSummary,
	}
	if len(rankings) > 0 {
		result.TopPlay = &rankings[0]
	}
	if s.insights != nil {
		result.Insights = s.insights.Generate(ctx, result.TopPlay, rankings, sectorSummary)
	}

	return result, nil
}

// currentConfidence resolves the staleness-based confidence for the live
// evaluation, falling back to neutral when scoring is unavailable
func (s *RadarService) currentConfidence(ctx context.Context, contractID int64) float64 {
	if s.staleness == nil {
		return neutralConfidence
	}
	res := s.staleness.CalculateScore(ctx, contractID)
	if res.Failed() {
		return neutralConfidence
	}
	return res.ReliabilityPct / 100.0
}

// padReportWindow returns exactly n reports, newest first, repeating the
// earliest available row when history is shorter than the window. Momentum
// then degrades to zero gracefully instead of failing.
func padReportWindow(reports []database.WeeklyReport, n int) []database.WeeklyReport {
	window := make([]database.WeeklyReport, n)
	for i := 0; i < n; i++ {
		if i < len(reports) {
			window[i] = reports[i]
		} else {
			window[i] = reports[len(reports)-1]
		}
	}
	return window
}

// CalculateConviction computes the composite conviction score for a report
// against its predecessor. The confidence argument is the staleness
// reliability in [0,1]; pass 1.0 when evaluating a historical week.
func CalculateConviction(report, prevReport *database.WeeklyReport, confidence float64) *ConvictionData {
	// Sentiment gap: institutional vs retail long-share, percentage points.
	// +1 in each denominator guards empty categories.
	amTotal := float64(report.AssetMgrLong+report.AssetMgrShort) + 1
	retailTotal := float64(report.NonReportLong+report.NonReportShort) + 1

	amLongPct := float64(report.AssetMgrLong) / amTotal * 100
	retailLongPct := float64(report.NonReportLong) / retailTotal * 100
	sentimentGap := amLongPct - retailLongPct

	// Capital flow momentum: net change relative to prior magnitude
	amNet := report.AssetMgrNet()
	netChange := amNet - prevReport.AssetMgrNet()
	positionChangePct := float64(netChange) / (math.Abs(float64(prevReport.AssetMgrNet())) + 1)

	// Historical edge heuristic: win-rate proxy scaling with gap size. The
	// real backtest lives in AnalyzeHistoricalEdge and is consulted
	// separately, not wired into this score.
	estWinRate := 0.50 + (math.Min(math.Abs(sentimentGap), 60)/60)*0.25

	// Concentration: institutional gross exposure share of open interest
	exposureRatio := float64(report.AssetMgrLong+report.AssetMgrShort) / (float64(report.OpenInterest) + 1)

	signalQuality := confidence * confidence
	sentimentDivergence := clamp01(math.Abs(sentimentGap) / 40.0)
	capitalMomentum := clamp01(math.Abs(positionChangePct) / 0.20)
	historicalEdge := clamp01((estWinRate - 0.50) / 0.20)
	concentration := clamp01(exposureRatio / 0.15)

	conviction := weightSignalQuality*signalQuality +
		weightSentimentDivergence*sentimentDivergence +
		weightCapitalMomentum*capitalMomentum +
		weightHistoricalEdge*historicalEdge +
		weightConcentration*concentration

	direction := "BULLISH"
	if sentimentGap < 0 {
		direction = "BEARISH"
	}
	if math.Abs(sentimentGap) < 5 {
		direction = "NEUTRAL"
	}

	return &ConvictionData{
		Score:        round1(conviction * 100),
		Direction:    direction,
		Confidence:   math.Round(confidence * 100),
		SentimentGap: round1(sentimentGap),
		AMNetChange:  netChange,
		WinRate:      math.Round(estWinRate * 100),
		Breakdown: ConvictionBreakdown{
			SignalQuality:       round1(signalQuality * 100),
			SentimentDivergence: round1(sentimentDivergence * 100),
			CapitalMomentum:     round1(capitalMomentum * 100),
			HistoricalEdge:      round1(historicalEdge * 100),
			Concentration:       round1(concentration * 100),
		},
	}
}

// ConvictionGrade maps a composite score to its conviction band
func ConvictionGrade(score float64) string {
	switch {
	case score >= 80:
		return "EXTREME CONVICTION"
	case score >= 65:
		return "HIGH CONVICTION"
	case score >= 50:
		return "MODERATE CONVICTION"
	case score >= 35:
		return "WEAK CONVICTION"
	default:
		return "NO CONVICTION"
	}
}
