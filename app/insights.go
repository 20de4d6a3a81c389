package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"whaleradarr/llm"
)

// RadarInsight is the generated market narrative attached to radar output
type RadarInsight struct {
	Regime            string   `json:"regime"`
	Confidence        float64  `json:"confidence"`
	WhatHappening     string   `json:"what_happening"`
	HistoricalOutcome string   `json:"historical_outcome"`
	Catalysts         []string `json:"catalysts"`
	Action            string   `json:"action"`
}

// InsightGenerator produces rule-based radar insights, optionally narrated by
// an LLM when one is configured.
type InsightGenerator struct {
	llmClient *llm.Client
}

// NewInsightGenerator creates a new insight generator. The LLM client may be
// nil, in which case only the rule-based narrative is produced.
func NewInsightGenerator(llmClient *llm.Client) *InsightGenerator {
	return &InsightGenerator{llmClient: llmClient}
}

// riskOnSectors are sectors whose dominance reads as risk appetite
var riskOnSectors = map[string]bool{
	"index":  true,
	"equity": true,
	"crypto": true,
}

// Generate builds the insight from the current rankings and sector averages
func (g *InsightGenerator) Generate(ctx context.Context, top *RadarEntry, rankings []RadarEntry, sectors map[string]float64) *RadarInsight {
	insight := &RadarInsight{
		Regime:     "Neutral / Mixed",
		Confidence: 50,
		Action:     "Wait and see, no sector shows dominant institutional conviction.",
	}

	topSector, topScore := dominantSector(sectors)
	if topSector != "" && topScore > 70 {
		if riskOnSectors[strings.ToLower(topSector)] {
			insight.Regime = fmt.Sprintf("Risk-On %s Rotation", topSector)
		} else {
			insight.Regime = fmt.Sprintf("Defensive %s Rotation", topSector)
		}
		insight.Confidence = math.Min(topScore+15, 95)
		insight.Action = fmt.Sprintf(
			"Consider overlaying exposure to top-ranked %s contracts. Watch for conviction dropping below 65 as an early exit signal.",
			topSector)
	}

	if top != nil {
		insight.WhatHappening = fmt.Sprintf(
			"%s leads the radar at %.1f (%s, %s). Asset managers hold a %.1fpp sentiment gap against retail with a %s contract net flow week-over-week.",
			top.Name, top.Score, top.Grade, top.Direction, top.SentimentGap, top.CapitalFlowFmt)
		insight.HistoricalOutcome = fmt.Sprintf(
			"Sentiment gaps of this size have historically carried an estimated %.0f%% win rate over the following month.",
			top.WinRate)
		insight.Catalysts = []string{
			fmt.Sprintf("Next COT release (%s)", top.NextReportDate),
			"Weekly statistics refresh on ingestion of the new report",
		}
	}

	// Optional LLM narration on top of the rule-based text
	if g.llmClient != nil && top != nil {
		if narrated, err := g.narrate(ctx, top, rankings); err == nil {
			insight.WhatHappening = narrated
		} else {
			log.Printf("⚠️  LLM insight narration failed, keeping rule-based text: %v", err)
		}
	}

	return insight
}

// narrate asks the LLM for a short data-grounded narrative of the rankings
func (g *InsightGenerator) narrate(ctx context.Context, top *RadarEntry, rankings []RadarEntry) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("Summarize the current institutional positioning picture in 2-3 sentences.\n")
	sb.WriteString("Top ranked contracts (score, direction, sentiment gap pp, net flow):\n")
	limit := len(rankings)
	if limit > 5 {
		limit = 5
	}
	for _, r := range rankings[:limit] {
		fmt.Fprintf(&sb, "- %s (%s): %.1f %s gap=%.1f flow=%s\n",
			r.Name, r.Category, r.Score, r.Direction, r.SentimentGap, r.CapitalFlowFmt)
	}

	return g.llmClient.Analyze(ctx, sb.String())
}

// dominantSector returns the highest-averaging sector and its score
func dominantSector(sectors map[string]float64) (string, float64) {
	best := ""
	bestScore := math.Inf(-1)
	for sector, score := range sectors {
		if score > bestScore {
			best = sector
			bestScore = score
		}
	}
	if best == "" {
		return "", 0
	}
	return best, bestScore
}
