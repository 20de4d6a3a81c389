package app

import (
	"log"
	"time"

	"whaleradarr/database"
)

// AlertSink receives every freshly generated alert together with its contract
// and the week-over-week leveraged fund net flow.
type AlertSink func(alert *database.WhaleAlert, contract *database.Contract, netChange int64)

// AnalysisPipeline periodically re-runs the full analysis chain for every
// active contract: statistics refresh first, then alert generation, so each
// alert is always classified against the freshest baselines.
type AnalysisPipeline struct {
	repo     *database.CotRepository
	analyzer *AnalyzerService
	interval time.Duration
	lookback int
	sinks    []AlertSink
	done     chan bool
}

// NewAnalysisPipeline creates a new analysis pipeline
func NewAnalysisPipeline(repo *database.CotRepository, analyzer *AnalyzerService, interval time.Duration, lookbackWindow int) *AnalysisPipeline {
	return &AnalysisPipeline{
		repo:     repo,
		analyzer: analyzer,
		interval: interval,
		lookback: lookbackWindow,
		done:     make(chan bool),
	}
}

// AddSink registers a consumer for freshly generated alerts. Must be called
// before Start.
func (p *AnalysisPipeline) AddSink(sink AlertSink) {
	p.sinks = append(p.sinks, sink)
}

// Start begins the analysis loop
func (p *AnalysisPipeline) Start() {
	log.Println("📊 Analysis pipeline started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial run
	p.RunAll()

	for {
		select {
		case <-ticker.C:
			p.RunAll()
		case <-p.done:
			log.Println("📊 Analysis pipeline stopped")
			return
		}
	}
}

// Stop stops the analysis loop
func (p *AnalysisPipeline) Stop() {
	p.done <- true
}

// RunAll processes every active contract
func (p *AnalysisPipeline) RunAll() {
	log.Println("📊 Running positioning analysis for all active contracts...")

	contracts, err := p.repo.GetActiveContracts()
	if err != nil {
		log.Printf("⚠️  Failed to load active contracts: %v", err)
		return
	}

	generated := 0
	for i := range contracts {
		alert, err := p.RunContract(&contracts[i])
		if err != nil {
			log.Printf("⚠️  Analysis failed for %s: %v", contracts[i].CFTCContractCode, err)
			continue
		}
		if alert != nil {
			generated++
		}
	}

	log.Printf("✅ Analysis complete: %d contracts processed, %d alerts generated", len(contracts), generated)
}

// RunContract refreshes statistics and regenerates the alert for one contract.
// Statistics are always updated before the alert so classification never runs
// against stale baselines. Returns the generated alert, nil when the contract
// has no data to classify yet.
func (p *AnalysisPipeline) RunContract(contract *database.Contract) (*database.WhaleAlert, error) {
	if err := p.analyzer.UpdateContractStatistics(contract.ID, p.lookback); err != nil {
		return nil, err
	}

	alert, err := p.analyzer.GenerateAlert(contract.ID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, nil
	}

	netChange := p.weeklyNetChange(contract.ID)
	for _, sink := range p.sinks {
		sink(alert, contract, netChange)
	}

	return alert, nil
}

// weeklyNetChange computes the leveraged fund net flow between the two most
// recent report weeks. Zero when fewer than two weeks exist.
func (p *AnalysisPipeline) weeklyNetChange(contractID int64) int64 {
	reports, err := p.repo.GetRecentReports(contractID, 2)
	if err != nil || len(reports) < 2 {
		return 0
	}
	return reports[0].LevNet() - reports[1].LevNet()
}
