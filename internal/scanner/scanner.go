package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"drummond-geometry/internal/confluence"
	"drummond-geometry/internal/logging"
)

// Scanner analyzes a watchlist of symbols on a cron schedule
type Scanner struct {
	analyzer   Analyzer
	config     ScannerConfig
	cron       *cron.Cron
	logger     *logging.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	lastResult *ScanResult
}

// NewScanner creates a new scanner instance
func NewScanner(analyzer Analyzer, config ScannerConfig) *Scanner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.Schedule == "" {
		config.Schedule = "@every 5m"
	}
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scanner{
		analyzer: analyzer,
		config:   config,
		// overlapping cycles are skipped, not queued
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logging.WithComponent("scanner"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the scan schedule and runs a first scan immediately
func (sc *Scanner) Start() error {
	if !sc.config.Enabled {
		sc.logger.Info("Scanner is disabled")
		return nil
	}
	if _, err := sc.cron.AddFunc(sc.config.Schedule, sc.runScheduled); err != nil {
		return fmt.Errorf("register scan schedule %q: %w", sc.config.Schedule, err)
	}

	sc.cron.Start()
	sc.wg.Add(1)
	go func() {
		defer sc.wg.Done()
		sc.Scan(sc.ctx)
	}()

	sc.logger.Info("Scanner started", "schedule", sc.config.Schedule, "symbols", len(sc.config.Symbols))
	return nil
}

func (sc *Scanner) runScheduled() {
	sc.wg.Add(1)
	defer sc.wg.Done()
	sc.Scan(sc.ctx)
}

// Scan executes a single scan cycle and stores it as the last result
func (sc *Scanner) Scan(parent context.Context) *ScanResult {
	ctx, cancel := context.WithTimeout(parent, sc.config.ScanTimeout)
	defer cancel()

	startTime := time.Now()
	scanID := uuid.NewString()
	symbols := sc.config.Symbols
	l := logging.ScanContext(scanID, len(symbols))
	l.Info("Starting scan")

	type outcome struct {
		symbol   string
		analysis *confluence.MultiTimeframeAnalysis
		err      error
	}
	resultChan := make(chan outcome, len(symbols))
	symbolChan := make(chan string, len(symbols))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < sc.config.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range symbolChan {
				if ctx.Err() != nil {
					resultChan <- outcome{symbol: symbol, err: ctx.Err()}
					continue
				}
				a, err := sc.analyzer.AnalyzeSymbol(ctx, symbol)
				resultChan <- outcome{symbol: symbol, analysis: a, err: err}
			}
		}()
	}

	for _, symbol := range symbols {
		symbolChan <- symbol
	}
	close(symbolChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	scanResult := &ScanResult{
		ScanID:         scanID,
		StartTime:      startTime,
		SymbolsScanned: len(symbols),
		Results:        []*confluence.MultiTimeframeAnalysis{},
	}
	for res := range resultChan {
		if res.err != nil {
			l.Warn("Symbol analysis failed", "symbol", res.symbol, "error", res.err)
			scanResult.Failures = append(scanResult.Failures, SymbolFailure{Symbol: res.symbol, Error: res.err.Error()})
			continue
		}
		scanResult.Results = append(scanResult.Results, res.analysis)
	}

	// Sort by signal strength (descending)
	sort.SliceStable(scanResult.Results, func(i, j int) bool {
		a, b := scanResult.Results[i], scanResult.Results[j]
		if c := a.SignalStrength.Cmp(b.SignalStrength); c != 0 {
			return c > 0
		}
		return a.Symbol < b.Symbol
	})
	sort.Slice(scanResult.Failures, func(i, j int) bool {
		return scanResult.Failures[i].Symbol < scanResult.Failures[j].Symbol
	})

	scanResult.EndTime = time.Now()
	scanResult.Duration = scanResult.EndTime.Sub(startTime)

	sc.mu.Lock()
	sc.lastResult = scanResult
	sc.mu.Unlock()

	l.WithDuration(scanResult.Duration).Info("Scan completed",
		"analyzed", len(scanResult.Results), "failed", len(scanResult.Failures))
	return scanResult
}

// GetLastResult returns the most recent scan result, or nil before the first scan
func (sc *Scanner) GetLastResult() *ScanResult {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.lastResult
}

// Stop cancels any running scan and waits for it to finish
func (sc *Scanner) Stop() {
	stopCtx := sc.cron.Stop()
	sc.cancel()
	<-stopCtx.Done()
	sc.wg.Wait()
	sc.logger.Info("Scanner stopped")
}
