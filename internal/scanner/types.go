package scanner

import (
	"context"
	"time"

	"drummond-geometry/internal/confluence"
)

// Analyzer runs one multi-timeframe analysis for a symbol
type Analyzer interface {
	AnalyzeSymbol(ctx context.Context, symbol string) (*confluence.MultiTimeframeAnalysis, error)
}

// SymbolFailure records a symbol whose analysis failed during a scan
type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// ScanResult aggregates all analyses from one scan cycle, strongest signal first
type ScanResult struct {
	ScanID         string                               `json:"scan_id"`
	StartTime      time.Time                            `json:"start_time"`
	EndTime        time.Time                            `json:"end_time"`
	Duration       time.Duration                        `json:"duration"`
	SymbolsScanned int                                  `json:"symbols_scanned"`
	Results        []*confluence.MultiTimeframeAnalysis `json:"results"`
	Failures       []SymbolFailure                      `json:"failures,omitempty"`
}

// ScannerConfig holds scanner configuration
type ScannerConfig struct {
	Enabled     bool
	Symbols     []string
	WorkerCount int
	Schedule    string // cron spec, e.g. "@every 5m"
	ScanTimeout time.Duration
}
