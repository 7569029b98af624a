package engine

import (
	"context"
	"fmt"

	"drummond-geometry/internal/market"
)

// CSVSource serves bars from one CSV file per timeframe
type CSVSource struct {
	Paths map[market.Timeframe]string
}

// GetBars loads the file mapped to interval and returns its last limit bars
func (s CSVSource) GetBars(_ context.Context, symbol string, interval market.Timeframe, limit int) ([]market.Bar, error) {
	path, ok := s.Paths[interval]
	if !ok || path == "" {
		return nil, fmt.Errorf("no csv file for timeframe %s", interval)
	}
	bars, err := market.LoadCSV(path, symbol, interval)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}
