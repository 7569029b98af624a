package patterns

import (
	"fmt"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

// DetectPush finds runs where price sits on the side of PLdot that its slope points to
func (pd *PatternDetector) DetectPush(bars []market.Bar, pldot []analysis.PLdotPoint) ([]PatternEvent, error) {
	minBars := pd.cfg.Push.MinBars
	rows := joinRows(bars, pldot, nil, false)
	if len(rows) < minBars {
		return nil, fmt.Errorf("push needs %d rows, got %d: %w", minBars, len(rows), analysis.ErrInsufficientData)
	}

	var events []PatternEvent
	var s streak
	flush := func(end int) {
		if s.length >= minBars {
			events = append(events, PatternEvent{
				PatternType:    PLdotPush,
				Direction:      s.direction,
				StartTimestamp: rows[s.start].bar.Timestamp,
				EndTimestamp:   rows[end].bar.Timestamp,
				Strength:       s.length,
			})
		}
		s.reset()
	}

	for i, r := range rows {
		side := r.bar.Close.Cmp(r.pldot.Value)
		if side == 0 || side != r.pldot.Slope.Sign() {
			if s.active() {
				flush(i - 1)
			}
			continue
		}
		if s.active() && s.direction != side {
			flush(i - 1)
		}
		if !s.active() {
			s = streak{start: i, direction: side}
		}
		s.length++
	}
	if s.active() {
		flush(len(rows) - 1)
	}
	return events, nil
}
