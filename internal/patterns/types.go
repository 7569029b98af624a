package patterns

import (
	"time"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
)

// PatternType identifies a Drummond pattern event
type PatternType string

const (
	PLdotPush             PatternType = "pldot_push"
	PLdotRefresh          PatternType = "pldot_refresh"
	Exhaust               PatternType = "exhaust"
	CWave                 PatternType = "c_wave"
	CongestionOscillation PatternType = "congestion_oscillation"
	TerminationApproach   PatternType = "termination_approach"
	TerminationTouch      PatternType = "termination_touch"
)

// PatternEvent is one detected multi-bar pattern.
// Direction is +1 bullish, -1 bearish, 0 neutral.
type PatternEvent struct {
	PatternType    PatternType `json:"pattern_type"`
	Direction      int         `json:"direction"`
	StartTimestamp time.Time   `json:"start_timestamp"`
	EndTimestamp   time.Time   `json:"end_timestamp"`
	Strength       int         `json:"strength"`
}

// Overlaps reports whether the [start, end] intervals of e and o intersect
func (e PatternEvent) Overlaps(o PatternEvent) bool {
	return !e.EndTimestamp.Before(o.StartTimestamp) && !o.EndTimestamp.Before(e.StartTimestamp)
}

// row is one bar joined with its PLdot point and, when present, its envelope
type row struct {
	bar      market.Bar
	pldot    analysis.PLdotPoint
	envelope analysis.EnvelopePoint
	hasEnv   bool
}

// joinRows inner-joins bars and PLdot on timestamp, attaching envelopes where they exist.
// With requireEnvelope set, rows without an envelope are dropped.
func joinRows(bars []market.Bar, pldot []analysis.PLdotPoint, envelopes []analysis.EnvelopePoint, requireEnvelope bool) []row {
	barIndex := market.IndexByTimestamp(bars)
	envIndex := make(map[int64]int, len(envelopes))
	for i, e := range envelopes {
		envIndex[e.Timestamp.UnixNano()] = i
	}

	rows := make([]row, 0, len(pldot))
	for _, p := range pldot {
		key := p.Timestamp.UnixNano()
		bi, ok := barIndex[key]
		if !ok {
			continue
		}
		r := row{bar: bars[bi], pldot: p}
		if ei, ok := envIndex[key]; ok {
			r.envelope = envelopes[ei]
			r.hasEnv = true
		} else if requireEnvelope {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

// streak tracks a run of consecutive rows sharing a direction
type streak struct {
	start     int
	length    int
	direction int
}

func (s *streak) active() bool {
	return s.length > 0
}

func (s *streak) reset() {
	*s = streak{}
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
