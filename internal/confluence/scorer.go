package confluence

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/market"
	"drummond-geometry/internal/patterns"
)

// recentPatterns is how many patterns per side are compared for pattern confluence
const recentPatterns = 10

// SignalScorer turns alignment, trend strength, zones and patterns into a signal
type SignalScorer struct {
	alignmentWeight decimal.Decimal
	strengthWeight  decimal.Decimal
	patternBonus    decimal.Decimal

	// Strongest-zone bonuses
	zoneStrongWeighted decimal.Decimal
	zoneStrongBonus    decimal.Decimal
	zoneMediumWeighted decimal.Decimal
	zoneMediumBonus    decimal.Decimal
	zoneBaseBonus      decimal.Decimal

	lowRiskSignal   decimal.Decimal
	lowRiskStrength decimal.Decimal
	mediumRisk      decimal.Decimal

	minSignal      decimal.Decimal // below this the action is always wait
	strongSignal   decimal.Decimal
	moderateSignal decimal.Decimal
}

// NewSignalScorer creates a scorer with the standard weights
func NewSignalScorer() *SignalScorer {
	return &SignalScorer{
		alignmentWeight:    decimal.RequireFromString("0.4"),
		strengthWeight:     decimal.RequireFromString("0.3"),
		patternBonus:       decimal.RequireFromString("0.15"),
		zoneStrongWeighted: decimal.RequireFromString("4.0"),
		zoneStrongBonus:    decimal.RequireFromString("0.15"),
		zoneMediumWeighted: decimal.RequireFromString("2.5"),
		zoneMediumBonus:    decimal.RequireFromString("0.12"),
		zoneBaseBonus:      decimal.RequireFromString("0.08"),
		lowRiskSignal:      decimal.RequireFromString("0.7"),
		lowRiskStrength:    decimal.RequireFromString("0.6"),
		mediumRisk:         decimal.RequireFromString("0.5"),
		minSignal:          decimal.RequireFromString("0.4"),
		strongSignal:       decimal.RequireFromString("0.6"),
		moderateSignal:     decimal.RequireFromString("0.5"),
	}
}

// SignalStrength is alignment*0.4 + htf strength*0.3 + zone bonus + pattern bonus, clamped to 1
func (s *SignalScorer) SignalStrength(al TimeframeAlignment, htfStrength decimal.Decimal, zones []ConfluenceZone, patternConfluence bool, reasoning *[]string) decimal.Decimal {
	score := al.AlignmentScore.Mul(s.alignmentWeight).Add(htfStrength.Mul(s.strengthWeight))

	if len(zones) > 0 {
		strongest := zones[0]
		if strongest.WeightedStrength.GreaterThanOrEqual(s.zoneStrongWeighted) {
			score = score.Add(s.zoneStrongBonus)
			*reasoning = append(*reasoning, fmt.Sprintf("Strong confluence zone at %s (%s weighted)", strongest.Level, strongest.WeightedStrength))
		} else if strongest.WeightedStrength.GreaterThanOrEqual(s.zoneMediumWeighted) {
			score = score.Add(s.zoneMediumBonus)
			*reasoning = append(*reasoning, fmt.Sprintf("Confluence zone at %s", strongest.Level))
		} else if strongest.Strength >= 2 {
			score = score.Add(s.zoneBaseBonus)
			*reasoning = append(*reasoning, fmt.Sprintf("Weak confluence zone at %s", strongest.Level))
		}
	}

	if patternConfluence {
		score = score.Add(s.patternBonus)
		*reasoning = append(*reasoning, "Matching patterns on both timeframes")
	}

	return market.Round6(market.Clamp01(score))
}

// RiskLevel grades the setup; anything not permitted is high risk
func (s *SignalScorer) RiskLevel(al TimeframeAlignment, signal, htfStrength decimal.Decimal) RiskLevel {
	if !al.TradePermitted {
		return RiskHigh
	}
	if signal.GreaterThanOrEqual(s.lowRiskSignal) && htfStrength.GreaterThanOrEqual(s.lowRiskStrength) {
		return RiskLow
	}
	if signal.GreaterThanOrEqual(s.mediumRisk) {
		return RiskMedium
	}
	return RiskHigh
}

// RecommendAction picks long, short, wait or reduce. Wait is returned whenever trading is not permitted.
func (s *SignalScorer) RecommendAction(al TimeframeAlignment, signal decimal.Decimal, htfTrend, tradingTrend analysis.TrendDirection) Action {
	if !al.TradePermitted || signal.LessThan(s.minSignal) {
		return ActionWait
	}
	if htfTrend == tradingTrend && tradingTrend.Directional() && signal.GreaterThanOrEqual(s.strongSignal) {
		return directionalAction(tradingTrend)
	}
	if signal.GreaterThanOrEqual(s.moderateSignal) && tradingTrend.Directional() && htfTrend != tradingTrend.Opposite() {
		return directionalAction(tradingTrend)
	}
	if al.AlignmentType == AlignmentConflicting {
		return ActionReduce
	}
	return ActionWait
}

func directionalAction(d analysis.TrendDirection) Action {
	if d == analysis.TrendDown {
		return ActionShort
	}
	return ActionLong
}

// PatternConfluence reports whether any recent higher timeframe pattern matches a
// recent trading pattern in type and direction with overlapping spans.
func PatternConfluence(htf, trading []patterns.PatternEvent) bool {
	for _, h := range htf {
		for _, t := range trading {
			if h.PatternType == t.PatternType && h.Direction == t.Direction && h.Overlaps(t) {
				return true
			}
		}
	}
	return false
}

// recentEvents returns the last recentPatterns events ending at or before ts
func recentEvents(events []patterns.PatternEvent, ts time.Time) []patterns.PatternEvent {
	out := make([]patterns.PatternEvent, 0, recentPatterns)
	for _, ev := range events {
		if !ev.EndTimestamp.After(ts) {
			out = append(out, ev)
		}
	}
	if len(out) > recentPatterns {
		out = out[len(out)-recentPatterns:]
	}
	return out
}
