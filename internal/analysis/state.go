package analysis

import (
	"time"

	"github.com/shopspring/decimal"

	"drummond-geometry/internal/market"
)

// MarketState is the Drummond five-state classification
type MarketState string

const (
	StateTrend              MarketState = "trend"
	StateCongestionEntrance MarketState = "congestion_entrance"
	StateCongestionAction   MarketState = "congestion_action"
	StateCongestionExit     MarketState = "congestion_exit"
	StateReversal           MarketState = "reversal"
)

// IsCongestion reports whether s is one of the congestion sub-states
func (s MarketState) IsCongestion() bool {
	switch s {
	case StateCongestionEntrance, StateCongestionAction, StateCongestionExit:
		return true
	default:
		return false
	}
}

// TrendDirection is up, down or neutral
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// Directional reports whether d is up or down
func (d TrendDirection) Directional() bool {
	return d == TrendUp || d == TrendDown
}

// Opposite returns the reverse direction; neutral stays neutral
func (d TrendDirection) Opposite() TrendDirection {
	switch d {
	case TrendUp:
		return TrendDown
	case TrendDown:
		return TrendUp
	default:
		return TrendNeutral
	}
}

// SlopeTrend describes the PLdot slope
type SlopeTrend string

const (
	SlopeRising     SlopeTrend = "rising"
	SlopeFalling    SlopeTrend = "falling"
	SlopeHorizontal SlopeTrend = "horizontal"
)

// Matches reports whether the slope points the same way as d
func (s SlopeTrend) Matches(d TrendDirection) bool {
	return (s == SlopeRising && d == TrendUp) || (s == SlopeFalling && d == TrendDown)
}

// StatePoint is the classification of one PLdot point. Empty PreviousState and
// TrendAtCongestionEntrance mean "none".
type StatePoint struct {
	Timestamp                 time.Time       `json:"timestamp"`
	State                     MarketState     `json:"state"`
	TrendDirection            TrendDirection  `json:"trend_direction"`
	BarsInState               int             `json:"bars_in_state"`
	PreviousState             MarketState     `json:"previous_state,omitempty"`
	PLdotSlopeTrend           SlopeTrend      `json:"pldot_slope_trend"`
	Confidence                decimal.Decimal `json:"confidence"`
	StateChangeReason         string          `json:"state_change_reason,omitempty"`
	TrendAtCongestionEntrance TrendDirection  `json:"trend_at_congestion_entrance,omitempty"`
	BarsInCongestion          int             `json:"bars_in_congestion"`
}

// DefaultSlopeThreshold separates a horizontal PLdot from a trending one
var DefaultSlopeThreshold = decimal.RequireFromString("0.0001")

const stateWindow = 3

var (
	confidenceBase        = decimal.RequireFromString("0.5")
	confidencePerBar      = decimal.RequireFromString("0.05")
	confidenceDurationCap = decimal.RequireFromString("0.3")
	confidenceTrendSlope  = decimal.RequireFromString("0.2")
	confidenceFlatSlope   = decimal.RequireFromString("0.15")
	confidenceUniform     = decimal.RequireFromString("0.1")
)

// MarketStateClassifier folds a PLdot series into state points
type MarketStateClassifier struct {
	slopeThreshold decimal.Decimal
}

// NewMarketStateClassifier creates a classifier; a non-positive threshold uses the default
func NewMarketStateClassifier(slopeThreshold decimal.Decimal) *MarketStateClassifier {
	if slopeThreshold.Sign() <= 0 {
		slopeThreshold = DefaultSlopeThreshold
	}
	return &MarketStateClassifier{slopeThreshold: slopeThreshold}
}

// classifierFold is the running state threaded through Classify
type classifierFold struct {
	previous                  MarketState
	previousDirection         TrendDirection
	barsInState               int
	lastTrendDirection        TrendDirection
	trendAtCongestionEntrance TrendDirection
	barsInCongestion          int
	window                    []int
}

func (f *classifierFold) push(position int) {
	f.window = append(f.window, position)
	if len(f.window) > stateWindow {
		f.window = f.window[1:]
	}
}

func (f *classifierFold) uniform() (int, bool) {
	if len(f.window) < stateWindow {
		return 0, false
	}
	for _, p := range f.window[1:] {
		if p != f.window[0] {
			return 0, false
		}
	}
	return f.window[0], true
}

func (f *classifierFold) effectivePriorTrend() TrendDirection {
	if f.trendAtCongestionEntrance != "" {
		return f.trendAtCongestionEntrance
	}
	return f.lastTrendDirection
}

// Classify walks the PLdot series in order. Points without a bar at the same
// timestamp are skipped.
func (c *MarketStateClassifier) Classify(bars []market.Bar, pldot []PLdotPoint) []StatePoint {
	barIndex := market.IndexByTimestamp(bars)
	fold := &classifierFold{window: make([]int, 0, stateWindow+1)}
	out := make([]StatePoint, 0, len(pldot))

	for _, p := range pldot {
		bi, ok := barIndex[p.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		out = append(out, c.step(fold, p, bars[bi].Close))
	}
	return out
}

func (c *MarketStateClassifier) step(f *classifierFold, p PLdotPoint, close decimal.Decimal) StatePoint {
	f.push(close.Cmp(p.Value))
	slopeTrend := c.slopeTrend(p.Slope)

	state, direction, reason := c.applyRules(f)

	changed := state != f.previous
	if changed {
		f.barsInState = 1
	} else {
		f.barsInState++
		reason = ""
	}

	switch {
	case state == StateCongestionEntrance && f.previous == StateTrend:
		f.trendAtCongestionEntrance = f.lastTrendDirection
		f.barsInCongestion = 1
	case isEntranceOrAction(state) && isEntranceOrAction(f.previous) && f.trendAtCongestionEntrance != "":
		f.barsInCongestion++
	}

	point := StatePoint{
		Timestamp:                 p.Timestamp,
		State:                     state,
		TrendDirection:            direction,
		BarsInState:               f.barsInState,
		PreviousState:             f.previous,
		PLdotSlopeTrend:           slopeTrend,
		Confidence:                c.confidence(f, state, direction, slopeTrend),
		StateChangeReason:         reason,
		TrendAtCongestionEntrance: f.trendAtCongestionEntrance,
		BarsInCongestion:          f.barsInCongestion,
	}

	if state == StateTrend || state == StateReversal {
		f.trendAtCongestionEntrance = ""
		f.barsInCongestion = 0
	}
	if direction.Directional() && (state == StateTrend || state == StateCongestionExit || state == StateReversal) {
		f.lastTrendDirection = direction
	}
	f.previous = state
	f.previousDirection = direction
	return point
}

func (c *MarketStateClassifier) applyRules(f *classifierFold) (MarketState, TrendDirection, string) {
	if len(f.window) < stateWindow {
		return StateCongestionAction, TrendNeutral, "Insufficient bars"
	}

	if pos, ok := f.uniform(); ok && pos != 0 {
		dir := TrendUp
		if pos < 0 {
			dir = TrendDown
		}
		if f.previous == StateTrend && f.previousDirection == dir {
			return StateTrend, dir, "Trend continuation"
		}
		if isEntranceOrAction(f.previous) {
			switch f.effectivePriorTrend() {
			case dir:
				return StateCongestionExit, dir, "Three closes resume the prior " + string(dir) + " trend"
			case dir.Opposite():
				return StateReversal, dir, "Three closes reverse the prior " + string(dir.Opposite()) + " trend"
			}
		}
		return StateTrend, dir, "Three closes " + positionWord(dir) + " PLdot"
	}

	if f.previous == StateTrend {
		return StateCongestionEntrance, f.previousDirection, "First close against the trend"
	}
	dir := f.effectivePriorTrend()
	if !dir.Directional() {
		dir = TrendNeutral
	}
	return StateCongestionAction, dir, "Alternating closes around PLdot"
}

func (c *MarketStateClassifier) slopeTrend(slope decimal.Decimal) SlopeTrend {
	if slope.Abs().LessThan(c.slopeThreshold) {
		return SlopeHorizontal
	}
	if slope.Sign() > 0 {
		return SlopeRising
	}
	return SlopeFalling
}

func (c *MarketStateClassifier) confidence(f *classifierFold, state MarketState, dir TrendDirection, slope SlopeTrend) decimal.Decimal {
	conf := confidenceBase.Add(market.MinDecimal(decimal.NewFromInt(int64(f.barsInState)).Mul(confidencePerBar), confidenceDurationCap))
	if state == StateTrend && slope.Matches(dir) {
		conf = conf.Add(confidenceTrendSlope)
	}
	if state.IsCongestion() && slope == SlopeHorizontal {
		conf = conf.Add(confidenceFlatSlope)
	}
	if _, ok := f.uniform(); ok {
		conf = conf.Add(confidenceUniform)
	}
	return market.MinDecimal(conf, market.One)
}

func isEntranceOrAction(s MarketState) bool {
	return s == StateCongestionEntrance || s == StateCongestionAction
}

func positionWord(d TrendDirection) string {
	if d == TrendDown {
		return "below"
	}
	return "above"
}

// StateAt returns the last state point at or before ts
func StateAt(points []StatePoint, ts time.Time) (StatePoint, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if !points[i].Timestamp.After(ts) {
			return points[i], true
		}
	}
	return StatePoint{}, false
}
