package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe is a bar interval label such as "1h" or "4h"
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
	TF1w  Timeframe = "1w"
)

// Duration returns the wall-clock length of a known timeframe, or 0
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF30m:
		return 30 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	case TF1w:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Role is the part a timeframe plays in multi-timeframe coordination
type Role string

const (
	RoleHigher  Role = "higher"
	RoleTrading Role = "trading"
	RoleLower   Role = "lower"
)

// Weight is the confluence weight multiplier for levels coming from this role
func (r Role) Weight() decimal.Decimal {
	switch r {
	case RoleHigher:
		return decimal.RequireFromString("1.5")
	case RoleTrading:
		return decimal.NewFromInt(1)
	case RoleLower:
		return decimal.RequireFromString("0.75")
	default:
		return decimal.NewFromInt(1)
	}
}

// Bar is one OHLCV price bar
type Bar struct {
	Symbol    string          `json:"symbol"`
	Exchange  string          `json:"exchange,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Interval  Timeframe       `json:"interval"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

var three = decimal.NewFromInt(3)

// ErrInvalidSeries is returned for malformed or unordered bar series
var ErrInvalidSeries = errors.New("invalid bar series")

// TypicalPrice returns (high + low + close) / 3
func (b Bar) TypicalPrice() decimal.Decimal {
	return b.High.Add(b.Low).Add(b.Close).Div(three)
}

// Range returns high - low
func (b Bar) Range() decimal.Decimal {
	return b.High.Sub(b.Low)
}

// ValidateSeries checks that timestamps strictly increase and that each bar is well formed
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if b.High.LessThan(b.Low) {
			return fmt.Errorf("%w: bar %d (%s): high %s below low %s", ErrInvalidSeries, i, b.Timestamp.Format(time.RFC3339), b.High, b.Low)
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w: bar %d (%s): timestamp not after previous bar", ErrInvalidSeries, i, b.Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// IndexByTimestamp maps bar timestamps (unix nanos) to their index in the series
func IndexByTimestamp(bars []Bar) map[int64]int {
	idx := make(map[int64]int, len(bars))
	for i, b := range bars {
		idx[b.Timestamp.UnixNano()] = i
	}
	return idx
}
