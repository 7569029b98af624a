package market

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTypicalPrice(t *testing.T) {
	bar := Bar{
		High:  decimal.NewFromInt(110),
		Low:   decimal.NewFromInt(90),
		Close: decimal.NewFromInt(100),
	}
	if !bar.TypicalPrice().Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected typical price 100, got %s", bar.TypicalPrice())
	}
}

func TestValidateSeriesRejectsUnorderedTimestamps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Timestamp: base, High: decimal.NewFromInt(2), Low: decimal.NewFromInt(1)},
		{Timestamp: base, High: decimal.NewFromInt(2), Low: decimal.NewFromInt(1)},
	}
	if err := ValidateSeries(bars); err == nil {
		t.Error("Expected error for duplicate timestamps")
	}
}

func TestSampleStdDev(t *testing.T) {
	values := []decimal.Decimal{
		decimal.NewFromInt(2), decimal.NewFromInt(4), decimal.NewFromInt(4), decimal.NewFromInt(4),
		decimal.NewFromInt(5), decimal.NewFromInt(5), decimal.NewFromInt(7), decimal.NewFromInt(9),
	}
	// population stddev is 2, sample is sqrt(32/7)
	got := Round6(SampleStdDev(values))
	want := decimal.RequireFromString("2.13809")
	if !got.Sub(want).Abs().LessThan(decimal.RequireFromString("0.00001")) {
		t.Errorf("Expected ~%s, got %s", want, got)
	}
}

func TestSqrtExactSquare(t *testing.T) {
	got := Round6(Sqrt(decimal.NewFromInt(144)))
	if !got.Equal(decimal.NewFromInt(12)) {
		t.Errorf("Expected 12, got %s", got)
	}
	if !Sqrt(decimal.NewFromInt(-4)).IsZero() {
		t.Error("Expected zero for negative input")
	}
}

func TestRound6IsHalfEven(t *testing.T) {
	if got := Round6(decimal.RequireFromString("1.0000005")); !got.Equal(decimal.RequireFromString("1.000000")) {
		t.Errorf("Expected 1.000000, got %s", got)
	}
	if got := Round6(decimal.RequireFromString("1.0000015")); !got.Equal(decimal.RequireFromString("1.000002")) {
		t.Errorf("Expected 1.000002, got %s", got)
	}
}

func TestRoleWeight(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleHigher, "1.5"},
		{RoleTrading, "1"},
		{RoleLower, "0.75"},
	}
	for _, tt := range tests {
		if !tt.role.Weight().Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%s: expected weight %s, got %s", tt.role, tt.want, tt.role.Weight())
		}
	}
}

func TestReadCSV(t *testing.T) {
	input := `timestamp,open,high,low,close,volume
2024-01-01T00:00:00Z,100,101.5,99.25,100.75,1200
2024-01-01T01:00:00Z,100.75,102,100,101.5,900
1704074400000,101.5,103,101,102.25,1500
`
	bars, err := ReadCSV(strings.NewReader(input), "BTCUSDT", TF1h)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("Expected 3 bars, got %d", len(bars))
	}
	if !bars[0].Low.Equal(decimal.RequireFromString("99.25")) {
		t.Errorf("Expected low 99.25, got %s", bars[0].Low)
	}
	if bars[2].Volume != 1500 {
		t.Errorf("Expected volume 1500, got %d", bars[2].Volume)
	}
	if bars[1].Symbol != "BTCUSDT" || bars[1].Interval != TF1h {
		t.Errorf("Symbol/interval not propagated: %+v", bars[1])
	}
}

func TestReadCSVBadPrice(t *testing.T) {
	input := "2024-01-01T00:00:00Z,abc,1,1,1,1\n"
	if _, err := ReadCSV(strings.NewReader(input), "X", TF1h); err == nil {
		t.Error("Expected error for non-numeric price")
	}
}
