package analysis

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"drummond-geometry/internal/market"
)

func lineBars() []market.Bar {
	return []market.Bar{
		mkBar(0, 9, 10, 8, 9),
		mkBar(1, 10, 11, 9, 10),
		mkBar(2, 11, 13, 10, 12),
	}
}

func TestDrummondLineProjection(t *testing.T) {
	bars := lineBars()
	proj, err := NewDrummondLineProjector(1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	lines, err := proj.Project(bars)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d", len(lines))
	}

	tests := []struct {
		idx       int
		lineType  ZoneType
		slope     string
		projected string
	}{
		{0, ZoneResistance, "1", "13"}, // 11 + 1*2 steps to bar 2
		{1, ZoneSupport, "1", "11"},
		{2, ZoneResistance, "2", "15"}, // clamped to last bar, one step
		{3, ZoneSupport, "1", "11"},
	}
	for _, tt := range tests {
		l := lines[tt.idx]
		if l.LineType != tt.lineType {
			t.Errorf("Line %d: expected %s, got %s", tt.idx, tt.lineType, l.LineType)
		}
		if !l.Slope.Equal(d(tt.slope)) {
			t.Errorf("Line %d: expected slope %s, got %s", tt.idx, tt.slope, l.Slope)
		}
		if !l.ProjectedPrice.Equal(d(tt.projected)) {
			t.Errorf("Line %d: expected projected %s, got %s", tt.idx, tt.projected, l.ProjectedPrice)
		}
		if want := bars[2].Timestamp.Add(time.Hour); !l.ProjectedTimestamp.Equal(want) {
			t.Errorf("Line %d: expected projected timestamp %s, got %s", tt.idx, want, l.ProjectedTimestamp)
		}
	}
}

func TestDrummondLineErrors(t *testing.T) {
	if _, err := NewDrummondLineProjector(0); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
	}
	proj, _ := NewDrummondLineProjector(1)
	if _, err := proj.Project(lineBars()[:1]); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestAggregateZones(t *testing.T) {
	proj, _ := NewDrummondLineProjector(1)
	lines, _ := proj.Project(lineBars())

	zones := AggregateZones(lines, d("0.5"))
	if len(zones) != 3 {
		t.Fatalf("Expected 3 zones, got %d", len(zones))
	}

	support := zones[0]
	if support.LineType != ZoneSupport || support.Strength != 2 || !support.CenterPrice.Equal(d("11")) {
		t.Errorf("Expected support zone at 11 with strength 2, got %+v", support)
	}
	if !support.FirstTimestamp.Equal(testStart) || !support.LastTimestamp.Equal(testStart.Add(2*time.Hour)) {
		t.Errorf("Unexpected touch range %s - %s", support.FirstTimestamp, support.LastTimestamp)
	}
	if zones[1].Strength != 1 || zones[2].Strength != 1 {
		t.Errorf("Expected single-line resistance zones, got %d and %d", zones[1].Strength, zones[2].Strength)
	}

	merged := AggregateZones(lines, d("2"))
	if len(merged) != 2 {
		t.Fatalf("Expected 2 zones with wide tolerance, got %d", len(merged))
	}
	for _, z := range merged {
		if z.LineType == ZoneResistance && (!z.CenterPrice.Equal(d("14")) || !z.Width().Equal(d("2"))) {
			t.Errorf("Expected merged resistance centered at 14 width 2, got %s width %s", z.CenterPrice, z.Width())
		}
	}
}

func TestAggregateZonesOrderInvariant(t *testing.T) {
	proj, _ := NewDrummondLineProjector(2)
	lines, _ := proj.Project(zigzagBars(25))

	reversed := make([]DrummondLine, len(lines))
	for i, l := range lines {
		reversed[len(lines)-1-i] = l
	}

	tol := ZoneTolerance(zigzagBars(25), nil)
	a := AggregateZones(lines, tol)
	b := AggregateZones(reversed, tol)
	if !reflect.DeepEqual(a, b) {
		t.Error("Zone aggregation depends on input order")
	}
}

func TestZoneTolerance(t *testing.T) {
	bars := lineBars() // ranges 2, 2, 3
	got := ZoneTolerance(bars, nil)
	want := d("7").Div(d("3")).Mul(d("0.3"))
	if !got.Equal(want) {
		t.Errorf("Expected %s, got %s", want, got)
	}

	envs := []EnvelopePoint{{Width: d("10")}}
	if got := ZoneTolerance(bars, envs); !got.Equal(d("2.5")) {
		t.Errorf("Expected envelope-driven tolerance 2.5, got %s", got)
	}
	if got := ZoneTolerance(nil, nil); !got.Equal(d("0.05")) {
		t.Errorf("Expected floor 0.05, got %s", got)
	}
}
