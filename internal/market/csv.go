package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LoadCSV reads bars from a file with rows "timestamp,open,high,low,close,volume".
// A header row is skipped when its first column is not a timestamp.
func LoadCSV(path, symbol string, interval Timeframe) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, symbol, interval)
}

// ReadCSV parses bars from r, see LoadCSV for the format
func ReadCSV(r io.Reader, symbol string, interval Timeframe) ([]Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var bars []Bar
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line+1, err)
		}
		line++
		if len(record) < 6 {
			return nil, fmt.Errorf("csv line %d: expected 6 columns, got %d", line, len(record))
		}

		ts, err := parseTimestamp(record[0])
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		bar := Bar{Symbol: symbol, Interval: interval, Timestamp: ts}
		fields := []*decimal.Decimal{&bar.Open, &bar.High, &bar.Low, &bar.Close}
		for i, dst := range fields {
			v, err := decimal.NewFromString(strings.TrimSpace(record[i+1]))
			if err != nil {
				return nil, fmt.Errorf("csv line %d column %d: %w", line, i+2, err)
			}
			*dst = v
		}
		vol, err := decimal.NewFromString(strings.TrimSpace(record[5]))
		if err != nil {
			return nil, fmt.Errorf("csv line %d volume: %w", line, err)
		}
		bar.Volume = vol.IntPart()
		bars = append(bars, bar)
	}

	if err := ValidateSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
