package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"drummond-geometry/internal/market"
)

// Key prefixes for different cache types
const (
	PrefixBundle         = "drummond:bundle:%s:%s:%s:%s:%s" // symbol, timeframe, role, params, input
	PrefixLatestAnalysis = "drummond:analysis:%s:latest"
	PrefixSymbolBundles  = "drummond:bundle:%s:*"
)

// LatestAnalysisTTL bounds how long a cached latest analysis is served
const LatestAnalysisTTL = 24 * time.Hour

// Fingerprint hashes the JSON encoding of v. Values that cannot be encoded
// fall back to their %v form.
func Fingerprint(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// BarsHash identifies an input bar series by its timestamps and OHLCV values
func BarsHash(bars []market.Bar) string {
	h := sha256.New()
	for _, b := range bars {
		fmt.Fprintf(h, "%d|%s|%s|%s|%s|%d;", b.Timestamp.UnixNano(), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// BundleKey generates the cache key of one timeframe bundle
func BundleKey(symbol string, tf market.Timeframe, role market.Role, paramsFingerprint string, bars []market.Bar) string {
	return fmt.Sprintf(PrefixBundle, symbol, tf, role, paramsFingerprint, BarsHash(bars))
}

// LatestAnalysisKey generates the cache key of the latest analysis of symbol
func LatestAnalysisKey(symbol string) string {
	return fmt.Sprintf(PrefixLatestAnalysis, symbol)
}

// SymbolBundlesPattern matches every bundle key of symbol
func SymbolBundlesPattern(symbol string) string {
	return fmt.Sprintf(PrefixSymbolBundles, symbol)
}

// TTLFor returns how long a bundle of the given timeframe stays fresh
func TTLFor(tf market.Timeframe) time.Duration {
	switch tf {
	case market.TF1m:
		return 30 * time.Second
	case market.TF5m:
		return 2 * time.Minute
	case market.TF15m:
		return 5 * time.Minute
	case market.TF30m:
		return 15 * time.Minute
	case market.TF1h:
		return 30 * time.Minute
	case market.TF4h:
		return 2 * time.Hour
	case market.TF1d:
		return 12 * time.Hour
	case market.TF1w:
		return 48 * time.Hour
	default:
		return 1 * time.Minute
	}
}
