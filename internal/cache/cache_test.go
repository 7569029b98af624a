package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"drummond-geometry/config"
	"drummond-geometry/internal/market"
)

// failingStore simulates an unreachable backend
type failingStore struct {
	sets atomic.Int32
}

func (f *failingStore) GetJSON(ctx context.Context, key string, dest interface{}) error {
	return ErrUnavailable
}

func (f *failingStore) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.sets.Add(1)
	return ErrUnavailable
}

type payload struct {
	Symbol string          `json:"symbol"`
	Level  decimal.Decimal `json:"level"`
}

func TestMemoryStoreRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	in := payload{Symbol: "BTCUSDT", Level: decimal.RequireFromString("101.010000")}
	if err := store.SetJSON(ctx, "k", in, time.Minute); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var out payload
	if err := store.GetJSON(ctx, "k", &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Symbol != "BTCUSDT" || !out.Level.Equal(in.Level) {
		t.Errorf("Round trip mismatch: %+v", out)
	}

	now = now.Add(2 * time.Minute)
	if err := store.GetJSON(ctx, "k", &out); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after expiry, got %v", err)
	}
	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Expected expired entry to be cleared, %d left", store.Len())
	}
}

func TestMemoryStoreMissingKey(t *testing.T) {
	var out payload
	if err := NewMemoryStore().GetJSON(context.Background(), "absent", &out); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

var (
	_ Invalidator = (*CacheService)(nil)
	_ Invalidator = (*MemoryStore)(nil)
)

func TestMemoryStoreDeletePattern(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	btc := BundleKey("BTCUSDT", market.TF1h, market.RoleTrading, "p", nil)
	eth := BundleKey("ETHUSDT", market.TF1h, market.RoleTrading, "p", nil)
	for _, key := range []string{btc, eth, LatestAnalysisKey("BTCUSDT")} {
		if err := store.SetJSON(ctx, key, payload{Symbol: key}, 0); err != nil {
			t.Fatalf("SetJSON failed: %v", err)
		}
	}

	if err := store.DeletePattern(ctx, SymbolBundlesPattern("BTCUSDT")); err != nil {
		t.Fatalf("DeletePattern failed: %v", err)
	}
	var out payload
	if err := store.GetJSON(ctx, btc, &out); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected BTCUSDT bundle to be removed, got %v", err)
	}
	if err := store.GetJSON(ctx, eth, &out); err != nil {
		t.Errorf("ETHUSDT bundle must survive, got %v", err)
	}
	if err := store.GetJSON(ctx, LatestAnalysisKey("BTCUSDT"), &out); err != nil {
		t.Errorf("Latest analysis is not a bundle key, got %v", err)
	}

	if err := store.Delete(ctx, LatestAnalysisKey("BTCUSDT")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 entry left, got %d", store.Len())
	}
	if err := store.DeletePattern(ctx, "drummond:["); err == nil {
		t.Error("Expected error for malformed pattern")
	}
}

func TestMemoizerServesSecondLoadFromStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoizer(NewMemoryStore())
	calls := 0
	compute := func() (*payload, error) {
		calls++
		return &payload{Symbol: "ETHUSDT", Level: decimal.NewFromInt(42)}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Load(ctx, m, "key", time.Minute, compute)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.Symbol != "ETHUSDT" || !got.Level.Equal(decimal.NewFromInt(42)) {
			t.Errorf("Unexpected value: %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("Expected 1 computation, got %d", calls)
	}
	if m.Hits() != 2 || m.Misses() != 1 {
		t.Errorf("Expected 2 hits/1 miss, got %d/%d", m.Hits(), m.Misses())
	}
}

func TestMemoizerDeduplicatesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	m := NewMemoizer(nil)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Load(ctx, m, "same", time.Minute, compute)
			if err != nil {
				t.Errorf("Load failed: %v", err)
			}
			results[i] = v
		}(i)
	}

	// let every goroutine join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected a single computation, got %d", calls.Load())
	}
	for i, v := range results {
		if v != 7 {
			t.Errorf("Caller %d got %d", i, v)
		}
	}
}

func TestMemoizerDegradesWhenStoreFails(t *testing.T) {
	store := &failingStore{}
	m := NewMemoizer(store)

	got, err := Load(context.Background(), m, "k", time.Minute, func() (string, error) { return "fresh", nil })
	if err != nil {
		t.Fatalf("Store failure must not fail the load: %v", err)
	}
	if got != "fresh" || store.sets.Load() != 1 {
		t.Errorf("Expected computed value and one write attempt, got %q/%d", got, store.sets.Load())
	}
}

func TestMemoizerDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemoizer(NewMemoryStore())
	boom := errors.New("insufficient bars")

	if _, err := Load(ctx, m, "k", time.Minute, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("Expected compute error, got %v", err)
	}
	got, err := Load(ctx, m, "k", time.Minute, func() (int, error) { return 3, nil })
	if err != nil || got != 3 {
		t.Errorf("Expected recomputation after error, got %d/%v", got, err)
	}
}

func TestBundleKeyChangesWithInput(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []market.Bar{{Timestamp: ts, Open: decimal.NewFromInt(1), High: decimal.NewFromInt(2), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(2)}}
	changed := []market.Bar{bars[0]}
	changed[0].Close = decimal.RequireFromString("1.5")

	fp := Fingerprint(map[string]int{"displacement": 1})
	a := BundleKey("BTCUSDT", market.TF1h, market.RoleTrading, fp, bars)
	if a != BundleKey("BTCUSDT", market.TF1h, market.RoleTrading, fp, bars) {
		t.Error("Bundle key must be deterministic")
	}
	if a == BundleKey("BTCUSDT", market.TF1h, market.RoleTrading, fp, changed) {
		t.Error("Bundle key must change with the bars")
	}
	if a == BundleKey("BTCUSDT", market.TF1h, market.RoleTrading, Fingerprint(map[string]int{"displacement": 2}), bars) {
		t.Error("Bundle key must change with the parameters")
	}
	if a == BundleKey("BTCUSDT", market.TF1h, market.RoleLower, fp, bars) {
		t.Error("Bundle key must change with the role")
	}
}

func TestTTLFor(t *testing.T) {
	if TTLFor(market.TF1h) != 30*time.Minute {
		t.Errorf("Unexpected 1h TTL %s", TTLFor(market.TF1h))
	}
	if TTLFor("3h") != time.Minute {
		t.Errorf("Unknown timeframe should use the 1m default, got %s", TTLFor("3h"))
	}
}

func TestCircuitBreaker(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	cs := newCacheService(client, config.RedisConfig{Address: "127.0.0.1:1"})
	cs.healthy = true
	cs.lastCheck = time.Now()

	cs.recordFailure()
	cs.recordFailure()
	if !cs.IsHealthy() {
		t.Error("Breaker must stay closed below max failures")
	}
	cs.recordFailure()
	if cs.IsHealthy() {
		t.Fatal("Breaker must open after 3 failures")
	}

	if _, err := cs.Get(context.Background(), "any"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable while open, got %v", err)
	}
	if err := cs.DeletePattern(context.Background(), SymbolBundlesPattern("BTCUSDT")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from DeletePattern while open, got %v", err)
	}
	if err := cs.Delete(context.Background(), LatestAnalysisKey("BTCUSDT")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from Delete while open, got %v", err)
	}

	cs.recordSuccess()
	if stats := cs.GetStats(); !stats.Healthy || stats.FailureCount != 0 {
		t.Errorf("Expected breaker reset, got %+v", stats)
	}
}

func TestNewCacheServiceRequiresEnabled(t *testing.T) {
	if _, err := NewCacheService(config.RedisConfig{}); err == nil {
		t.Error("Expected error for disabled redis")
	}
}
