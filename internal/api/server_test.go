package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/auth"
	"drummond-geometry/internal/confluence"
	"drummond-geometry/internal/engine"
	"drummond-geometry/internal/market"
	"drummond-geometry/internal/scanner"
)

type fakeAnalyzer struct {
	series      map[market.Timeframe][]market.Bar
	err         error
	invalidated []string
	invalidErr  error
}

func (f *fakeAnalyzer) result(symbol string) *confluence.MultiTimeframeAnalysis {
	return &confluence.MultiTimeframeAnalysis{Symbol: symbol, SignalStrength: decimal.RequireFromString("0.5")}
}

func (f *fakeAnalyzer) AnalyzeSymbol(_ context.Context, symbol string) (*confluence.MultiTimeframeAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result(symbol), nil
}

func (f *fakeAnalyzer) AnalyzeSeries(_ context.Context, symbol string, series map[market.Timeframe][]market.Bar) (*confluence.MultiTimeframeAnalysis, error) {
	f.series = series
	if f.err != nil {
		return nil, f.err
	}
	return f.result(symbol), nil
}

func (f *fakeAnalyzer) Latest(_ context.Context, symbol string) (*confluence.MultiTimeframeAnalysis, error) {
	if symbol != "BTCUSDT" {
		return nil, fmt.Errorf("%s: %w", symbol, engine.ErrNotFound)
	}
	return f.result(symbol), nil
}

func (f *fakeAnalyzer) Invalidate(_ context.Context, symbol string) error {
	if f.invalidErr != nil {
		return f.invalidErr
	}
	f.invalidated = append(f.invalidated, symbol)
	return nil
}

type fakeScans struct{ last *scanner.ScanResult }

func (f fakeScans) GetLastResult() *scanner.ScanResult { return f.last }

type fakeDB struct{ err error }

func (f fakeDB) HealthCheck(context.Context) error { return f.err }

func newTestServer(analyzer Analyzer, scans ScanSource, db HealthChecker, jwt *auth.JWTManager) (*Server, *WSHub) {
	gin.SetMode(gin.TestMode)
	hub := NewWSHub(nil)
	return NewServer(ServerConfig{Port: 0}, analyzer, scans, db, jwt, hub), hub
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
	}
	return w, response
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{}, nil, fakeDB{}, nil)
	w, response := do(t, s.Handler(), http.MethodGet, "/api/health", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if response["status"] != "healthy" || response["database"] != "healthy" {
		t.Errorf("Unexpected health response: %v", response)
	}
	if w.Header().Get(traceHeader) == "" {
		t.Error("Expected trace id header")
	}

	s, _ = newTestServer(&fakeAnalyzer{}, nil, fakeDB{err: errors.New("down")}, nil)
	w, _ = do(t, s.Handler(), http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestTraceHeaderIsEchoed(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{}, nil, nil, nil)
	w, _ := do(t, s.Handler(), http.MethodGet, "/api/health", "", map[string]string{traceHeader: "abc-123"})
	if got := w.Header().Get(traceHeader); got != "abc-123" {
		t.Errorf("Expected caller trace id to be reused, got %q", got)
	}
}

func TestAnalyzeSeriesEndpoint(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	s, _ := newTestServer(analyzer, nil, nil, nil)

	body := `{"symbol":"btcusdt","exchange":"binance","timeframes":{"4h":[
		{"timestamp":"2024-01-01T00:00:00Z","open":"100","high":"101","low":"99","close":"100.5","volume":10}
	]}}`
	w, response := do(t, s.Handler(), http.MethodPost, "/api/analysis", body, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %v", w.Code, response)
	}
	bars := analyzer.series[market.TF4h]
	if len(bars) != 1 {
		t.Fatalf("Expected 1 bar forwarded, got %d", len(bars))
	}
	if bars[0].Symbol != "BTCUSDT" || bars[0].Interval != market.TF4h || bars[0].Exchange != "binance" {
		t.Errorf("Bar metadata not filled from request: %+v", bars[0])
	}
	if !bars[0].Close.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("Expected close 100.5, got %s", bars[0].Close)
	}
}

func TestAnalysisErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"insufficient data", fmt.Errorf("wrap: %w", analysis.ErrInsufficientData), http.StatusUnprocessableEntity},
		{"invalid series", fmt.Errorf("wrap: %w", market.ErrInvalidSeries), http.StatusBadRequest},
		{"not found", engine.ErrNotFound, http.StatusNotFound},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(&fakeAnalyzer{err: tt.err}, nil, nil, nil)
			w, response := do(t, s.Handler(), http.MethodGet, "/api/analysis/ethusdt", "", nil)
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if response["error"] != true {
				t.Errorf("Expected error response, got %v", response)
			}
		})
	}
}

func TestBadRequestBody(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{}, nil, nil, nil)
	w, _ := do(t, s.Handler(), http.MethodPost, "/api/analysis", `{"timeframes":{}}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestLatestAnalysisEndpoint(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{}, nil, nil, nil)

	w, response := do(t, s.Handler(), http.MethodGet, "/api/analysis/btcusdt/latest", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	data := response["data"].(map[string]interface{})
	if data["symbol"] != "BTCUSDT" {
		t.Errorf("Expected BTCUSDT, got %v", data["symbol"])
	}

	w, _ = do(t, s.Handler(), http.MethodGet, "/api/analysis/DOGEUSDT/latest", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestLatestScanEndpoint(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{}, nil, nil, nil)
	if w, _ := do(t, s.Handler(), http.MethodGet, "/api/scan/latest", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without scanner, got %d", w.Code)
	}

	s, _ = newTestServer(&fakeAnalyzer{}, fakeScans{}, nil, nil)
	if w, _ := do(t, s.Handler(), http.MethodGet, "/api/scan/latest", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before first scan, got %d", w.Code)
	}

	s, _ = newTestServer(&fakeAnalyzer{}, fakeScans{last: &scanner.ScanResult{ScanID: "scan-1", SymbolsScanned: 2}}, nil, nil)
	w, response := do(t, s.Handler(), http.MethodGet, "/api/scan/latest", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if data := response["data"].(map[string]interface{}); data["scan_id"] != "scan-1" {
		t.Errorf("Expected scan-1, got %v", data["scan_id"])
	}
}

func TestInvalidateCacheEndpoint(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	s, _ := newTestServer(analyzer, nil, nil, nil)

	w, response := do(t, s.Handler(), http.MethodDelete, "/api/cache/btcusdt", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %v", w.Code, response)
	}
	if len(analyzer.invalidated) != 1 || analyzer.invalidated[0] != "BTCUSDT" {
		t.Errorf("Expected BTCUSDT to be invalidated, got %v", analyzer.invalidated)
	}

	s, _ = newTestServer(&fakeAnalyzer{invalidErr: errors.New("redis unavailable")}, nil, nil, nil)
	if w, _ := do(t, s.Handler(), http.MethodDelete, "/api/cache/BTCUSDT", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	jwt, err := auth.NewJWTManager(auth.Config{JWTSecret: "secret"})
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	s, _ := newTestServer(&fakeAnalyzer{}, nil, nil, jwt)

	if w, _ := do(t, s.Handler(), http.MethodGet, "/api/analysis/BTCUSDT/latest", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
	if w, _ := do(t, s.Handler(), http.MethodGet, "/api/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("Health must stay public, got %d", w.Code)
	}

	token, _ := jwt.GenerateAccessToken(auth.ClientClaims{ClientID: "desk"})
	w, _ := do(t, s.Handler(), http.MethodGet, "/api/analysis/BTCUSDT/latest", "", map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", w.Code)
	}

	if w, _ := do(t, s.Handler(), http.MethodDelete, "/api/cache/BTCUSDT", "", map[string]string{"Authorization": "Bearer " + token}); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without admin scope, got %d", w.Code)
	}
	admin, _ := jwt.GenerateAccessToken(auth.ClientClaims{ClientID: "ops", Scopes: []string{auth.ScopeAdmin}})
	if w, _ := do(t, s.Handler(), http.MethodDelete, "/api/cache/BTCUSDT", "", map[string]string{"Authorization": "Bearer " + admin}); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with admin scope, got %d", w.Code)
	}
}

func TestWebSocketReceivesPublishedAnalysis(t *testing.T) {
	s, hub := newTestServer(&fakeAnalyzer{}, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != MessageConnected {
		t.Fatalf("Expected connection confirmation, got %+v (%v)", msg, err)
	}

	// registration happens before the confirmation is flushed
	hub.Publish(&confluence.MultiTimeframeAnalysis{Symbol: "BTCUSDT"})

	msg = WSMessage{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if msg.Type != MessageAnalysis || msg.Symbol != "BTCUSDT" {
		t.Errorf("Unexpected message: %+v", msg)
	}
	if hub.GetClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.GetClientCount())
	}
}
