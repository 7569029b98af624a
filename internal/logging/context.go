package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext retrieves the logger from context
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// TraceIDFromContext returns the trace id stored by WithTraceContext, or ""
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// ContextWithTraceID stores a caller-supplied trace ID in ctx
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithTraceContext adds a trace ID to the context and returns a logger with it.
// An existing trace ID in ctx is reused.
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = GenerateTraceID()
	}
	l := FromContext(ctx).WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// AnalysisContext creates a logger context for one symbol/timeframe analysis
func AnalysisContext(symbol, timeframe string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe,
	}).WithComponent("analysis")
}

// PatternContext creates a logger context for pattern detection
func PatternContext(symbol, timeframe, patternType string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":       symbol,
		"timeframe":    timeframe,
		"pattern_type": patternType,
	}).WithComponent("pattern")
}

// ScanContext creates a logger context for one scanner cycle
func ScanContext(cycleID string, symbols int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"cycle_id": cycleID,
		"symbols":  symbols,
	}).WithComponent("scanner")
}

// APIContext creates a logger context for API operations
func APIContext(method, path string, statusCode int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
	}).WithComponent("api")
}

// DatabaseContext creates a logger context for database operations
func DatabaseContext(operation, table string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"table":     table,
	}).WithComponent("database")
}
