package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"drummond-geometry/internal/analysis"
	"drummond-geometry/internal/auth"
	"drummond-geometry/internal/engine"
	"drummond-geometry/internal/logging"
	"drummond-geometry/internal/market"
)

const traceHeader = "X-Trace-ID"

// AnalysisRequest carries caller-supplied bars keyed by timeframe
type AnalysisRequest struct {
	Symbol     string                            `json:"symbol" binding:"required"`
	Exchange   string                            `json:"exchange,omitempty"`
	Timeframes map[market.Timeframe][]market.Bar `json:"timeframes" binding:"required"`
}

// traceMiddleware attaches a trace-scoped logger to each request and logs its outcome
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(traceHeader); id != "" {
			ctx = logging.ContextWithTraceID(ctx, id)
		}
		ctx, _ = logging.WithTraceContext(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(traceHeader, logging.TraceIDFromContext(ctx))

		start := time.Now()
		c.Next()

		l := logging.APIContext(c.Request.Method, c.FullPath(), c.Writer.Status()).
			WithTraceID(logging.TraceIDFromContext(ctx)).
			WithDuration(time.Since(start))
		if client := auth.GetClientID(c); client != "" {
			l = l.WithField("client_id", client)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			l.Error("Request failed")
		} else {
			l.Debug("Request served")
		}
	}
}

// handleAnalyzeSeries analyzes bars posted in the request body
func (s *Server) handleAnalyzeSeries(c *gin.Context) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	symbol := strings.ToUpper(req.Symbol)
	for tf, bars := range req.Timeframes {
		for i := range bars {
			bars[i].Symbol = symbol
			bars[i].Interval = tf
			if bars[i].Exchange == "" {
				bars[i].Exchange = req.Exchange
			}
		}
	}

	result, err := s.analyzer.AnalyzeSeries(c.Request.Context(), symbol, req.Timeframes)
	if err != nil {
		s.analysisError(c, symbol, err)
		return
	}
	successResponse(c, result)
}

// handleAnalyzeSymbol runs a live analysis from the configured bar source
func (s *Server) handleAnalyzeSymbol(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	result, err := s.analyzer.AnalyzeSymbol(c.Request.Context(), symbol)
	if err != nil {
		s.analysisError(c, symbol, err)
		return
	}
	successResponse(c, result)
}

// handleLatestAnalysis returns the most recently stored analysis for a symbol
func (s *Server) handleLatestAnalysis(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	result, err := s.analyzer.Latest(c.Request.Context(), symbol)
	if err != nil {
		s.analysisError(c, symbol, err)
		return
	}
	successResponse(c, result)
}

// handleLatestScan returns the last completed scanner cycle
func (s *Server) handleLatestScan(c *gin.Context) {
	if s.scans == nil {
		errorResponse(c, http.StatusNotFound, "scanner is disabled")
		return
	}
	result := s.scans.GetLastResult()
	if result == nil {
		errorResponse(c, http.StatusNotFound, "no scan has completed yet")
		return
	}
	successResponse(c, result)
}

// handleInvalidateCache drops cached bundles and the cached latest analysis of a symbol
func (s *Server) handleInvalidateCache(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if err := s.analyzer.Invalidate(c.Request.Context(), symbol); err != nil {
		logging.FromContext(c.Request.Context()).Warn("Cache invalidation failed", "symbol", symbol, "error", err)
		errorResponse(c, http.StatusServiceUnavailable, "cache invalidation failed")
		return
	}
	successResponse(c, gin.H{"symbol": symbol, "invalidated": true})
}

// analysisError maps engine errors onto HTTP status codes
func (s *Server) analysisError(c *gin.Context, symbol string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrInvalidSeries):
		status = http.StatusBadRequest
	case errors.Is(err, analysis.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	}

	l := logging.FromContext(c.Request.Context())
	if status == http.StatusInternalServerError {
		l.Error("Analysis request failed", "symbol", symbol, "error", err)
		errorResponse(c, status, "analysis failed")
		return
	}
	l.Debug("Analysis request rejected", "symbol", symbol, "status", status, "error", err)
	errorResponse(c, status, err.Error())
}
