package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"drummond-geometry/internal/auth"
	"drummond-geometry/internal/confluence"
	"drummond-geometry/internal/logging"
	"drummond-geometry/internal/market"
	"drummond-geometry/internal/scanner"
)

// Analyzer is the analysis engine surface the API exposes
type Analyzer interface {
	AnalyzeSymbol(ctx context.Context, symbol string) (*confluence.MultiTimeframeAnalysis, error)
	AnalyzeSeries(ctx context.Context, symbol string, series map[market.Timeframe][]market.Bar) (*confluence.MultiTimeframeAnalysis, error)
	Latest(ctx context.Context, symbol string) (*confluence.MultiTimeframeAnalysis, error)
	Invalidate(ctx context.Context, symbol string) error
}

// ScanSource exposes the most recent scanner cycle
type ScanSource interface {
	GetLastResult() *scanner.ScanResult
}

// HealthChecker reports the health of a backing service
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	analyzer   Analyzer
	scans      ScanSource
	db         HealthChecker
	jwtManager *auth.JWTManager
	hub        *WSHub
	config     ServerConfig
	logger     *logging.Logger
	startedAt  time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	analyzer Analyzer,
	scans ScanSource, // Can be nil if the scanner is disabled
	db HealthChecker, // Can be nil if the database is disabled
	jwtManager *auth.JWTManager, // Can be nil if auth is disabled
	hub *WSHub,
) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 15 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 15 * time.Second
	}

	router := gin.New()

	// Middleware
	router.Use(traceMiddleware())
	router.Use(gin.Recovery())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) == 0 || config.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = config.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length", traceHeader}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:     router,
		analyzer:   analyzer,
		scans:      scans,
		db:         db,
		jwtManager: jwtManager,
		hub:        hub,
		config:     config,
		logger:     logging.WithComponent("api"),
		startedAt:  time.Now(),
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/api/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	// API routes (protected when auth is enabled)
	api := s.router.Group("/api")
	if s.jwtManager != nil {
		api.Use(auth.Middleware(s.jwtManager))
	}

	analysisGroup := api.Group("/analysis")
	{
		analysisGroup.POST("", s.handleAnalyzeSeries)
		analysisGroup.GET("/:symbol", s.handleAnalyzeSymbol)
		analysisGroup.GET("/:symbol/latest", s.handleLatestAnalysis)
	}

	api.GET("/scan/latest", s.handleLatestScan)
	if s.jwtManager != nil {
		api.DELETE("/cache/:symbol", auth.RequireScope(auth.ScopeAdmin), s.handleInvalidateCache)
	} else {
		api.DELETE("/cache/:symbol", s.handleInvalidateCache)
	}
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", addr, "auth", s.jwtManager != nil)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	database := "disabled"
	if s.db != nil {
		database = "healthy"
		if err := s.db.HealthCheck(ctx); err != nil {
			logging.FromContext(c.Request.Context()).Warn("Database health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"database":          database,
		"websocket_clients": s.hub.GetClientCount(),
		"uptime":            time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
