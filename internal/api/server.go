// Package api exposes the monitor's state over HTTP: health, recent alerts,
// the latest opportunity ranking, on-demand signal evaluation and a
// websocket feed of live alerts.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"okx-market-monitor/config"
	"okx-market-monitor/internal/alertlog"
	"okx-market-monitor/internal/monitor"
	"okx-market-monitor/internal/scanner"
	"okx-market-monitor/internal/strategy"
)

// SignalSource evaluates the entry rule for one instrument.
type SignalSource interface {
	Generate(instID string) (*strategy.Signal, error)
}

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	monitor    *monitor.Monitor
	scanner    *scanner.Scanner
	generator  SignalSource
	repo       *alertlog.Repository // nil when persistence is disabled
	hub        *WSHub
	cfg        config.ServerConfig
	logger     zerolog.Logger
	startedAt  time.Time
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	mon *monitor.Monitor,
	sc *scanner.Scanner,
	generator SignalSource,
	repo *alertlog.Repository,
	hub *WSHub,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:    router,
		monitor:   mon,
		scanner:   sc,
		generator: generator,
		repo:      repo,
		hub:       hub,
		cfg:       cfg,
		logger:    logger.With().Str("component", "APIServer").Logger(),
		startedAt: time.Now(),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/alerts", s.handleAlerts)
		v1.GET("/opportunities", s.handleOpportunities)
		v1.GET("/signals", s.handleSignalHistory)
		v1.GET("/signals/:symbol", s.handleSignal)
		v1.POST("/scan", s.handleScan)
	}
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server in the background.
func (s *Server) Start() {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server failed")
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startedAt).String(),
		"ws_clients": s.hub.ClientCount(),
	})
}

// handleAlerts returns recent alerts, preferring the persistent log and
// falling back to the latest in-memory cycle.
func (s *Server) handleAlerts(c *gin.Context) {
	if s.repo != nil {
		records, err := s.repo.ListRecentAlerts(c.Request.Context(), 100)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to list alerts")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alerts"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": records})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": s.monitor.LastAlerts()})
}

func (s *Server) handleOpportunities(c *gin.Context) {
	result := s.scanner.LastResult()
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"opportunities": []any{}, "scanned": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"opportunities":   result.Opportunities,
		"scanned":         true,
		"scan_time":       result.StartTime,
		"symbols_scanned": result.SymbolsScanned,
	})
}

// handleSignalHistory returns recently persisted signals, oldest entries
// dropping off first. Empty when persistence is disabled.
func (s *Server) handleSignalHistory(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusOK, gin.H{"signals": []any{}})
		return
	}
	records, err := s.repo.ListRecentSignals(c.Request.Context(), 100)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list signals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": records})
}

// handleSignal evaluates the entry rule for one symbol on demand.
func (s *Server) handleSignal(c *gin.Context) {
	symbol := c.Param("symbol")

	signal, err := s.generator.Generate(symbol)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("On-demand signal evaluation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "signal evaluation failed"})
		return
	}
	if signal == nil {
		c.JSON(http.StatusOK, gin.H{"symbol": symbol, "signal": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "signal": signal})
}

// handleScan triggers an immediate opportunity scan.
func (s *Server) handleScan(c *gin.Context) {
	opportunities := s.scanner.Scan()
	c.JSON(http.StatusOK, gin.H{"opportunities": opportunities})
}
