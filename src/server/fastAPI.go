package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"candle-relay/src/analysis"
	"candle-relay/src/helpers"
	"candle-relay/src/logger"
	"candle-relay/src/market"
	"candle-relay/src/models"
	"candle-relay/src/telemetry"
	"candle-relay/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config *models.MConfig
	Logger *logger.Logger

	engine     *gin.Engine
	httpServer *http.Server
	market     *market.MarketService
	hub        *Hub
	tracer     *telemetry.Tracer
	startedAt  time.Time
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, ms *market.MarketService, tracer *telemetry.Tracer, l *logger.Logger) *FastAPIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}
	if tracer == nil {
		tracer = telemetry.NewNopTracer()
	}

	s := &FastAPIServer{
		Config:    cfg,
		Logger:    l,
		engine:    gin.New(),
		market:    ms,
		hub:       NewHub(ms, HubOptionsFromConfig(cfg.Hub, cfg.Market.DefaultQueryLimit), l.Named("Hub")),
		tracer:    tracer,
		startedAt: time.Now(),
	}

	s.engine.Use(gin.Recovery())

	// CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// Hub returns the websocket hub so it can be registered as an event sink.
func (s *FastAPIServer) Hub() *Hub {
	return s.hub
}

// Handler exposes the router, mainly for tests.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// Ingest
	s.engine.POST("/tick", s.postTick)
	s.engine.POST("/candle", s.postCandle)
	s.engine.POST("/candles", s.postCandles)
	s.engine.POST("/signal", s.postSignal)

	// Query
	s.engine.GET("/tick", s.getTick)
	s.engine.GET("/candles", s.getCandles)
	s.engine.GET("/health", s.getHealth)

	// REST API endpoints
	s.engine.GET("/api/metrics", s.getMetrics)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/stats", s.getStats)
	s.engine.GET("/api/health", s.getHealth)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and serves HTTP until Stop. Returns nil on clean shutdown.
func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.hub.Start()

	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.hub.Stop()
	return err
}

// -----------------------------------------------------------------------------
// Ingest Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) bindPayload(c *gin.Context) (map[string]interface{}, bool) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return nil, false
	}
	return body, true
}

// respondIngest writes {ok} with a status derived from the error type.
func respondIngest(c *gin.Context, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	status := http.StatusBadRequest
	var stale *helpers.StaleDataError
	if errors.As(err, &stale) {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postTick(c *gin.Context) {
	body, ok := s.bindPayload(c)
	if !ok {
		return
	}

	_, span := s.tracer.StartSpan(c.Request.Context(), "ingest.tick", "transport", "http")
	in, err := helpers.ParseTickPayload(body)
	if err == nil {
		_, err = s.market.SubmitTick(in)
	}
	telemetry.EndSpan(span, err)

	respondIngest(c, err)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postCandle(c *gin.Context) {
	body, ok := s.bindPayload(c)
	if !ok {
		return
	}

	_, span := s.tracer.StartSpan(c.Request.Context(), "ingest.candle", "transport", "http")
	in, err := helpers.ParseCandlePayload(body)
	if err == nil {
		_, err = s.market.SubmitCandle(in)
	}
	telemetry.EndSpan(span, err)

	respondIngest(c, err)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postCandles(c *gin.Context) {
	body, ok := s.bindPayload(c)
	if !ok {
		return
	}

	_, span := s.tracer.StartSpan(c.Request.Context(), "ingest.candles", "transport", "http")
	in, err := helpers.ParseCandleBatchPayload(body)
	var stored []models.MCandle
	if err == nil {
		stored, err = s.market.SubmitCandleBatch(in)
	}
	telemetry.EndSpan(span, err)

	if err != nil {
		respondIngest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(stored)})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postSignal(c *gin.Context) {
	body, ok := s.bindPayload(c)
	if !ok {
		return
	}

	_, span := s.tracer.StartSpan(c.Request.Context(), "ingest.signal", "transport", "http")
	in, err := helpers.ParseSignalPayload(body)
	if err == nil {
		_, err = s.market.SubmitSignal(in)
	}
	telemetry.EndSpan(span, err)

	respondIngest(c, err)
}

// -----------------------------------------------------------------------------
// Query Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getTick(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusOK, gin.H{"ok": true, "ticks": s.market.QueryLatestTicks()})
		return
	}

	tick, ok := s.market.QueryLatestTick(symbol)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ok": true, "tick": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tick": tick})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getCandles(c *gin.Context) {
	symbol, tf := c.Query("symbol"), c.Query("tf")
	if symbol == "" || tf == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "symbol and tf required"})
		return
	}

	limit := s.Config.Market.DefaultQueryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	candles, err := s.market.QuerySeries(symbol, tf, limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"symbol":  utils.NormalizeSymbol(symbol),
		"tf":      strings.ToLower(strings.TrimSpace(tf)),
		"candles": candles,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"status":      "ok",
		"connections": s.hub.Metrics().Connections,
		"symbols":     s.market.SymbolCount(),
		"uptime_s":    int64(time.Since(s.startedAt).Seconds()),
		"time":        time.Now().UnixMilli(),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ingest": s.market.Metrics(),
		"hub":    s.hub.Metrics(),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timeframes":           s.market.AggregateTimeframes(),
		"supported_timeframes": analysis.GetAllTimeframeNames(),
		"max_query_limit":      s.Config.Market.MaxQueryLimit,
		"series_capacity":      s.Config.Market.SeriesCapacity,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.market.SeriesStats())
}

// -----------------------------------------------------------------------------
// WebSocket Handler
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := NewClient(s.hub, conn)
	s.Logger.Info("Client %s connected from %s", client.ID, c.ClientIP())
	client.Serve()
}
