// Package api exposes the signal engine over HTTP and WebSocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fusion-trading-bot/internal/auth"
	"fusion-trading-bot/internal/binance"
	"fusion-trading-bot/internal/cache"
	"fusion-trading-bot/internal/database"
	"fusion-trading-bot/internal/strategy"
)

// RateLimiter provides simple in-memory rate limiting per client. It exists
// to keep a burst of analyze calls from hammering the exchange API.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Config holds server configuration
type Config struct {
	Port           int      `json:"port"`
	Host           string   `json:"host"`
	ProductionMode bool     `json:"production_mode"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// Server is the HTTP API server around one signal engine
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     Config

	engine    *strategy.Engine
	tickers   TickerSource              // nil disables the ticker endpoint
	cache     *cache.CacheService       // nil disables caching
	evalStore *database.EvaluationStore // nil disables history
	jwt       *auth.JWTManager          // nil disables authentication
	hub       *WSHub
	limiter   *RateLimiter

	logger zerolog.Logger
}

// TickerSource serves 24h ticker statistics straight from the exchange
type TickerSource interface {
	GetTicker24hr(ctx context.Context, symbol string) (*binance.Ticker24hr, error)
}

// NewServer creates the API server and registers all routes
func NewServer(cfg Config, engine *strategy.Engine, tickers TickerSource,
	cacheService *cache.CacheService, evalStore *database.EvaluationStore,
	jwtManager *auth.JWTManager, logger zerolog.Logger) *Server {

	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:    gin.New(),
		config:    cfg,
		engine:    engine,
		tickers:   tickers,
		cache:     cacheService,
		evalStore: evalStore,
		jwt:       jwtManager,
		hub:       NewWSHub(logger),
		limiter:   NewRateLimiter(30, time.Minute),
		logger:    logger.With().Str("component", "api").Logger(),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if !corsConfig.AllowAllOrigins {
		corsConfig.AllowCredentials = true
	}
	s.router.Use(cors.New(corsConfig))

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	v1 := s.router.Group("/api/v1")
	if s.jwt != nil {
		v1.Use(auth.Middleware(s.jwt))
	}

	v1.GET("/analyze/:symbol", s.rateLimited(), s.handleGetAnalysis)
	v1.POST("/analyze/:symbol", s.rateLimited(), s.handleAnalyze)
	v1.GET("/ticker/:symbol", s.rateLimited(), s.handleTicker)
	v1.GET("/evaluations/:symbol", s.handleRecentEvaluations)
	v1.GET("/weights/:symbol", s.handleWeights)
	v1.GET("/policy/:symbol", s.handlePolicy)
	v1.POST("/positions/check", s.handlePositionCheck)
	v1.POST("/outcomes", s.handleRecordOutcome)
}

// rateLimited throttles per client IP on routes that reach the exchange
func (s *Server) rateLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, slow down",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Hub exposes the WebSocket hub so the engine loop can broadcast evaluations
func (s *Server) Hub() *WSHub {
	return s.hub
}

// Start runs the hub and the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	go s.hub.Run()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info().Str("address", addr).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info().Msg("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
