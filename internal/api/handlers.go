package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fusion-trading-bot/internal/cache"
	"fusion-trading-bot/internal/classifier"
	"fusion-trading-bot/internal/duration"
	"fusion-trading-bot/internal/strategy"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"time":       time.Now().UTC(),
		"ws_clients": s.hub.ClientCount(),
	})
}

// handleGetAnalysis serves the cached evaluation when one is fresh enough,
// falling back to a live run.
func (s *Server) handleGetAnalysis(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))

	if s.cache != nil {
		if ev, err := s.cache.GetEvaluation(c.Request.Context(), symbol); err == nil {
			c.JSON(http.StatusOK, gin.H{"evaluation": ev, "cached": true})
			return
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("cache lookup failed")
		}
	}

	s.runAnalysis(c, symbol)
}

// handleAnalyze always runs a fresh evaluation
func (s *Server) handleAnalyze(c *gin.Context) {
	s.runAnalysis(c, normalizeSymbol(c.Param("symbol")))
}

func (s *Server) runAnalysis(c *gin.Context, symbol string) {
	ev := s.engine.Evaluate(c.Request.Context(), symbol)
	if ev.Decision != nil && ev.Decision.Signal == strategy.ActionError {
		c.JSON(http.StatusBadGateway, gin.H{"evaluation": ev, "error": ev.Error})
		return
	}

	ctx := c.Request.Context()
	if s.cache != nil {
		s.cache.SetEvaluation(ctx, ev)
	}
	if s.evalStore != nil {
		if err := s.evalStore.Save(ctx, ev); err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("failed to persist evaluation")
		}
	}
	s.hub.BroadcastEvaluation(ev)

	c.JSON(http.StatusOK, gin.H{"evaluation": ev, "cached": false})
}

// handleTicker proxies 24h ticker statistics for a symbol
func (s *Server) handleTicker(c *gin.Context) {
	if s.tickers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ticker source not configured"})
		return
	}

	symbol := normalizeSymbol(c.Param("symbol"))
	ticker, err := s.tickers.GetTicker24hr(c.Request.Context(), symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("ticker fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "ticker unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticker": ticker})
}

func (s *Server) handleRecentEvaluations(c *gin.Context) {
	if s.evalStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "evaluation history requires a database"})
		return
	}

	symbol := normalizeSymbol(c.Param("symbol"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := s.evalStore.Recent(c.Request.Context(), symbol, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("failed to load evaluations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load evaluations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "evaluations": records})
}

// handleWeights returns the factor weight table for a symbol, both the static
// category baseline and the learner-adjusted variant.
func (s *Server) handleWeights(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))
	marketType := parseMarketType(c.DefaultQuery("market_type", "TREND"))
	timeframe := classifier.Timeframe1H
	if c.Query("timeframe") == "15m" {
		timeframe = classifier.Timeframe15M
	}

	category := classifier.Classify(symbol)
	base := classifier.WeightsForSymbol(symbol, marketType, timeframe)
	adjusted, err := s.engine.AdjustedWeights(c.Request.Context(), symbol, base)
	if err != nil {
		adjusted = base
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":      symbol,
		"category":    category.Name(),
		"market_type": string(marketType),
		"timeframe":   string(timeframe),
		"base":        base,
		"adjusted":    adjusted,
	})
}

// handlePolicy returns the duration/risk policy applied to a symbol
func (s *Server) handlePolicy(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))
	marketType := parseMarketType(c.DefaultQuery("market_type", "TREND"))

	cfg := duration.GetPositionConfig(symbol, marketType)
	c.JSON(http.StatusOK, gin.H{
		"symbol":             symbol,
		"category":           classifier.Classify(symbol).Name(),
		"market_type":        string(marketType),
		"max_duration_hours": cfg.MaxDurationHours,
		"min_duration_hours": cfg.MinDurationHours,
		"time_stop_minutes":  cfg.TimeStopMinutes,
		"profit_target_atr":  cfg.ProfitTargetATR,
		"stop_loss_atr":      cfg.StopLossATR,
	})
}

type positionCheckRequest struct {
	Symbol       string    `json:"symbol" binding:"required"`
	Side         string    `json:"side" binding:"required"`
	EntryPrice   float64   `json:"entry_price" binding:"required"`
	EntryTime    time.Time `json:"entry_time" binding:"required"`
	CurrentPrice float64   `json:"current_price" binding:"required"`
	MarketType   string    `json:"market_type"`
}

// handlePositionCheck evaluates an open position against the max-duration and
// time-stop rules of its category.
func (s *Server) handlePositionCheck(c *gin.Context) {
	var req positionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side := duration.SideLong
	if strings.EqualFold(req.Side, "SHORT") || strings.EqualFold(req.Side, "SELL") {
		side = duration.SideShort
	}

	pos := duration.OpenPosition{
		Symbol:     normalizeSymbol(req.Symbol),
		Side:       side,
		EntryPrice: req.EntryPrice,
		EntryTime:  req.EntryTime,
		MarketType: parseMarketType(req.MarketType),
	}

	now := time.Now()
	maxDur := duration.CheckMaxDuration(pos, now)
	timeStop := duration.CheckTimeStop(pos, req.CurrentPrice, now)

	shouldClose := maxDur.Exceeded || timeStop.Triggered
	c.JSON(http.StatusOK, gin.H{
		"symbol":       pos.Symbol,
		"should_close": shouldClose,
		"max_duration": gin.H{
			"exceeded":   maxDur.Exceeded,
			"warning":    maxDur.Warning,
			"hours_held": maxDur.HoursHeld,
			"max_hours":  maxDur.MaxHours,
		},
		"time_stop": gin.H{
			"triggered":       timeStop.Triggered,
			"minutes_held":    timeStop.MinutesHeld,
			"threshold_min":   timeStop.ThresholdMin,
			"unrealized_gain": timeStop.UnrealizedGain,
		},
	})
}

type outcomeRequest struct {
	Symbol    string          `json:"symbol" binding:"required"`
	Triggered map[string]bool `json:"triggered" binding:"required"`
	Win       bool            `json:"win"`
}

// handleRecordOutcome feeds a realized trade result into the adaptive learner
func (s *Server) handleRecordOutcome(c *gin.Context) {
	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	symbol := normalizeSymbol(req.Symbol)
	if err := s.engine.RecordOutcome(c.Request.Context(), symbol, req.Triggered, req.Win); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "recorded": true})
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func parseMarketType(raw string) classifier.MarketType {
	if strings.EqualFold(raw, string(classifier.MarketRange)) {
		return classifier.MarketRange
	}
	return classifier.MarketTrend
}
