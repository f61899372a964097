// Package cache provides Redis-backed caching for evaluation results with
// graceful degradation: when Redis is down the cache reports misses and the
// caller recomputes, it never blocks the pipeline.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fusion-trading-bot/internal/strategy"
)

// ErrCacheMiss is returned when the key is absent or the cache is degraded
var ErrCacheMiss = errors.New("cache miss")

// DefaultEvaluationTTL keeps cached evaluations fresh against candle churn
const DefaultEvaluationTTL = 5 * time.Minute

const evaluationKey = "evaluation:%s"

// Config holds Redis configuration
type Config struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// CacheService wraps the Redis client with a small circuit breaker. Repeated
// failures mark the service unhealthy; a later successful ping recovers it.
type CacheService struct {
	client *redis.Client
	logger zerolog.Logger
	ttl    time.Duration

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
}

// NewCacheService connects to Redis. A failed initial connection returns the
// service in degraded mode rather than an error.
func NewCacheService(cfg Config, logger zerolog.Logger) (*CacheService, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	cs := &CacheService{
		client:        client,
		logger:        logger.With().Str("component", "cache").Logger(),
		ttl:           DefaultEvaluationTTL,
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		cs.logger.Warn().Err(err).Msg("initial Redis connection failed, running degraded")
		return cs, nil
	}

	cs.healthy = true
	cs.lastCheck = time.Now()
	cs.logger.Info().Str("address", cfg.Address).Msg("connected to Redis")
	return cs, nil
}

// Healthy reports whether the cache is currently usable, re-probing the
// connection once the check interval has elapsed.
func (cs *CacheService) Healthy(ctx context.Context) bool {
	cs.mu.RLock()
	healthy := cs.healthy
	lastCheck := cs.lastCheck
	cs.mu.RUnlock()

	if healthy || time.Since(lastCheck) < cs.checkInterval {
		return healthy
	}

	// Recovery probe
	if err := cs.client.Ping(ctx).Err(); err != nil {
		cs.mu.Lock()
		cs.lastCheck = time.Now()
		cs.mu.Unlock()
		return false
	}

	cs.mu.Lock()
	cs.healthy = true
	cs.failureCount = 0
	cs.lastCheck = time.Now()
	cs.mu.Unlock()
	cs.logger.Info().Msg("Redis connection recovered")
	return true
}

func (cs *CacheService) recordFailure(err error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.failureCount++
	if cs.healthy && cs.failureCount >= cs.maxFailures {
		cs.healthy = false
		cs.lastCheck = time.Now()
		cs.logger.Warn().Err(err).Int("failures", cs.failureCount).
			Msg("Redis degraded, falling back to recomputation")
	}
}

func (cs *CacheService) recordSuccess() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.failureCount = 0
}

// GetEvaluation returns the cached evaluation for a symbol, or ErrCacheMiss.
func (cs *CacheService) GetEvaluation(ctx context.Context, symbol string) (*strategy.Evaluation, error) {
	if !cs.Healthy(ctx) {
		return nil, ErrCacheMiss
	}

	data, err := cs.client.Get(ctx, fmt.Sprintf(evaluationKey, symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		cs.recordSuccess()
		return nil, ErrCacheMiss
	}
	if err != nil {
		cs.recordFailure(err)
		return nil, ErrCacheMiss
	}
	cs.recordSuccess()

	var ev strategy.Evaluation
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decoding cached evaluation: %w", err)
	}
	return &ev, nil
}

// SetEvaluation caches an evaluation under the configured TTL. Failures are
// swallowed after the breaker is notified: caching is best effort.
func (cs *CacheService) SetEvaluation(ctx context.Context, ev *strategy.Evaluation) {
	if !cs.Healthy(ctx) {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		cs.logger.Error().Err(err).Msg("encoding evaluation for cache")
		return
	}

	if err := cs.client.Set(ctx, fmt.Sprintf(evaluationKey, ev.Symbol), data, cs.ttl).Err(); err != nil {
		cs.recordFailure(err)
		return
	}
	cs.recordSuccess()
}

// InvalidateEvaluation drops the cached evaluation for a symbol
func (cs *CacheService) InvalidateEvaluation(ctx context.Context, symbol string) {
	if !cs.Healthy(ctx) {
		return
	}
	if err := cs.client.Del(ctx, fmt.Sprintf(evaluationKey, symbol)).Err(); err != nil {
		cs.recordFailure(err)
	}
}

// Close shuts down the Redis client
func (cs *CacheService) Close() error {
	return cs.client.Close()
}
