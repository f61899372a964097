package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fusion-trading-bot/config"
	"fusion-trading-bot/internal/adaptive"
	"fusion-trading-bot/internal/api"
	"fusion-trading-bot/internal/auth"
	"fusion-trading-bot/internal/binance"
	"fusion-trading-bot/internal/cache"
	"fusion-trading-bot/internal/database"
	"fusion-trading-bot/internal/strategy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg.Logging)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence is optional: without a database the learner runs on an
	// in-memory store and evaluation history is not kept.
	var (
		factorStore adaptive.Store = adaptive.NewMemoryStore()
		evalStore   *database.EvaluationStore
	)
	if cfg.Database.Enabled {
		db, err := database.NewDB(cfg.Database.Config, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		factorStore = database.NewFactorStore(db)
		evalStore = database.NewEvaluationStore(db)
	} else {
		logger.Warn().Msg("database disabled, learned weights will not survive restarts")
	}

	var cacheService *cache.CacheService
	if cfg.Redis.Enabled {
		cacheService, err = cache.NewCacheService(cfg.Redis, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("cache unavailable, evaluations will not be cached")
			cacheService = nil
		} else {
			defer cacheService.Close()
		}
	}

	client := binance.NewClient(cfg.Binance.BaseURL)

	// With streaming enabled the engine reads candles from the live
	// websocket window and only falls back to REST on cold series.
	var provider strategy.MarketDataProvider = client
	if cfg.Binance.StreamKlines {
		stream := binance.NewKlineStream(cfg.Binance.WSBaseURL, 250, logger)
		for _, symbol := range cfg.Engine.Symbols {
			for _, interval := range []string{"4h", "1h", "15m"} {
				stream.Subscribe(symbol, interval)
			}
		}
		if err := stream.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("kline stream unavailable, using REST only")
		} else {
			provider = binance.NewStreamingProvider(stream, client)
		}
	}

	learner := adaptive.NewLearner(factorStore, logger)
	engine := strategy.NewEngine(provider, learner, cfg.Engine.Fusion, cfg.Engine.MaxLossAmount, logger)

	var jwtManager *auth.JWTManager
	if cfg.Auth.Enabled {
		jwtManager = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}
	server := api.NewServer(cfg.Server, engine, client, cacheService, evalStore, jwtManager, logger)

	go runEvaluationLoop(ctx, cfg, engine, server, cacheService, evalStore, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("server stopped")
			cancel()
		}
	}()

	waitForShutdown(ctx, logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}

// runEvaluationLoop periodically evaluates every configured symbol and pushes
// results to subscribers, the cache and the history store.
func runEvaluationLoop(ctx context.Context, cfg *config.Config, engine *strategy.Engine,
	server *api.Server, cacheService *cache.CacheService, evalStore *database.EvaluationStore,
	logger zerolog.Logger) {

	interval := time.Duration(cfg.Engine.EvalIntervalMinutes) * time.Minute
	log := logger.With().Str("component", "eval_loop").Logger()
	log.Info().Strs("symbols", cfg.Engine.Symbols).Dur("interval", interval).Msg("evaluation loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	evaluateAll := func() {
		for _, symbol := range cfg.Engine.Symbols {
			if ctx.Err() != nil {
				return
			}
			ev := engine.Evaluate(ctx, symbol)
			if cacheService != nil {
				cacheService.SetEvaluation(ctx, ev)
			}
			if evalStore != nil {
				if err := evalStore.Save(ctx, ev); err != nil {
					log.Error().Err(err).Str("symbol", symbol).Msg("failed to persist evaluation")
				}
			}
			server.Hub().BroadcastEvaluation(ev)
		}
	}

	evaluateAll()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("evaluation loop stopped")
			return
		case <-ticker.C:
			evaluateAll()
		}
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func waitForShutdown(ctx context.Context, logger zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case <-ctx.Done():
	}
}
