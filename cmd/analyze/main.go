// Command analyze runs a one-shot evaluation for one or more symbols and
// prints the results as JSON. Useful for eyeballing the pipeline without
// standing up the full server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"fusion-trading-bot/internal/adaptive"
	"fusion-trading-bot/internal/binance"
	"fusion-trading-bot/internal/strategy"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s SYMBOL [SYMBOL...]\n", os.Args[0])
		os.Exit(1)
	}

	baseURL := os.Getenv("BINANCE_BASE_URL")
	if baseURL == "" {
		baseURL = binance.DefaultFuturesBaseURL
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	client := binance.NewClient(baseURL)
	learner := adaptive.NewLearner(adaptive.NewMemoryStore(), logger)
	engine := strategy.NewEngine(client, learner, nil, 0, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	exitCode := 0
	for _, symbol := range os.Args[1:] {
		ev := engine.Evaluate(ctx, symbol)
		if err := enc.Encode(ev); err != nil {
			fmt.Fprintf(os.Stderr, "encoding result for %s: %v\n", symbol, err)
			exitCode = 1
		}
		if ev.Error != "" {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
