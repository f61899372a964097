package binance

import (
	"context"
)

// StreamingProvider serves klines from a live websocket stream and falls back
// to REST when a series is cold or short. Funding and open interest always go
// through REST; the exchange has no stream for the history endpoints.
type StreamingProvider struct {
	stream *KlineStream
	rest   *Client
}

// NewStreamingProvider wraps a running stream with a REST fallback
func NewStreamingProvider(stream *KlineStream, rest *Client) *StreamingProvider {
	return &StreamingProvider{stream: stream, rest: rest}
}

// GetKlines returns streamed candles when the rolling window is deep enough,
// otherwise fetches from REST and seeds the stream with the result.
func (p *StreamingProvider) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	candles := p.stream.Candles(symbol, interval)
	if len(candles) >= limit {
		return candles[len(candles)-limit:], nil
	}

	klines, err := p.rest.GetKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	p.stream.Seed(symbol, interval, klines)
	return klines, nil
}

func (p *StreamingProvider) GetFundingRate(ctx context.Context, symbol string) (*FundingRate, error) {
	return p.rest.GetFundingRate(ctx, symbol)
}

func (p *StreamingProvider) GetOpenInterestHistory(ctx context.Context, symbol, period string, limit int) ([]OpenInterestPoint, error) {
	return p.rest.GetOpenInterestHistory(ctx, symbol, period, limit)
}
