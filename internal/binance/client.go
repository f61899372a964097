// Package binance provides the market data client feeding the signal engine:
// candles, 24h tickers, funding rates and open interest history from the
// Binance USDⓈ-M futures API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultFuturesBaseURL = "https://fapi.binance.com"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultFuturesBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Kline represents a candlestick
type Kline struct {
	OpenTime                int64   `json:"openTime"`
	Open                    float64 `json:"open,string"`
	High                    float64 `json:"high,string"`
	Low                     float64 `json:"low,string"`
	Close                   float64 `json:"close,string"`
	Volume                  float64 `json:"volume,string"`
	CloseTime               int64   `json:"closeTime"`
	QuoteAssetVolume        float64 `json:"quoteAssetVolume,string"`
	NumberOfTrades          int     `json:"numberOfTrades"`
	TakerBuyBaseAssetVolume float64 `json:"takerBuyBaseAssetVolume,string"`
}

// Ticker24hr represents 24hr ticker price change statistics
type Ticker24hr struct {
	Symbol             string  `json:"symbol"`
	PriceChange        float64 `json:"priceChange,string"`
	PriceChangePercent float64 `json:"priceChangePercent,string"`
	WeightedAvgPrice   float64 `json:"weightedAvgPrice,string"`
	LastPrice          float64 `json:"lastPrice,string"`
	Volume             float64 `json:"volume,string"`
	QuoteVolume        float64 `json:"quoteVolume,string"`
}

// FundingRate holds the latest premium-index funding snapshot
type FundingRate struct {
	Symbol          string  `json:"symbol"`
	LastFundingRate float64 `json:"lastFundingRate,string"`
	NextFundingTime int64   `json:"nextFundingTime"`
	Time            int64   `json:"time"`
}

// OpenInterestPoint is one sample from the open interest history
type OpenInterestPoint struct {
	Symbol          string  `json:"symbol"`
	SumOpenInterest float64 `json:"sumOpenInterest,string"`
	Timestamp       int64   `json:"timestamp"`
}

// GetKlines fetches candlestick data, oldest first
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/fapi/v1/klines", params)
	if err != nil {
		return nil, err
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	klines := make([]Kline, len(rawKlines))
	for i, raw := range rawKlines {
		if len(raw) < 10 {
			return nil, fmt.Errorf("malformed kline row %d", i)
		}
		klines[i] = Kline{
			OpenTime:                parseTimestamp(raw[0]),
			Open:                    parseFloat(raw[1]),
			High:                    parseFloat(raw[2]),
			Low:                     parseFloat(raw[3]),
			Close:                   parseFloat(raw[4]),
			Volume:                  parseFloat(raw[5]),
			CloseTime:               parseTimestamp(raw[6]),
			QuoteAssetVolume:        parseFloat(raw[7]),
			NumberOfTrades:          int(parseFloat(raw[8])),
			TakerBuyBaseAssetVolume: parseFloat(raw[9]),
		}
	}

	return klines, nil
}

// GetTicker24hr fetches 24hr ticker statistics for one symbol
func (c *Client) GetTicker24hr(ctx context.Context, symbol string) (*Ticker24hr, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.get(ctx, "/fapi/v1/ticker/24hr", params)
	if err != nil {
		return nil, err
	}

	var ticker Ticker24hr
	if err := json.Unmarshal(body, &ticker); err != nil {
		return nil, fmt.Errorf("error parsing ticker: %w", err)
	}
	return &ticker, nil
}

// GetFundingRate fetches the latest funding rate via the premium index endpoint
func (c *Client) GetFundingRate(ctx context.Context, symbol string) (*FundingRate, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.get(ctx, "/fapi/v1/premiumIndex", params)
	if err != nil {
		return nil, err
	}

	var fr FundingRate
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("error parsing funding rate: %w", err)
	}
	return &fr, nil
}

// GetOpenInterestHistory fetches open interest samples, oldest first
func (c *Client) GetOpenInterestHistory(ctx context.Context, symbol, period string, limit int) ([]OpenInterestPoint, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("period", period)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/futures/data/openInterestHist", params)
	if err != nil {
		return nil, err
	}

	var points []OpenInterestPoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("error parsing open interest history: %w", err)
	}
	return points, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func parseFloat(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case float64:
		return val
	default:
		return 0
	}
}

func parseTimestamp(v interface{}) int64 {
	if f, ok := v.(float64); ok {
		return int64(f)
	}
	return 0
}
