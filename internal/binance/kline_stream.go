package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const DefaultFuturesWSBaseURL = "wss://fstream.binance.com"

// klineEvent is the combined-stream kline payload
type klineEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string `json:"e"`
		EventTime int64  `json:"E"`
		Symbol    string `json:"s"`
		Kline     struct {
			StartTime    int64  `json:"t"`
			CloseTime    int64  `json:"T"`
			Interval     string `json:"i"`
			Open         string `json:"o"`
			Close        string `json:"c"`
			High         string `json:"h"`
			Low          string `json:"l"`
			Volume       string `json:"v"`
			Trades       int    `json:"n"`
			IsClosed     bool   `json:"x"`
			QuoteVolume  string `json:"q"`
			TakerBuyVol  string `json:"V"`
			TakerBuyQuot string `json:"Q"`
		} `json:"k"`
	} `json:"data"`
}

// KlineStream maintains live candle series over the futures combined websocket
// stream. Each (symbol, interval) pair keeps a rolling window of candles; the
// in-flight candle is updated in place until the exchange marks it closed.
type KlineStream struct {
	baseURL    string
	maxCandles int
	logger     zerolog.Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	series  map[string][]Kline // "btcusdt@kline_1h" -> candles, oldest first
	streams []string
	done    chan struct{}
}

// NewKlineStream creates a stream keeping up to maxCandles per series
func NewKlineStream(baseURL string, maxCandles int, logger zerolog.Logger) *KlineStream {
	if baseURL == "" {
		baseURL = DefaultFuturesWSBaseURL
	}
	if maxCandles <= 0 {
		maxCandles = 250
	}
	return &KlineStream{
		baseURL:    baseURL,
		maxCandles: maxCandles,
		logger:     logger.With().Str("component", "kline_stream").Logger(),
		series:     make(map[string][]Kline),
		done:       make(chan struct{}),
	}
}

func streamName(symbol, interval string) string {
	return fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), interval)
}

// Subscribe registers a (symbol, interval) pair. Must be called before Start.
func (s *KlineStream) Subscribe(symbol, interval string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = append(s.streams, streamName(symbol, interval))
}

// Seed pre-loads a series from REST history so indicators have enough lookback
// before the stream has accumulated candles of its own.
func (s *KlineStream) Seed(symbol, interval string, klines []Kline) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := streamName(symbol, interval)
	if len(klines) > s.maxCandles {
		klines = klines[len(klines)-s.maxCandles:]
	}
	s.series[key] = append([]Kline(nil), klines...)
}

// Start connects and reads until the context is cancelled, reconnecting with
// backoff on read errors.
func (s *KlineStream) Start(ctx context.Context) error {
	s.mu.RLock()
	streams := strings.Join(s.streams, "/")
	s.mu.RUnlock()

	if streams == "" {
		return fmt.Errorf("no streams subscribed")
	}

	go s.run(ctx, streams)
	return nil
}

func (s *KlineStream) run(ctx context.Context, streams string) {
	defer close(s.done)

	url := fmt.Sprintf("%s/stream?streams=%s", s.baseURL, streams)
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			s.logger.Error().Err(err).Dur("backoff", backoff).Msg("websocket dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		s.logger.Info().Int("streams", strings.Count(streams, "/")+1).Msg("kline stream connected")
		backoff = time.Second

		if err := s.readLoop(ctx, conn); err != nil {
			s.logger.Warn().Err(err).Msg("kline stream disconnected")
		}
		conn.Close()
	}
}

func (s *KlineStream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev klineEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			s.logger.Debug().Err(err).Msg("skipping unparseable message")
			continue
		}
		if ev.Data.EventType != "kline" {
			continue
		}

		s.apply(ev)
	}
}

func (s *KlineStream) apply(ev klineEvent) {
	k := ev.Data.Kline
	candle := Kline{
		OpenTime:                k.StartTime,
		Open:                    mustFloat(k.Open),
		High:                    mustFloat(k.High),
		Low:                     mustFloat(k.Low),
		Close:                   mustFloat(k.Close),
		Volume:                  mustFloat(k.Volume),
		CloseTime:               k.CloseTime,
		QuoteAssetVolume:        mustFloat(k.QuoteVolume),
		NumberOfTrades:          k.Trades,
		TakerBuyBaseAssetVolume: mustFloat(k.TakerBuyVol),
	}

	key := ev.Stream

	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.series[key]
	if n := len(series); n > 0 && series[n-1].OpenTime == candle.OpenTime {
		series[n-1] = candle
	} else {
		series = append(series, candle)
		if len(series) > s.maxCandles {
			series = series[1:]
		}
	}
	s.series[key] = series
}

// Candles returns a copy of the current series for a (symbol, interval) pair,
// oldest first. Returns nil when the series has no data yet.
func (s *KlineStream) Candles(symbol, interval string) []Kline {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[streamName(symbol, interval)]
	if len(series) == 0 {
		return nil
	}
	return append([]Kline(nil), series...)
}

// Done is closed when the read loop has exited
func (s *KlineStream) Done() <-chan struct{} {
	return s.done
}

func mustFloat(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}
