package exchanges

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tantralabs/krypto/logger"
	"github.com/tantralabs/krypto/models"
)

// BinanceStreamURL is the public spot websocket endpoint.
const BinanceStreamURL = "wss://stream.binance.com:9443"

type klineEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Kline  struct {
			OpenTime  int64  `json:"t"`
			CloseTime int64  `json:"T"`
			Interval  string `json:"i"`
			Open      string `json:"o"`
			High      string `json:"h"`
			Low       string `json:"l"`
			Close     string `json:"c"`
			Volume    string `json:"v"`
			Closed    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

func (e klineEvent) candle() (models.Candle, error) {
	k := e.Data.Kline
	c := models.Candle{OpenTime: k.OpenTime, CloseTime: k.CloseTime}
	for _, f := range []struct {
		raw string
		dst *float64
	}{{k.Open, &c.Open}, {k.High, &c.High}, {k.Low, &c.Low}, {k.Close, &c.Close}, {k.Volume, &c.Volume}} {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return c, err
		}
		*f.dst = v
	}
	return c, nil
}

func streamKey(symbol string, interval models.Interval) string {
	return strings.ToUpper(symbol) + "@" + interval.String()
}

// Stream keeps the latest closed kline of each subscribed symbol from the Binance
// websocket. History and misses fall back to the REST client.
type Stream struct {
	*Client
	URL            string
	ReconnectDelay time.Duration
	PingInterval   time.Duration

	mu     sync.RWMutex
	latest map[string]models.Candle
}

func NewStream(client *Client, url string) *Stream {
	if url == "" {
		url = BinanceStreamURL
	}
	return &Stream{
		Client:         client,
		URL:            url,
		ReconnectDelay: 5 * time.Second,
		PingInterval:   time.Minute,
		latest:         map[string]models.Candle{},
	}
}

func (s *Stream) endpoint(symbols []string, interval models.Interval) string {
	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = strings.ToLower(sym) + "@kline_" + interval.String()
	}
	return s.URL + "/stream?streams=" + strings.Join(streams, "/")
}

// Run subscribes to the kline streams of symbols and reconnects until ctx is done.
func (s *Stream) Run(ctx context.Context, symbols []string, interval models.Interval) error {
	for {
		err := s.listen(ctx, symbols, interval)
		if ctx.Err() != nil {
			return nil
		}
		logger.Warnf("Kline stream dropped: %v, reconnecting in %s", err, s.ReconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.ReconnectDelay):
		}
	}
}

func (s *Stream) listen(ctx context.Context, symbols []string, interval models.Interval) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.endpoint(symbols, interval), nil)
	if err != nil {
		return &models.ExternalSourceError{Source: "binance stream", Err: err}
	}
	defer conn.Close()
	logger.Infof("Subscribed to %d kline streams on %s", len(symbols), interval)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(s.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			}
		}
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := s.handle(b); err != nil {
			logger.Debugf("Ignoring kline frame: %v", err)
		}
	}
}

func (s *Stream) handle(b []byte) error {
	var e klineEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return err
	}
	if !e.Data.Kline.Closed {
		return nil
	}
	c, err := e.candle()
	if err != nil {
		return err
	}
	key := streamKey(e.Data.Symbol, models.Interval(e.Data.Kline.Interval))
	s.mu.Lock()
	if prev, ok := s.latest[key]; !ok || prev.OpenTime < c.OpenTime {
		s.latest[key] = c
	}
	s.mu.Unlock()
	return nil
}

// Latest returns the streamed candle when it is the last closed one, otherwise asks REST.
func (s *Stream) Latest(ctx context.Context, symbol string, interval models.Interval) (models.Candle, error) {
	s.mu.RLock()
	c, ok := s.latest[streamKey(symbol, interval)]
	s.mu.RUnlock()
	step := interval.Millis()
	if ok && step > 0 && c.OpenTime == time.Now().UnixMilli()/step*step-step {
		return c, nil
	}
	if s.Client == nil {
		return models.Candle{}, &models.ExternalSourceError{Source: "binance stream", Err: fmt.Errorf("no closed %s %s candle yet", symbol, interval)}
	}
	return s.Client.Latest(ctx, symbol, interval)
}
