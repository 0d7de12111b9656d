package exchanges

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/tantralabs/krypto/data"
	"github.com/tantralabs/krypto/logger"
	"github.com/tantralabs/krypto/models"
	"github.com/tantralabs/krypto/utils"
	"golang.org/x/sync/errgroup"
)

const (
	// BinanceURL is the public spot REST endpoint.
	BinanceURL = "https://api.binance.com"
	// klinesLimit is the most klines one request may return.
	klinesLimit = 1000
	// maxWeight stays under the 6000 per minute request weight limit.
	maxWeight   = 5900
	klineWeight = 2
)

// weightLimiter blocks requests once the per-minute request weight would be exceeded.
type weightLimiter struct {
	mu        sync.Mutex
	weight    int
	lastReset time.Time
}

func (w *weightLimiter) wait(ctx context.Context, weight int) error {
	for {
		w.mu.Lock()
		now := time.Now()
		if now.Sub(w.lastReset) > 61*time.Second {
			w.weight, w.lastReset = 0, now
		}
		if w.weight+weight < maxWeight {
			w.weight += weight
			w.mu.Unlock()
			return nil
		}
		resume := w.lastReset.Add(61 * time.Second)
		w.mu.Unlock()
		logger.Warnf("Binance request weight limit reached, waiting until %s", resume.Format(time.RFC3339))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(resume)):
		}
	}
}

// Client is a Binance REST klines client. Failed requests are retried with
// exponential backoff and surface as ExternalSourceError.
type Client struct {
	BaseURL    string
	HTTP       *http.Client
	Attempts   int
	RetryDelay time.Duration
	Parallel   int
	APIKey     string // optional, raises the account's rate limits

	limiter *weightLimiter
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = BinanceURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
		Attempts:   5,
		RetryDelay: 500 * time.Millisecond,
		Parallel:   4,
		limiter:    &weightLimiter{lastReset: time.Now()},
	}
}

// parseKline decodes one kline array:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(raw []json.RawMessage) (models.Candle, error) {
	if len(raw) < 7 {
		return models.Candle{}, fmt.Errorf("kline has %d fields", len(raw))
	}
	var c models.Candle
	if err := json.Unmarshal(raw[0], &c.OpenTime); err != nil {
		return c, err
	}
	if err := json.Unmarshal(raw[6], &c.CloseTime); err != nil {
		return c, err
	}
	for i, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
		var s string
		if err := json.Unmarshal(raw[i+1], &s); err != nil {
			return c, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c, err
		}
		*dst = v
	}
	return c, nil
}

func (c *Client) klines(ctx context.Context, symbol string, interval models.Interval, start, end int64, limit int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval.String())
	q.Set("limit", strconv.Itoa(limit))
	if start > 0 {
		q.Set("startTime", strconv.FormatInt(start, 10))
	}
	if end > 0 {
		q.Set("endTime", strconv.FormatInt(end, 10))
	}
	endpoint := c.BaseURL + "/api/v3/klines?" + q.Encode()

	var candles []models.Candle
	err := utils.Retry(ctx, c.Attempts, c.RetryDelay, func() error {
		if err := c.limiter.wait(ctx, klineWeight); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		if c.APIKey != "" {
			req.Header.Set("X-MBX-APIKEY", c.APIKey)
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("GET klines %s %s: %s: %s", symbol, interval, resp.Status, body)
		}
		var rows [][]json.RawMessage
		if err := json.Unmarshal(body, &rows); err != nil {
			return err
		}
		candles = make([]models.Candle, 0, len(rows))
		for _, row := range rows {
			k, err := parseKline(row)
			if err != nil {
				return err
			}
			candles = append(candles, k)
		}
		return nil
	})
	if err != nil {
		return nil, &models.ExternalSourceError{Source: "binance " + symbol, Err: err}
	}
	return candles, nil
}

// Candles downloads count closed candles ending at the last interval boundary. The range is
// split into chunks of at most 1000 klines that are fetched concurrently.
func (c *Client) Candles(ctx context.Context, symbol string, interval models.Interval, count int) ([]models.Candle, error) {
	step := interval.Millis()
	if step == 0 || count < 1 {
		return nil, models.NewDataError("exchanges.Candles", "invalid request %s %s x%d", symbol, interval, count)
	}
	end := time.Now().UnixMilli() / step * step
	start := end - int64(count)*step

	var starts []int64
	for s := start; s < end; s += klinesLimit * step {
		starts = append(starts, s)
	}
	chunks := make([][]models.Candle, len(starts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Parallel)
	for i, s := range starts {
		i, s := i, s
		g.Go(func() error {
			last := s + klinesLimit*step - 1
			if last > end-1 {
				last = end - 1
			}
			chunk, err := c.klines(gctx, symbol, interval, s, last, klinesLimit)
			chunks[i] = chunk
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var candles []models.Candle
	for _, chunk := range chunks {
		candles = data.MergeCandles(candles, chunk)
	}
	candles = closedOnly(candles, time.Now().UnixMilli())
	logger.Debugf("Downloaded %d %s %s candles", len(candles), symbol, interval)
	return data.Tail(candles, count), nil
}

// Latest returns the newest closed candle.
func (c *Client) Latest(ctx context.Context, symbol string, interval models.Interval) (models.Candle, error) {
	candles, err := c.klines(ctx, symbol, interval, 0, 0, 2)
	if err != nil {
		return models.Candle{}, err
	}
	candles = closedOnly(candles, time.Now().UnixMilli())
	if len(candles) == 0 {
		return models.Candle{}, models.NewDataError("exchanges.Latest", "no closed %s %s candle", symbol, interval)
	}
	return candles[len(candles)-1], nil
}

func closedOnly(candles []models.Candle, now int64) []models.Candle {
	for len(candles) > 0 && candles[len(candles)-1].CloseTime >= now {
		candles = candles[:len(candles)-1]
	}
	return candles
}
