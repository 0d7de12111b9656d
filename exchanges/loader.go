package exchanges

import (
	"context"
	"time"

	"github.com/tantralabs/krypto/cache"
	"github.com/tantralabs/krypto/data"
	"github.com/tantralabs/krypto/logger"
	"github.com/tantralabs/krypto/models"
	"golang.org/x/sync/errgroup"
)

// Loader downloads candles for many symbols concurrently and builds aligned datasets.
type Loader struct {
	Source   Source
	Cache    cache.Store // optional
	Persist  Persister   // optional
	Name     string      // source name mixed into cache keys
	Parallel int
}

type candleKey struct {
	Source   string          `json:"source"`
	Symbol   string          `json:"symbol"`
	Interval models.Interval `json:"interval"`
	Count    int             `json:"count"`
	End      int64           `json:"end"`
}

func (l *Loader) candles(ctx context.Context, symbol string, interval models.Interval, count int) ([]models.Candle, error) {
	step := interval.Millis()
	end := int64(0)
	if step > 0 {
		end = time.Now().UnixMilli() / step * step
	}
	key := cache.Key("candles", candleKey{Source: l.Name, Symbol: symbol, Interval: interval, Count: count, End: end})
	return cache.Fetch(ctx, l.Cache, key, func() ([]models.Candle, error) {
		candles, err := l.Source.Candles(ctx, symbol, interval, count)
		if err != nil {
			return nil, err
		}
		if l.Persist != nil {
			if err := l.Persist.SaveCandles(ctx, symbol, interval, candles); err != nil {
				logger.Warnf("Could not persist %s %s candles: %v", symbol, interval, err)
			}
		}
		return candles, nil
	})
}

// Load fetches count candles of every symbol and aligns them into one dataset. Source
// failures that outlived their retries are reported as DataError.
func (l *Loader) Load(ctx context.Context, symbols []string, interval models.Interval, count int) (*data.Dataset, error) {
	raw := make([][]models.Candle, len(symbols))
	g, ctx := errgroup.WithContext(ctx)
	if l.Parallel > 0 {
		g.SetLimit(l.Parallel)
	}
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			candles, err := l.candles(ctx, symbol, interval, count)
			if err != nil {
				return models.AsDataError("exchanges.Load "+symbol, err)
			}
			raw[i] = candles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	bySymbol := make(map[string][]models.Candle, len(symbols))
	for i, symbol := range symbols {
		bySymbol[symbol] = raw[i]
	}
	logger.Infof("Loaded %d symbols on %s", len(symbols), interval)
	return data.NewDataset(interval, bySymbol)
}

// LoadAll builds one dataset per interval.
func (l *Loader) LoadAll(ctx context.Context, symbols []string, intervals []models.Interval, count int) (map[models.Interval]*data.Dataset, error) {
	out := make(map[models.Interval]*data.Dataset, len(intervals))
	for _, interval := range intervals {
		d, err := l.Load(ctx, symbols, interval, count)
		if err != nil {
			return nil, err
		}
		out[interval] = d
	}
	return out, nil
}
