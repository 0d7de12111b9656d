// Package exchanges loads candle history and live candles from market-data sources.
package exchanges

import (
	"context"

	"github.com/tantralabs/krypto/models"
)

// Binance is the only exchange with a built-in client.
const Binance = "binance"

// Source provides chronologically ordered, deduplicated candle history.
type Source interface {
	// Candles returns the most recent count closed candles, oldest first.
	Candles(ctx context.Context, symbol string, interval models.Interval, count int) ([]models.Candle, error)
	// Latest returns the most recent closed candle.
	Latest(ctx context.Context, symbol string, interval models.Interval) (models.Candle, error)
}

// Persister stores downloaded candles, for example the Postgres store.
type Persister interface {
	SaveCandles(ctx context.Context, symbol string, interval models.Interval, candles []models.Candle) error
}
