package exchanges

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tantralabs/krypto/data"
	"github.com/tantralabs/krypto/models"
)

// CSVSource reads candles from <Dir>/<SYMBOL>_<interval>.csv for offline runs.
type CSVSource struct {
	Dir string
}

// Path is the file holding symbol's candles.
func (s CSVSource) Path(symbol string, interval models.Interval) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.csv", symbol, interval))
}

func (s CSVSource) Candles(_ context.Context, symbol string, interval models.Interval, count int) ([]models.Candle, error) {
	candles, err := data.LoadCandles(s.Path(symbol, interval))
	if err != nil {
		return nil, err
	}
	return data.Tail(data.MergeCandles(nil, candles), count), nil
}

func (s CSVSource) Latest(ctx context.Context, symbol string, interval models.Interval) (models.Candle, error) {
	candles, err := s.Candles(ctx, symbol, interval, 1)
	if err != nil {
		return models.Candle{}, err
	}
	if len(candles) == 0 {
		return models.Candle{}, models.NewDataError("exchanges.Latest", "%s is empty", s.Path(symbol, interval))
	}
	return candles[0], nil
}

// SaveCandles writes candles to the file Candles reads.
func (s CSVSource) SaveCandles(_ context.Context, symbol string, interval models.Interval, candles []models.Candle) error {
	return data.SaveCandles(s.Path(symbol, interval), candles)
}
