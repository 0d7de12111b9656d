package data

import (
	"sort"

	"github.com/tantralabs/krypto/models"
)

// MergeCandles appends newer candles to a local history, dropping any open time that is
// already present and keeping the result sorted.
func MergeCandles(local []models.Candle, newCandles []models.Candle) []models.Candle {
	timestamps := make(map[int64]int, len(local))
	merged := make([]models.Candle, len(local), len(local)+len(newCandles))
	copy(merged, local)
	for i := range merged {
		timestamps[merged[i].OpenTime] = i
	}
	for _, c := range newCandles {
		if i, ok := timestamps[c.OpenTime]; ok {
			// a still-forming candle may be refreshed by its closed version
			merged[i] = c
			continue
		}
		timestamps[c.OpenTime] = len(merged)
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].OpenTime < merged[j].OpenTime })
	return merged
}

// Tail keeps the last n candles.
func Tail(candles []models.Candle, n int) []models.Candle {
	if n <= 0 || len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
