// Package data builds aligned, indicator-annotated candle datasets.
package data

import (
	"sort"

	"github.com/tantralabs/krypto/models"
	"github.com/tantralabs/krypto/ta"
)

// Dataset holds one TickerSeries per symbol for a single interval. All series have the
// same length and the same close time at every index.
type Dataset struct {
	Interval models.Interval
	Symbols  []string
	Series   map[string]*models.TickerSeries
	length   int
}

// PrepareCandles sorts and deduplicates candles, rejects gaps and fills in PercentageChange.
func PrepareCandles(symbol string, interval models.Interval, candles []models.Candle) ([]models.Candle, error) {
	out := make([]models.Candle, 0, len(candles))
	sorted := append([]models.Candle(nil), candles...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OpenTime < sorted[j].OpenTime })
	for _, c := range sorted {
		if len(out) > 0 && out[len(out)-1].OpenTime == c.OpenTime {
			out[len(out)-1] = c
			continue
		}
		out = append(out, c)
	}
	step := interval.Millis()
	for i := range out {
		if i == 0 {
			continue
		}
		if step > 0 && out[i].OpenTime-out[i-1].OpenTime != step {
			return nil, models.NewDataError("data.PrepareCandles", "%s %s: gap between %d and %d", symbol, interval, out[i-1].OpenTime, out[i].OpenTime)
		}
		out[i].PercentageChange = models.PercentageChange(out[i-1].Close, out[i].Close)
	}
	return out, nil
}

// NewDataset validates alignment across symbols and computes indicators for every series.
// Misaligned input is rejected rather than truncated.
func NewDataset(interval models.Interval, raw map[string][]models.Candle) (*Dataset, error) {
	if len(raw) == 0 {
		return nil, models.NewDataError("data.NewDataset", "no symbols")
	}
	d := &Dataset{
		Interval: interval,
		Series:   make(map[string]*models.TickerSeries, len(raw)),
		length:   -1,
	}
	for symbol := range raw {
		d.Symbols = append(d.Symbols, symbol)
	}
	sort.Strings(d.Symbols)

	var reference []models.Candle
	for _, symbol := range d.Symbols {
		candles, err := PrepareCandles(symbol, interval, raw[symbol])
		if err != nil {
			return nil, err
		}
		if reference == nil {
			reference = candles
			d.length = len(candles)
		}
		if len(candles) != d.length {
			return nil, models.NewDataError("data.NewDataset", "%s has %d candles, %s has %d", symbol, len(candles), d.Symbols[0], d.length)
		}
		for i := range candles {
			if candles[i].CloseTime != reference[i].CloseTime {
				return nil, models.NewDataError("data.NewDataset", "%s close time %d at index %d does not match %d", symbol, candles[i].CloseTime, i, reference[i].CloseTime)
			}
		}
		vectors, usable, err := ta.Compute(candles)
		if err != nil {
			return nil, err
		}
		d.Series[symbol] = &models.TickerSeries{
			Symbol:     symbol,
			Candles:    candles,
			Indicators: vectors,
			Usable:     usable,
		}
	}
	return d, nil
}

// Len is the shared series length.
func (d *Dataset) Len() int {
	return d.length
}

// Get returns the series for a symbol.
func (d *Dataset) Get(symbol string) (*models.TickerSeries, error) {
	s, ok := d.Series[symbol]
	if !ok {
		return nil, models.NewDataError("data.Get", "symbol %s not in dataset", symbol)
	}
	return s, nil
}

// FirstUsable is the first index usable in every series, or Len() when there is none.
func (d *Dataset) FirstUsable() int {
	for t := 0; t < d.length; t++ {
		ok := true
		for _, s := range d.Series {
			if !s.Usable[t] {
				ok = false
				break
			}
		}
		if ok {
			return t
		}
	}
	return d.length
}

// CloseTime returns the shared close time at index t.
func (d *Dataset) CloseTime(t int) int64 {
	return d.Series[d.Symbols[0]].Candles[t].CloseTime
}

// Range returns the open time of the first candle and the close time of the last one.
func (d *Dataset) Range() (int64, int64) {
	if d.length <= 0 {
		return 0, 0
	}
	c := d.Series[d.Symbols[0]].Candles
	return c[0].OpenTime, c[d.length-1].CloseTime
}

// Normalized fits a normalizer for each symbol on [from, to) and applies it to the
// whole series, so prediction rows reuse training statistics.
func (d *Dataset) Normalized(symbols []string, from, to int) (map[string][]models.IndicatorVector, error) {
	out := make(map[string][]models.IndicatorVector, len(symbols))
	for _, symbol := range symbols {
		s, err := d.Get(symbol)
		if err != nil {
			return nil, err
		}
		n, err := ta.FitNormalizer(s, from, to)
		if err != nil {
			return nil, err
		}
		out[symbol] = n.Apply(s.Indicators)
	}
	return out, nil
}
