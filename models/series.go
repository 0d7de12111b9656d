package models

// TickerSeries is one instrument's aligned candle history with its indicators.
// Indicators and Usable always have the same length as Candles.
type TickerSeries struct {
	Symbol     string
	Candles    []Candle
	Indicators []IndicatorVector
	Usable     []bool
}

func (s *TickerSeries) Len() int {
	return len(s.Candles)
}

// Value returns one indicator at index t.
func (s *TickerSeries) Value(t int, ind IndicatorType) float64 {
	return s.Indicators[t][ind]
}

// UsableCount counts usable candles in [from, to).
func (s *TickerSeries) UsableCount(from, to int) int {
	n := 0
	for t := from; t < to && t < len(s.Usable); t++ {
		if t >= 0 && s.Usable[t] {
			n++
		}
	}
	return n
}
