package models

import "time"

// Candle is one OHLCV bar. PercentageChange is filled in when the candle is appended to a series.
type Candle struct {
	OpenTime         int64   `csv:"open_time" db:"open_time" json:"open_time"`
	CloseTime        int64   `csv:"close_time" db:"close_time" json:"close_time"`
	Open             float64 `csv:"open" db:"open" json:"open"`
	High             float64 `csv:"high" db:"high" json:"high"`
	Low              float64 `csv:"low" db:"low" json:"low"`
	Close            float64 `csv:"close" db:"close" json:"close"`
	Volume           float64 `csv:"volume" db:"volume" json:"volume"`
	PercentageChange float64 `csv:"-" db:"-" json:"percentage_change"`
}

// CloseAt returns the close time as a time.Time. Timestamps are unix milliseconds.
func (c Candle) CloseAt() time.Time {
	return time.Unix(0, c.CloseTime*int64(time.Millisecond)).UTC()
}

// PercentageChange returns (current - previous) / previous * 100, or 0 when previous is 0.
func PercentageChange(previous, current float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// OHLCV is the column view of a candle series, the shape talib expects.
type OHLCV struct {
	Timestamp []int64
	Open      []float64
	High      []float64
	Low       []float64
	Close     []float64
	Volume    []float64
}

// GetOHLCV splits candles into columns.
func GetOHLCV(candles []Candle) (ohlcv OHLCV) {
	n := len(candles)
	ohlcv.Timestamp = make([]int64, n)
	ohlcv.Open = make([]float64, n)
	ohlcv.High = make([]float64, n)
	ohlcv.Low = make([]float64, n)
	ohlcv.Close = make([]float64, n)
	ohlcv.Volume = make([]float64, n)
	for i, c := range candles {
		ohlcv.Timestamp[i] = c.OpenTime
		ohlcv.Open[i] = c.Open
		ohlcv.High[i] = c.High
		ohlcv.Low[i] = c.Low
		ohlcv.Close[i] = c.Close
		ohlcv.Volume[i] = c.Volume
	}
	return
}
