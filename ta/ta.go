// Package ta provides the technical indicators used as model features, computed with
// github.com/markcheno/go-talib where a standard definition exists.
package ta

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

const (
	StochFastK = 14
	StochSlowK = 3
	StochSlowD = 3
	RSIPeriod  = 14
	CCIPeriod  = 20

	// BodyEpsilon is the body size under which a candle is treated as a doji.
	BodyEpsilon = 1e-9
)

// Lookback is the number of leading candles without a full indicator window.
const Lookback = CCIPeriod - 1

// GetStoch returns the slow %K line of the stochastic oscillator.
func GetStoch(high []float64, low []float64, close []float64) []float64 {
	slowK, _ := talib.Stoch(high, low, close, StochFastK, StochSlowK, talib.SMA, StochSlowD, talib.SMA)
	return slowK
}

// GetRSI calculates the relative strength index over RSIPeriod closes.
func GetRSI(close []float64) []float64 {
	return talib.Rsi(close, RSIPeriod)
}

// GetCCI calculates the commodity channel index over CCIPeriod candles.
func GetCCI(high []float64, low []float64, close []float64) []float64 {
	return talib.Cci(high, low, close, CCIPeriod)
}

// GetChange returns the period-over-period percentage change of a series. The first value is 0.
func GetChange(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out[i] = (values[i] - values[i-1]) / values[i-1] * 100
	}
	return out
}

// CandlestickRatio compares the upper and lower wicks relative to the body, squashed into [-1, 1].
// A doji returns the sign of the wick difference.
func CandlestickRatio(open, high, low, close float64) float64 {
	top := math.Max(open, close)
	bottom := math.Min(open, close)
	upper := math.Max(high-top, 0)
	lower := math.Max(bottom-low, 0)
	body := top - bottom
	if math.Abs(body) < BodyEpsilon {
		return sign(upper - lower)
	}
	r := math.Tanh((upper - lower) / body)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
