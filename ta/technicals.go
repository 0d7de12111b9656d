package ta

import (
	"math"

	"github.com/tantralabs/krypto/models"
)

// Compute derives an IndicatorVector for every candle. Candles inside the warm-up window,
// or with non-finite inputs, are flagged unusable but kept so indexes stay aligned.
func Compute(candles []models.Candle) ([]models.IndicatorVector, []bool, error) {
	n := len(candles)
	if n <= Lookback {
		return nil, nil, models.NewDataError("ta.Compute", "%d candles, need more than %d", n, Lookback)
	}
	ohlcv := models.GetOHLCV(candles)
	pct := GetChange(ohlcv.Close)
	vol := GetChange(ohlcv.Volume)
	stoch := GetStoch(ohlcv.High, ohlcv.Low, ohlcv.Close)
	rsi := GetRSI(ohlcv.Close)
	cci := GetCCI(ohlcv.High, ohlcv.Low, ohlcv.Close)

	vectors := make([]models.IndicatorVector, n)
	usable := make([]bool, n)
	for i, c := range candles {
		v := &vectors[i]
		v[models.PercentageChangeIndicator] = pct[i]
		v[models.CandlestickRatio] = CandlestickRatio(c.Open, c.High, c.Low, c.Close)
		v[models.Stochastic] = stoch[i]
		v[models.RSI] = rsi[i]
		v[models.CCI] = cci[i]
		v[models.VolumeChange] = vol[i]
		usable[i] = i >= Lookback && finite(*v)
	}
	return vectors, usable, nil
}

func finite(v models.IndicatorVector) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
