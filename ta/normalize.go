package ta

import (
	"math"

	"github.com/tantralabs/krypto/models"
	"gonum.org/v1/gonum/stat"
)

// Normalizer rescales every indicator except percentage change to the dispersion of
// percentage change. Its statistics come from a training range only.
type Normalizer struct {
	Mean   models.IndicatorVector
	Std    models.IndicatorVector
	Target float64
}

// FitNormalizer gathers per-indicator mean and sample standard deviation over the
// usable candles of s in [from, to).
func FitNormalizer(s *models.TickerSeries, from, to int) (Normalizer, error) {
	if from < 0 {
		from = 0
	}
	if to > s.Len() {
		to = s.Len()
	}
	var columns [models.NumIndicators][]float64
	for t := from; t < to; t++ {
		if !s.Usable[t] {
			continue
		}
		for k := 0; k < models.NumIndicators; k++ {
			columns[k] = append(columns[k], s.Indicators[t][k])
		}
	}
	if len(columns[0]) < 2 {
		return Normalizer{}, models.NewDataError("ta.FitNormalizer", "%s has %d usable candles in [%d, %d)", s.Symbol, len(columns[0]), from, to)
	}
	var n Normalizer
	for k := range columns {
		n.Mean[k], n.Std[k] = stat.MeanStdDev(columns[k], nil)
	}
	n.Target = n.Std[models.PercentageChangeIndicator]
	return n, nil
}

// Normalize rewrites v in place.
func (n Normalizer) Normalize(v *models.IndicatorVector) {
	for k := range v {
		if models.IndicatorType(k) != models.PercentageChangeIndicator {
			v[k] = (v[k] - n.Mean[k]) / n.Std[k] * n.Target
		}
		if math.IsNaN(v[k]) || math.IsInf(v[k], 0) {
			v[k] = 0
		}
	}
}

// Apply returns a normalized copy of vectors; the input is not modified.
func (n Normalizer) Apply(vectors []models.IndicatorVector) []models.IndicatorVector {
	out := make([]models.IndicatorVector, len(vectors))
	copy(out, vectors)
	for i := range out {
		n.Normalize(&out[i])
	}
	return out
}
