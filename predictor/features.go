package predictor

import (
	"github.com/tantralabs/krypto/models"
)

// Features is the normalized, read-only view the predictors train and score on.
// Vectors and Usable are indexed by dataset period.
type Features struct {
	Symbols    []string
	Target     string
	Vectors    map[string][]models.IndicatorVector
	Usable     map[string][]bool
	Indicators models.IndicatorSet
	Depth      int
}

// Width is the length of a flattened lagged feature row.
func (f Features) Width() int {
	return f.Depth * len(f.Symbols) * f.Indicators.Len()
}

// Row flattens the indicators of every symbol at t, t-1, ..., t-Depth+1.
// ok is false when any of those periods is missing or unusable.
func (f Features) Row(t int) (row []float64, ok bool) {
	if t-f.Depth+1 < 0 {
		return nil, false
	}
	types := f.Indicators.Types()
	row = make([]float64, 0, f.Width())
	for lag := 0; lag < f.Depth; lag++ {
		p := t - lag
		for _, symbol := range f.Symbols {
			vectors := f.Vectors[symbol]
			if p >= len(vectors) || !f.Usable[symbol][p] {
				return nil, false
			}
			for _, ind := range types {
				row = append(row, vectors[p][ind])
			}
		}
	}
	return row, true
}

// Label is the target's percentage change from t to t+1.
func (f Features) Label(t int) (float64, bool) {
	vectors := f.Vectors[f.Target]
	if t+1 >= len(vectors) || t+1 < 0 || !f.Usable[f.Target][t+1] {
		return 0, false
	}
	return vectors[t+1][models.PercentageChangeIndicator], true
}

// Matrix collects every complete (row, label) pair whose label period lies in [from, to).
func (f Features) Matrix(from, to int) ([][]float64, []float64) {
	var rows [][]float64
	var labels []float64
	for t := from; t+1 < to; t++ {
		row, ok := f.Row(t)
		if !ok || t-f.Depth+1 < from {
			continue
		}
		label, ok := f.Label(t)
		if !ok {
			continue
		}
		rows = append(rows, row)
		labels = append(labels, label)
	}
	return rows, labels
}
