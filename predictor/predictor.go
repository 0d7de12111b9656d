// Package predictor turns normalized features into a directional score for the next period.
package predictor

import (
	"github.com/tantralabs/krypto/models"
)

// Predictor scores the target's move from period t to t+1 using data available at the close of t.
// Only the sign of the score is traded.
type Predictor interface {
	Score(t int) (float64, error)
}

// Correlation is the correlation-weighted sum predictor.
type Correlation struct {
	features      Features
	relationships []models.Relationship
}

// NewCorrelation builds a predictor from relationships aimed at features.Target.
func NewCorrelation(features Features, rels []models.Relationship) *Correlation {
	own := make([]models.Relationship, 0, len(rels))
	for _, r := range rels {
		if r.Target == features.Target && features.Indicators.Has(r.Indicator) && r.Depth <= features.Depth {
			own = append(own, r)
		}
	}
	return &Correlation{features: features, relationships: own}
}

// Score sums correlation x weight x indicator over every relationship, reading each
// predictor's indicator lag periods before the predicted one.
func (c *Correlation) Score(t int) (float64, error) {
	score := 0.0
	for _, r := range c.relationships {
		p := t + 1 - r.Depth
		vectors := c.features.Vectors[r.Predictor]
		if p < 0 || p >= len(vectors) || !c.features.Usable[r.Predictor][p] {
			continue
		}
		score += r.Correlation * r.Weight * vectors[p][r.Indicator]
	}
	return score, nil
}

// Regression scores with a fitted PLS model.
type Regression struct {
	features Features
	model    *PLS
}

// NewRegression fits n components on every complete row whose label lies in [from, to).
func NewRegression(features Features, from, to, n int) (*Regression, error) {
	rows, labels := features.Matrix(from, to)
	if len(rows) == 0 {
		return nil, models.NewDataError("predictor.NewRegression", "no complete training rows in [%d, %d)", from, to)
	}
	model, err := FitPLS(rows, labels, n)
	if err != nil {
		return nil, err
	}
	return &Regression{features: features, model: model}, nil
}

// Score returns 0 (flat) when the lagged row at t is incomplete.
func (r *Regression) Score(t int) (float64, error) {
	row, ok := r.features.Row(t)
	if !ok {
		return 0, nil
	}
	return r.model.Predict(row)
}

// New builds the predictor selected by kind. rels is only used by the correlation strategy.
func New(kind models.PredictorKind, features Features, rels []models.Relationship, from, to, components int) (Predictor, error) {
	switch kind {
	case models.PLSPredictor:
		return NewRegression(features, from, to, components)
	case models.CorrelationPredictor, "":
		return NewCorrelation(features, rels), nil
	}
	return nil, models.NewConfigurationError("predictor", "unknown predictor %q", kind)
}
