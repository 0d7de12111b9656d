package models

import (
	"fmt"
	"sort"
	"strings"
)

// PredictorKind selects the prediction strategy.
type PredictorKind string

const (
	CorrelationPredictor PredictorKind = "correlation"
	PLSPredictor         PredictorKind = "pls"
)

// ParsePredictorKind validates a predictor name.
func ParsePredictorKind(s string) (PredictorKind, error) {
	switch PredictorKind(strings.ToLower(s)) {
	case CorrelationPredictor:
		return CorrelationPredictor, nil
	case PLSPredictor:
		return PLSPredictor, nil
	}
	return "", fmt.Errorf("unknown predictor %q", s)
}

// AlgorithmSettings is one candidate strategy configuration, the unit of mutation and crossover.
type AlgorithmSettings struct {
	Symbols       []string      `json:"symbols" structs:"-"`
	Target        string        `json:"target"`
	Interval      Interval      `json:"interval"`
	Depth         int           `json:"depth"`
	Components    int           `json:"components"`
	Predictor     PredictorKind `json:"predictor"`
	Leverage      float64       `json:"leverage"`
	TradeFraction float64       `json:"trade_fraction"`
	StopLoss      float64       `json:"stop_loss"`   // percent of entry, 0 disables
	TakeProfit    float64       `json:"take_profit"` // percent of entry, 0 disables
	Fee           float64       `json:"fee"`         // one-sided fee rate
	Indicators    IndicatorSet  `json:"indicators" structs:"-"`
}

// Validate checks internal consistency of a single settings value.
func (s AlgorithmSettings) Validate() error {
	switch {
	case len(s.Symbols) == 0:
		return fmt.Errorf("no symbols selected")
	case !s.HasSymbol(s.Target):
		return fmt.Errorf("target %s is not in the symbol set", s.Target)
	case s.Interval.Duration() == 0:
		return fmt.Errorf("unknown interval %q", s.Interval)
	case s.Depth < 1:
		return fmt.Errorf("depth %d < 1", s.Depth)
	case s.Indicators.Len() == 0:
		return fmt.Errorf("no indicators enabled")
	case s.Predictor == PLSPredictor && s.Components < 1:
		return fmt.Errorf("components %d < 1", s.Components)
	case s.Leverage <= 0:
		return fmt.Errorf("leverage %v <= 0", s.Leverage)
	case s.TradeFraction <= 0 || s.TradeFraction > 1:
		return fmt.Errorf("trade fraction %v outside (0, 1]", s.TradeFraction)
	case s.Fee < 0:
		return fmt.Errorf("fee %v < 0", s.Fee)
	case s.StopLoss < 0 || s.TakeProfit < 0:
		return fmt.Errorf("negative stop-loss or take-profit")
	}
	return nil
}

func (s AlgorithmSettings) HasSymbol(symbol string) bool {
	for _, sym := range s.Symbols {
		if sym == symbol {
			return true
		}
	}
	return false
}

// SortedSymbols returns a sorted copy of the symbol set.
func (s AlgorithmSettings) SortedSymbols() []string {
	out := append([]string(nil), s.Symbols...)
	sort.Strings(out)
	return out
}

// MaxComponents is the largest meaningful PLS component count for these settings.
func (s AlgorithmSettings) MaxComponents() int {
	return s.Depth * len(s.Symbols) * s.Indicators.Len()
}

func (s AlgorithmSettings) String() string {
	return fmt.Sprintf("%s %s [%s] d=%d n=%d %s lev=%.2f frac=%.2f sl=%.2f tp=%.2f ind=[%s]",
		s.Target, s.Interval, strings.Join(s.SortedSymbols(), ","), s.Depth, s.Components, s.Predictor,
		s.Leverage, s.TradeFraction, s.StopLoss, s.TakeProfit, s.Indicators)
}
