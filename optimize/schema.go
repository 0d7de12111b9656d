package optimize

import (
	"math"

	"github.com/tantralabs/krypto/models"
)

// Space is the set of AlgorithmSettings the search may produce.
type Space struct {
	Symbols    []string
	Targets    []string
	Intervals  []models.Interval
	Predictors []models.PredictorKind
	Indicators []models.IndicatorType

	MaxDepth      int
	MaxComponents int
	MarginMin     float64
	MarginMax     float64
	MarginStep    float64
	TradeFraction float64
	StopLossMax   float64 // 0 disables stop-loss for every candidate
	TakeProfitMax float64 // 0 disables take-profit for every candidate
	Fee           float64
}

// Gene positions inside a genome.
const (
	geneSymbols = iota
	geneTarget
	geneInterval
	geneDepth
	geneComponents
	genePredictor
	geneLeverage
	geneFraction
	geneStopLoss
	geneTakeProfit
	geneIndicators
	numGenes
)

// Parameters returns one SearchParameter per gene, in gene order.
func (s Space) Parameters() []models.SearchParameter {
	intervals := make([]string, len(s.Intervals))
	for i, iv := range s.Intervals {
		intervals[i] = iv.String()
	}
	predictors := make([]string, len(s.Predictors))
	for i, p := range s.Predictors {
		predictors[i] = string(p)
	}
	indicators := make([]string, len(s.Indicators))
	for i, ind := range s.Indicators {
		indicators[i] = ind.String()
	}
	return []models.SearchParameter{
		geneSymbols:    models.NewSetParameter("symbols", s.Symbols),
		geneTarget:     models.NewCategoricalParameter("target", s.Targets),
		geneInterval:   models.NewCategoricalParameter("interval", intervals),
		geneDepth:      models.NewIntegerParameter("depth", 1, s.MaxDepth),
		geneComponents: models.NewIntegerParameter("components", 1, s.MaxComponents),
		genePredictor:  models.NewCategoricalParameter("predictor", predictors),
		geneLeverage:   models.NewIntegerParameter("leverage", 0, s.marginSteps()),
		geneFraction:   models.NewSearchParameter("trade_fraction", s.TradeFraction, s.TradeFraction, 4),
		geneStopLoss:   models.NewSearchParameter("stop_loss", 0, s.StopLossMax, 2),
		geneTakeProfit: models.NewSearchParameter("take_profit", 0, s.TakeProfitMax, 2),
		geneIndicators: models.NewSetParameter("indicators", indicators),
	}
}

func (s Space) marginSteps() int {
	if s.MarginStep <= 0 || s.MarginMax <= s.MarginMin {
		return 0
	}
	return int(math.Floor((s.MarginMax-s.MarginMin)/s.MarginStep + 1e-9))
}

func (s Space) leverage(step int) float64 {
	return models.ToFixed(s.MarginMin+float64(step)*s.MarginStep, 8)
}
