package krypto

import (
	"fmt"
	"math"

	"github.com/tantralabs/krypto/models"
	"github.com/tantralabs/krypto/utils"
)

// FitnessMode chooses how fold results combine into one fitness.
type FitnessMode string

const (
	MeanSharpe   FitnessMode = "mean-sharpe"
	MedianReturn FitnessMode = "median-return"
	WorstReturn  FitnessMode = "worst-return"
	Weighted     FitnessMode = "weighted"
)

// WorstFitness is assigned to individuals whose evaluation failed.
const WorstFitness = -1e6

// Fitness aggregates fold results. Accuracy is reported but never scored.
type Fitness struct {
	Mode         FitnessMode `yaml:"mode" json:"mode"`
	ReturnWeight float64     `yaml:"return_weight" json:"return_weight"`
	SharpeWeight float64     `yaml:"sharpe_weight" json:"sharpe_weight"`
}

func ParseFitnessMode(s string) (FitnessMode, error) {
	switch m := FitnessMode(s); m {
	case MeanSharpe, MedianReturn, WorstReturn, Weighted:
		return m, nil
	case "":
		return MeanSharpe, nil
	}
	return "", fmt.Errorf("unknown fitness mode %q", s)
}

// Score combines folds into a single value, higher is better.
func (f Fitness) Score(folds []models.FoldResult) float64 {
	if len(folds) == 0 {
		return WorstFitness
	}
	returns := make([]float64, len(folds))
	sharpes := make([]float64, len(folds))
	for i, r := range folds {
		returns[i] = r.NetReturn
		sharpes[i] = r.Sharpe
	}
	var score float64
	switch f.Mode {
	case MedianReturn:
		score = median(returns)
	case WorstReturn:
		score = utils.MinArr(returns)
	case Weighted:
		score = f.ReturnWeight*utils.MeanArr(returns) + f.SharpeWeight*utils.MeanArr(sharpes)
	default:
		score = utils.MeanArr(sharpes)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return WorstFitness
	}
	return score
}
