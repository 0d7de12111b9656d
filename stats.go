package krypto

import (
	"math"
	"sort"
	"time"

	gaussian "github.com/chobie/go-gaussian"
	"github.com/fatih/structs"
	"github.com/tantralabs/krypto/logger"
	"github.com/tantralabs/krypto/models"
	"github.com/tantralabs/krypto/utils"
	"gonum.org/v1/gonum/stat"
)

const daysPerMonth = 30.44

func periodReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns[i-1] = utils.CalculateDifference(values[i], values[i-1])
	}
	return returns
}

// sharpe is mean/std of per-period returns scaled by sqrt(periodsPerYear).
func sharpe(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// probabilisticSharpe is the probability that the true per-period Sharpe ratio is above 0,
// adjusting for skew and fat tails of the observed returns.
func probabilisticSharpe(returns []float64) float64 {
	n := float64(len(returns))
	if n < 3 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	sr := mean / std
	skew := stat.Skew(returns, nil)
	kurt := stat.ExKurtosis(returns, nil) + 3
	denominator := 1 - skew*sr + (kurt-1)/4*sr*sr
	if denominator <= 0 || math.IsNaN(denominator) {
		return 0
	}
	norm := gaussian.NewGaussian(0, 1)
	return norm.Cdf(sr * math.Sqrt(n-1) / math.Sqrt(denominator))
}

// maxDrawdown returns the worst peak to trough move of values as a fraction (<= 0).
func maxDrawdown(values []float64) float64 {
	var drawdown, highest float64
	for _, v := range values {
		if v > highest {
			highest = v
		}
		if dd := utils.CalculateDifference(v, highest); dd < drawdown {
			drawdown = dd
		}
	}
	return drawdown
}

func monthlyReturn(final float64, start, end int64) float64 {
	days := float64(end-start) / float64(24*time.Hour/time.Millisecond)
	months := days / daysPerMonth
	if months <= 0 || final <= 0 || math.IsInf(final, 0) {
		return 0
	}
	return math.Pow(final/StartingCash, 1/months) - 1
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

func logFoldResult(settings models.AlgorithmSettings, result models.FoldResult) {
	fields := structs.Map(result)
	delete(fields, "TradeLog")
	delete(fields, "EquityCurve")
	logger.Debugf("Fold %d %s: %s", result.Fold, settings, utils.CreateKeyValuePairs(fields, false))
}
