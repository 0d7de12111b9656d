// Package relationships computes lagged cross-instrument correlations between indicators
// and a target's percentage change.
package relationships

import (
	"context"
	"math"
	"runtime"
	"sort"

	"github.com/tantralabs/krypto/models"
	"golang.org/x/sync/errgroup"
)

// Input is a read-only view of normalized features. Every slice is indexed by dataset period.
type Input struct {
	Symbols    []string
	Targets    []string
	Features   map[string][]models.IndicatorVector
	Usable     map[string][]bool
	Indicators models.IndicatorSet
	Depth      int
	From       int
	To         int
}

type pair struct {
	target    string
	predictor string
}

// Compute returns every Relationship for the training window [From, To). Pairs are
// evaluated on a pool of at most workers goroutines; output order is unspecified.
func Compute(ctx context.Context, in Input, workers int) ([]models.Relationship, error) {
	if in.Depth < 1 {
		return nil, models.NewDataError("relationships.Compute", "depth %d < 1", in.Depth)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	targets := in.Targets
	if len(targets) == 0 {
		targets = in.Symbols
	}
	pairs := make([]pair, 0, len(targets)*len(in.Symbols))
	for _, target := range targets {
		for _, predictor := range in.Symbols {
			pairs = append(pairs, pair{target: target, predictor: predictor})
		}
	}

	results := make([][]models.Relationship, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range pairs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rels, err := computePair(in, pairs[i])
			if err != nil {
				return err
			}
			results[i] = rels
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.Relationship
	for _, rels := range results {
		out = append(out, rels...)
	}
	return out, nil
}

func computePair(in Input, p pair) ([]models.Relationship, error) {
	target, ok := in.Features[p.target]
	if !ok {
		return nil, models.NewDataError("relationships.Compute", "no features for %s", p.target)
	}
	predictor, ok := in.Features[p.predictor]
	if !ok {
		return nil, models.NewDataError("relationships.Compute", "no features for %s", p.predictor)
	}
	targetUsable := in.Usable[p.target]
	predictorUsable := in.Usable[p.predictor]

	from, to := in.From, in.To
	if from < 0 {
		from = 0
	}
	if to > len(target) {
		to = len(target)
	}
	if count(targetUsable, from, to) < in.Depth+2 || count(predictorUsable, from, to) < in.Depth+2 {
		return nil, nil
	}

	types := in.Indicators.Types()
	out := make([]models.Relationship, 0, len(types)*in.Depth)
	for d := 1; d <= in.Depth; d++ {
		for _, ind := range types {
			sum := 0.0
			n := 0
			for t := from + d; t < to; t++ {
				if !targetUsable[t] || !predictorUsable[t-d] {
					continue
				}
				sum += math.Tanh(predictor[t-d][ind] * target[t][models.PercentageChangeIndicator])
				n++
			}
			if n == 0 {
				continue
			}
			out = append(out, models.Relationship{
				Predictor:   p.predictor,
				Target:      p.target,
				Indicator:   ind,
				Depth:       d,
				Correlation: sum / float64(n),
				Weight:      1.0,
			})
		}
	}
	return out, nil
}

func count(usable []bool, from, to int) int {
	n := 0
	for t := from; t < to && t < len(usable); t++ {
		if usable[t] {
			n++
		}
	}
	return n
}

// Sort puts relationships in a canonical order: target, predictor, indicator, depth.
func Sort(rels []models.Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Predictor != b.Predictor {
			return a.Predictor < b.Predictor
		}
		if a.Indicator != b.Indicator {
			return a.Indicator < b.Indicator
		}
		return a.Depth < b.Depth
	})
}
