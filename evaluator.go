package krypto

import (
	"context"
	"runtime"

	"github.com/tantralabs/krypto/cache"
	"github.com/tantralabs/krypto/data"
	"github.com/tantralabs/krypto/models"
	"github.com/tantralabs/krypto/predictor"
	"github.com/tantralabs/krypto/relationships"
	"github.com/tantralabs/krypto/utils"
	"golang.org/x/sync/errgroup"
)

// Evaluator runs the walk-forward backtest of a settings value over prebuilt datasets.
// Datasets are never written after construction, so Evaluate is safe to call concurrently.
type Evaluator struct {
	datasets map[models.Interval]*data.Dataset
	folds    map[models.Interval][]Fold
	store    cache.Store
	workers  int
	fitness  Fitness
}

// NewEvaluator builds the folds for every dataset. store may be nil.
func NewEvaluator(datasets map[models.Interval]*data.Dataset, wf WalkForward, fitness Fitness, store cache.Store, workers int) (*Evaluator, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	e := &Evaluator{
		datasets: datasets,
		folds:    make(map[models.Interval][]Fold, len(datasets)),
		store:    store,
		workers:  workers,
		fitness:  fitness,
	}
	for interval, d := range datasets {
		folds, err := BuildFolds(d.FirstUsable(), d.Len(), wf)
		if err != nil {
			return nil, err
		}
		e.folds[interval] = folds
	}
	return e, nil
}

// Folds returns the splits used for interval.
func (e *Evaluator) Folds(interval models.Interval) []Fold {
	return e.folds[interval]
}

// Dataset returns the dataset for interval.
func (e *Evaluator) Dataset(interval models.Interval) (*data.Dataset, error) {
	d, ok := e.datasets[interval]
	if !ok {
		return nil, models.NewDataError("krypto.Evaluator", "no dataset for interval %s", interval)
	}
	return d, nil
}

// Evaluate backtests settings on every fold and fills an Individual. Folds run on a
// bounded pool; the first failing fold fails the whole individual.
func (e *Evaluator) Evaluate(ctx context.Context, settings models.AlgorithmSettings) (models.Individual, error) {
	ind := models.Individual{Settings: settings, Fitness: WorstFitness}
	if err := settings.Validate(); err != nil {
		return ind, models.NewConfigurationError("settings", "%v", err)
	}
	d, err := e.Dataset(settings.Interval)
	if err != nil {
		return ind, err
	}
	folds := e.folds[settings.Interval]
	results := make([]models.FoldResult, len(folds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range folds {
		i := i
		g.Go(func() error {
			r, err := e.runFold(ctx, d, settings, folds[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ind, err
	}

	sharpes := make([]float64, len(results))
	returns := make([]float64, len(results))
	accuracy := make([]float64, len(results))
	for i, r := range results {
		sharpes[i], returns[i], accuracy[i] = r.Sharpe, r.NetReturn, r.Accuracy
	}
	ind.Folds = results
	ind.Fitness = e.fitness.Score(results)
	ind.Sharpe = utils.MeanArr(sharpes)
	ind.Return = utils.MeanArr(returns)
	ind.Accuracy = utils.MeanArr(accuracy)
	return ind, nil
}

func (e *Evaluator) runFold(ctx context.Context, d *data.Dataset, settings models.AlgorithmSettings, fold Fold) (models.FoldResult, error) {
	p, err := fitPredictor(ctx, e.store, d, settings, fold.TrainFrom, fold.TrainTo)
	if err != nil {
		return models.FoldResult{}, err
	}
	target, err := d.Get(settings.Target)
	if err != nil {
		return models.FoldResult{}, err
	}
	result, err := Simulate(settings, settings.Target, target.Candles, p, fold.TestFrom, fold.TestTo)
	if err != nil {
		return models.FoldResult{}, err
	}
	result.Fold = fold.Index
	logFoldResult(settings, result)
	return result, nil
}

// fitPredictor trains the settings' predictor on [from, to) of d. Normalized features and
// relationships go through store.
func fitPredictor(ctx context.Context, store cache.Store, d *data.Dataset, settings models.AlgorithmSettings, from, to int) (predictor.Predictor, error) {
	features, err := buildFeatures(ctx, store, d, settings, from, to)
	if err != nil {
		return nil, err
	}
	var rels []models.Relationship
	if settings.Predictor != models.PLSPredictor {
		rels, err = buildRelationships(ctx, store, d, settings, features, from, to)
		if err != nil {
			return nil, err
		}
	}
	return predictor.New(settings.Predictor, features, rels, from, to, settings.Components)
}

type featureKey struct {
	Symbols  []string        `json:"symbols"`
	Interval models.Interval `json:"interval"`
	From     int64           `json:"from"`
	To       int64           `json:"to"`
	Train    [2]int          `json:"train"`
}

// buildFeatures normalizes the chosen symbols with statistics from the training window only.
func buildFeatures(ctx context.Context, store cache.Store, d *data.Dataset, settings models.AlgorithmSettings, from, to int) (predictor.Features, error) {
	symbols := settings.SortedSymbols()
	start, end := d.Range()
	key := cache.Key("features", featureKey{Symbols: symbols, Interval: d.Interval, From: start, To: end, Train: [2]int{from, to}})
	vectors, err := cache.Fetch(ctx, store, key, func() (map[string][]models.IndicatorVector, error) {
		return d.Normalized(symbols, from, to)
	})
	if err != nil {
		return predictor.Features{}, err
	}
	usable := make(map[string][]bool, len(symbols))
	for _, s := range symbols {
		series, err := d.Get(s)
		if err != nil {
			return predictor.Features{}, err
		}
		usable[s] = series.Usable
	}
	return predictor.Features{
		Symbols:    symbols,
		Target:     settings.Target,
		Vectors:    vectors,
		Usable:     usable,
		Indicators: settings.Indicators,
		Depth:      settings.Depth,
	}, nil
}

type relationshipKey struct {
	featureKey
	Target     string              `json:"target"`
	Depth      int                 `json:"depth"`
	Indicators models.IndicatorSet `json:"indicators"`
}

func buildRelationships(ctx context.Context, store cache.Store, d *data.Dataset, settings models.AlgorithmSettings, f predictor.Features, from, to int) ([]models.Relationship, error) {
	start, end := d.Range()
	key := cache.Key("relationships", relationshipKey{
		featureKey: featureKey{Symbols: f.Symbols, Interval: d.Interval, From: start, To: end, Train: [2]int{from, to}},
		Target:     settings.Target,
		Depth:      settings.Depth,
		Indicators: settings.Indicators,
	})
	return cache.Fetch(ctx, store, key, func() ([]models.Relationship, error) {
		rels, err := relationships.Compute(ctx, relationships.Input{
			Symbols:    f.Symbols,
			Targets:    []string{settings.Target},
			Features:   f.Vectors,
			Usable:     f.Usable,
			Indicators: settings.Indicators,
			Depth:      settings.Depth,
			From:       from,
			To:         to,
		}, 1)
		if err != nil {
			return nil, err
		}
		relationships.Sort(rels)
		return rels, nil
	})
}
