// Package optimize searches AlgorithmSettings with a genetic algorithm built on eaopt.
package optimize

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/MaxHalford/eaopt"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/tantralabs/krypto"
	"github.com/tantralabs/krypto/logger"
	"github.com/tantralabs/krypto/models"
	"golang.org/x/sync/singleflight"
)

// Evaluator backtests one settings value.
type Evaluator interface {
	Evaluate(ctx context.Context, settings models.AlgorithmSettings) (models.Individual, error)
}

// Observer receives every generation snapshot.
type Observer interface {
	Snapshot(models.GenerationSnapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(models.GenerationSnapshot)

func (f ObserverFunc) Snapshot(s models.GenerationSnapshot) { f(s) }

// Selection names.
const (
	Tournament = "tournament"
	Roulette   = "roulette"
)

// Config controls the genetic search.
type Config struct {
	PopulationSize   int
	Generations      int
	StallGenerations int // 0 never stops early
	MutationRate     float64
	CrossoverRate    float64
	SelectionRatio   float64
	ReinsertionRatio float64
	Selection        string
	Contestants      int
	Seed             int64
	Parallel         bool
}

// Optimizer runs one search and keeps its history queryable during and after the run.
type Optimizer struct {
	config    Config
	space     Space
	evaluator Evaluator
	observers []Observer

	mu         sync.RWMutex
	status     models.TrainingStatus
	history    []models.GenerationSnapshot
	population models.Population
	best       models.Individual
}

// New returns an idle optimizer.
func New(space Space, config Config, evaluator Evaluator, observers ...Observer) *Optimizer {
	return &Optimizer{
		config:    config,
		space:     space,
		evaluator: evaluator,
		observers: observers,
		status:    models.TrainingStatus{State: models.Idle},
	}
}

// run holds the per-search state genomes evaluate through.
type run struct {
	ctx       context.Context
	evaluator Evaluator
	group     singleflight.Group

	mu   sync.Mutex
	memo map[string]models.Individual
}

func settingsKey(s models.AlgorithmSettings) string {
	s.Symbols = s.SortedSymbols()
	b, _ := json.Marshal(s)
	return string(b)
}

// evaluate backtests settings once per distinct value. Errors become the worst fitness.
func (r *run) evaluate(settings models.AlgorithmSettings) models.Individual {
	key := settingsKey(settings)
	r.mu.Lock()
	ind, ok := r.memo[key]
	r.mu.Unlock()
	if ok {
		return ind
	}
	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		r.mu.Lock()
		done, ok := r.memo[key]
		r.mu.Unlock()
		if ok {
			return done, nil
		}
		ind, err := r.evaluator.Evaluate(r.ctx, settings)
		ind.Settings = settings
		if err != nil {
			ind.Fitness = krypto.WorstFitness
			ind.Err = err.Error()
			logger.Debugf("Evaluation failed for %s: %v", settings, err)
		}
		if math.IsNaN(ind.Fitness) || math.IsInf(ind.Fitness, 0) {
			ind.Fitness = krypto.WorstFitness
		}
		ind.ID = uuid.New().String()
		r.mu.Lock()
		r.memo[key] = ind
		r.mu.Unlock()
		return ind, nil
	})
	return v.(models.Individual)
}

func (r *run) lookup(g *Genome) models.Individual {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memo[settingsKey(g.Settings())]
}

func (o *Optimizer) selector() (eaopt.Selector, error) {
	switch o.config.Selection {
	case Roulette:
		return eaopt.SelRoulette{}, nil
	case Tournament, "":
		n := o.config.Contestants
		if n <= 0 {
			n = 3
		}
		if n > o.config.PopulationSize {
			n = o.config.PopulationSize
		}
		return eaopt.SelTournament{NContestants: uint(n)}, nil
	}
	return nil, models.NewConfigurationError("selection", "unknown selection %q", o.config.Selection)
}

// Run searches until the generation limit, a stall, or cancellation of ctx, and returns the
// best individual found. Cancellation is only observed between generations.
func (o *Optimizer) Run(ctx context.Context) (models.Individual, error) {
	if len(o.space.Targets) == 0 || len(o.space.Intervals) == 0 || len(o.space.Predictors) == 0 || len(o.space.Symbols) == 0 || len(o.space.Indicators) == 0 {
		return models.Individual{}, models.NewConfigurationError("search", "empty search space")
	}
	sel, err := o.selector()
	if err != nil {
		return models.Individual{}, err
	}
	r := &run{ctx: context.WithoutCancel(ctx), evaluator: o.evaluator, memo: map[string]models.Individual{}}

	o.mu.Lock()
	now := time.Now()
	o.status = models.TrainingStatus{RunID: uuid.New().String(), State: models.Running, StartedAt: now, UpdatedAt: now}
	o.history = nil
	o.population = models.Population{}
	o.best = models.Individual{Fitness: krypto.WorstFitness}
	runID := o.status.RunID
	o.mu.Unlock()
	logger.Infof("Starting search %s: population %d, %d generations", runID, o.config.PopulationSize, o.config.Generations)

	config := eaopt.NewDefaultGAConfig()
	config.NPops = 1
	config.PopSize = uint(o.config.PopulationSize)
	config.NGenerations = uint(o.config.Generations)
	config.HofSize = 1
	config.ParallelEval = o.config.Parallel
	config.RNG = rand.New(rand.NewSource(o.config.Seed))
	config.Model = ModReinsertion{
		Selector:         sel,
		SelectionRatio:   o.config.SelectionRatio,
		ReinsertionRatio: o.config.ReinsertionRatio,
		CrossRate:        o.config.CrossoverRate,
		MutRate:          o.config.MutationRate,
		Parallel:         o.config.Parallel,
	}

	stalled, lastBest := 0, math.Inf(-1)
	config.Callback = func(ga *eaopt.GA) {
		snap := o.record(r, ga.Populations[0].Individuals, int(ga.Generations))
		if snap.BestFitness > lastBest {
			lastBest, stalled = snap.BestFitness, 0
		} else {
			stalled++
		}
	}
	config.EarlyStop = func(ga *eaopt.GA) bool {
		if ctx.Err() != nil {
			return true
		}
		return o.config.StallGenerations > 0 && stalled >= o.config.StallGenerations
	}

	ga, err := config.NewGA()
	if err == nil {
		space := o.space
		err = ga.Minimize(func(rng *rand.Rand) eaopt.Genome {
			return newGenome(&space, r, rng)
		})
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.UpdatedAt = time.Now()
	switch {
	case err != nil:
		o.status.State = models.Failed
		o.status.Error = err.Error()
		return o.best, fmt.Errorf("genetic search: %w", err)
	case ctx.Err() != nil:
		o.status.State = models.Cancelled
		logger.Infof("Search %s cancelled after generation %d", runID, o.status.Generation)
	default:
		o.status.State = models.Done
		logger.Infof("Search %s done, best fitness %.4f: %s", runID, o.best.Fitness, o.best.Settings)
	}
	return o.best, nil
}

// record derives the next Population value and snapshot from the evaluated eaopt individuals.
func (o *Optimizer) record(r *run, indis eaopt.Individuals, generation int) models.GenerationSnapshot {
	pop := models.Population{Generation: generation, Individuals: make([]models.Individual, len(indis))}
	for i, indi := range indis {
		pop.Individuals[i] = r.lookup(indi.Genome.(*Genome))
	}
	sort.SliceStable(pop.Individuals, func(i, j int) bool {
		return pop.Individuals[i].Fitness > pop.Individuals[j].Fitness
	})

	best, _ := pop.Best()
	snap := models.GenerationSnapshot{
		Generation:  generation,
		BestFitness: best.Fitness,
		BestSharpe:  best.Sharpe,
		BestReturn:  best.Return,
		BestID:      best.ID,
		Best:        best.Settings.String(),
		Timestamp:   time.Now(),
	}
	total := 0.0
	for _, ind := range pop.Individuals {
		total += ind.Fitness
		if ind.Failed() {
			snap.Failed++
		}
	}
	snap.MeanFitness = total / float64(len(pop.Individuals))

	o.mu.Lock()
	o.population = pop
	o.history = append(o.history, snap)
	if best.Fitness > o.best.Fitness || o.best.ID == "" {
		o.best = best
	}
	o.status.Generation = generation
	o.status.BestFitness = o.best.Fitness
	o.status.UpdatedAt = snap.Timestamp
	o.mu.Unlock()

	logger.Infof("Generation %d: best %.4f sharpe %.3f return %.4f mean %.4f failed %d", generation, snap.BestFitness, snap.BestSharpe, snap.BestReturn, snap.MeanFitness, snap.Failed)
	for _, obs := range o.observers {
		obs.Snapshot(snap)
	}
	return snap
}

// Status returns the training state.
func (o *Optimizer) Status() models.TrainingStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// History returns a copy of every generation snapshot so far.
func (o *Optimizer) History() []models.GenerationSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]models.GenerationSnapshot(nil), o.history...)
}

// Population returns the latest population value.
func (o *Optimizer) Population() models.Population {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.population
}

// Best returns a copy of the best individual seen, false before the first generation.
func (o *Optimizer) Best() (models.Individual, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.best.ID == "" {
		return models.Individual{}, false
	}
	var out models.Individual
	if err := copier.Copy(&out, &o.best); err != nil {
		return o.best, true
	}
	return out, true
}
