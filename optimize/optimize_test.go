package optimize

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/tantralabs/krypto"
	"github.com/tantralabs/krypto/models"
)

func testSpace() Space {
	return Space{
		Symbols:       []string{"AAA", "BBB", "CCC"},
		Targets:       []string{"AAA", "BBB"},
		Intervals:     []models.Interval{models.Hour, models.Day},
		Predictors:    []models.PredictorKind{models.CorrelationPredictor, models.PLSPredictor},
		Indicators:    models.AllIndicators(),
		MaxDepth:      6,
		MaxComponents: 5,
		MarginMin:     1,
		MarginMax:     5,
		MarginStep:    0.5,
		TradeFraction: 0.5,
		StopLossMax:   10,
		TakeProfitMax: 20,
		Fee:           0.001,
	}
}

func testConfig() Config {
	return Config{
		PopulationSize:   12,
		Generations:      8,
		MutationRate:     0.3,
		CrossoverRate:    0.7,
		SelectionRatio:   0.5,
		ReinsertionRatio: 0.5,
		Selection:        Tournament,
		Contestants:      3,
		Seed:             7,
		Parallel:         true,
	}
}

type fakeEvaluator struct {
	calls int64
	fail  bool
}

func (f *fakeEvaluator) Evaluate(_ context.Context, s models.AlgorithmSettings) (models.Individual, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.fail && s.Depth%2 == 0 {
		return models.Individual{}, models.NewModelFitError("fake", "even depth")
	}
	fitness := s.Leverage - math.Abs(float64(s.Depth)-3) + float64(len(s.Symbols))/10
	return models.Individual{Fitness: fitness, Sharpe: fitness / 2, Return: fitness / 10}, nil
}

func TestElitismAndConstantPopulation(t *testing.T) {
	cfg := testConfig()
	sizes := []int{}
	var o *Optimizer
	o = New(testSpace(), cfg, &fakeEvaluator{}, ObserverFunc(func(models.GenerationSnapshot) {
		sizes = append(sizes, o.Population().Size())
	}))
	best, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	history := o.History()
	if len(history) == 0 {
		t.Fatal("no history")
	}
	for i := 1; i < len(history); i++ {
		if history[i].BestFitness < history[i-1].BestFitness {
			t.Error("best fitness decreased at generation", history[i].Generation, history[i].BestFitness, "<", history[i-1].BestFitness)
		}
	}
	for _, n := range sizes {
		if n != cfg.PopulationSize {
			t.Error(n, "is not", cfg.PopulationSize)
		}
	}
	if o.Status().State != models.Done {
		t.Error(o.Status().State, "is not", models.Done)
	}
	if best.ID == "" || best.Fitness != history[len(history)-1].BestFitness {
		t.Error(best, "is not the last best")
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Parallel = false
	a, _ := New(testSpace(), cfg, &fakeEvaluator{}).Run(context.Background())
	b, _ := New(testSpace(), cfg, &fakeEvaluator{}).Run(context.Background())
	if settingsKey(a.Settings) != settingsKey(b.Settings) {
		t.Error(a.Settings, "is not", b.Settings)
	}
}

func TestFailedEvaluationsDoNotAbort(t *testing.T) {
	o := New(testSpace(), testConfig(), &fakeEvaluator{fail: true})
	best, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if best.Failed() || best.Settings.Depth%2 == 0 {
		t.Error("best individual failed:", best)
	}
	for _, ind := range o.Population().Individuals {
		if ind.Failed() && ind.Fitness != krypto.WorstFitness {
			t.Error(ind.Fitness, "is not", krypto.WorstFitness)
		}
	}
}

func TestCancelBetweenGenerations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := testConfig()
	cfg.Generations = 100
	o := New(testSpace(), cfg, &fakeEvaluator{}, ObserverFunc(func(s models.GenerationSnapshot) {
		if s.Generation == 2 {
			cancel()
		}
	}))
	if _, err := o.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if o.Status().State != models.Cancelled {
		t.Error(o.Status().State, "is not", models.Cancelled)
	}
	if n := len(o.History()); n > 4 {
		t.Error(n, "generations ran after cancellation")
	}
	if o.Population().Size() != cfg.PopulationSize {
		t.Error("population not queryable after cancellation")
	}
	if _, ok := o.Best(); !ok {
		t.Error("no best individual after cancellation")
	}
}

func TestStall(t *testing.T) {
	cfg := testConfig()
	cfg.Generations = 200
	cfg.StallGenerations = 3
	o := New(testSpace(), cfg, &fakeEvaluator{})
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(o.History()); n >= 200 {
		t.Error("search did not stop on stall")
	}
}

func TestMemoizedEvaluation(t *testing.T) {
	space := testSpace()
	space.Symbols, space.Targets = []string{"AAA"}, []string{"AAA"}
	space.Intervals = []models.Interval{models.Hour}
	space.Predictors = []models.PredictorKind{models.CorrelationPredictor}
	space.Indicators = []models.IndicatorType{models.RSI}
	space.MaxDepth, space.MaxComponents = 1, 1
	space.MarginMax, space.StopLossMax, space.TakeProfitMax = 1, 0, 0
	ev := &fakeEvaluator{}
	if _, err := New(space, testConfig(), ev).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ev.calls != 1 {
		t.Error(ev.calls, "evaluations of a single point space")
	}
}

func TestGenomeStaysInBounds(t *testing.T) {
	space := testSpace()
	rng := rand.New(rand.NewSource(1))
	r := &run{ctx: context.Background(), evaluator: &fakeEvaluator{}, memo: map[string]models.Individual{}}
	a, b := newGenome(&space, r, rng), newGenome(&space, r, rng)
	for i := 0; i < 2000; i++ {
		a.Mutate(rng)
		if i%3 == 0 {
			a.Crossover(b, rng)
		}
		for _, g := range []*Genome{a, b} {
			s := g.Settings()
			switch {
			case s.Validate() != nil:
				t.Fatal(s, s.Validate())
			case s.Depth < 1 || s.Depth > space.MaxDepth:
				t.Fatal("depth", s.Depth)
			case s.Components < 1 || s.Components > space.MaxComponents || s.Components > s.MaxComponents():
				t.Fatal("components", s.Components)
			case s.Leverage < space.MarginMin || s.Leverage > space.MarginMax:
				t.Fatal("leverage", s.Leverage)
			case s.StopLoss < 0 || s.StopLoss > space.StopLossMax || s.TakeProfit < 0 || s.TakeProfit > space.TakeProfitMax:
				t.Fatal("risk", s.StopLoss, s.TakeProfit)
			}
		}
	}
}

func TestUnknownSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Selection = "lottery"
	_, err := New(testSpace(), cfg, &fakeEvaluator{}).Run(context.Background())
	var ce *models.ConfigurationError
	if !errors.As(err, &ce) {
		t.Error(err, "is not a configuration error")
	}
}
