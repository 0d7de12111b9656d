package optimize

import (
	"math"
	"math/rand"

	"github.com/MaxHalford/eaopt"
	"github.com/tantralabs/krypto/models"
)

type gene struct {
	param models.SearchParameter
	value float64
	bits  []bool
}

func (g gene) clone() gene {
	g.bits = append([]bool(nil), g.bits...)
	return g
}

func (g *gene) randomize(rng *rand.Rand) {
	switch g.param.Kind {
	case models.Set:
		for i := range g.bits {
			g.bits[i] = rng.Intn(2) == 0
		}
	case models.Continuous:
		g.value = g.param.Clamp(g.param.GetMin() + rng.Float64()*(g.param.GetMax()-g.param.GetMin()))
	default:
		g.value = g.param.GetMin() + float64(rng.Intn(int(g.param.GetMax()-g.param.GetMin())+1))
	}
}

func (g *gene) mutate(rng *rand.Rand) {
	if g.param.Fixed() && g.param.Kind != models.Set {
		return
	}
	switch g.param.Kind {
	case models.Set:
		if len(g.bits) == 0 {
			return
		}
		flipped := false
		for i := range g.bits {
			if rng.Float64() < 1/float64(len(g.bits)) {
				g.bits[i] = !g.bits[i]
				flipped = true
			}
		}
		if !flipped {
			i := rng.Intn(len(g.bits))
			g.bits[i] = !g.bits[i]
		}
	case models.Categorical:
		g.value = float64(rng.Intn(len(g.param.Choices)))
	default:
		sigma := (g.param.GetMax() - g.param.GetMin()) / 6
		if g.param.Kind == models.Integer {
			sigma = math.Max(sigma, 1)
		}
		g.value = g.param.Clamp(g.value + rng.NormFloat64()*sigma)
	}
}

func (g *gene) crossover(o *gene, rng *rand.Rand) {
	switch g.param.Kind {
	case models.Set:
		for i := range g.bits {
			if rng.Intn(2) == 0 {
				g.bits[i], o.bits[i] = o.bits[i], g.bits[i]
			}
		}
	case models.Categorical:
		if rng.Intn(2) == 0 {
			g.value, o.value = o.value, g.value
		}
	default:
		alpha := rng.Float64()
		a, b := g.value, o.value
		g.value = g.param.Clamp(alpha*a + (1-alpha)*b)
		o.value = o.param.Clamp((1-alpha)*a + alpha*b)
	}
}

// Genome is an eaopt.Genome over a Space. Evaluation is delegated to the owning run,
// which memoizes fitness per decoded settings.
type Genome struct {
	genes []gene
	space *Space
	run   *run
}

func newGenome(space *Space, r *run, rng *rand.Rand) *Genome {
	params := space.Parameters()
	g := &Genome{genes: make([]gene, len(params)), space: space, run: r}
	for i, p := range params {
		g.genes[i] = gene{param: p}
		if p.Kind == models.Set {
			g.genes[i].bits = make([]bool, len(p.Choices))
		}
		g.genes[i].randomize(rng)
	}
	g.repair(rng)
	return g
}

// repair restores the cross-gene constraints after random changes.
func (g *Genome) repair(rng *rand.Rand) {
	for i := range g.genes {
		if g.genes[i].param.Kind != models.Set {
			g.genes[i].value = g.genes[i].param.Clamp(g.genes[i].value)
		}
	}
	symbols := g.genes[geneSymbols].bits
	target := g.space.Targets[int(g.genes[geneTarget].value)]
	for i, s := range g.space.Symbols {
		if s == target {
			symbols[i] = true
		}
	}
	indicators := g.genes[geneIndicators].bits
	if count(indicators) == 0 && len(indicators) > 0 {
		indicators[rng.Intn(len(indicators))] = true
	}

	limit := int(g.genes[geneDepth].value) * count(symbols) * count(indicators)
	if limit > g.space.MaxComponents {
		limit = g.space.MaxComponents
	}
	if limit < 1 {
		limit = 1
	}
	if int(g.genes[geneComponents].value) > limit {
		g.genes[geneComponents].value = float64(limit)
	}
}

func count(bits []bool) int {
	n := 0
	for _, b := range bits {
		if b {
			n++
		}
	}
	return n
}

// Settings decodes the genome.
func (g *Genome) Settings() models.AlgorithmSettings {
	s := models.AlgorithmSettings{
		Target:        g.space.Targets[int(g.genes[geneTarget].value)],
		Interval:      g.space.Intervals[int(g.genes[geneInterval].value)],
		Depth:         int(g.genes[geneDepth].value),
		Components:    int(g.genes[geneComponents].value),
		Predictor:     g.space.Predictors[int(g.genes[genePredictor].value)],
		Leverage:      g.space.leverage(int(g.genes[geneLeverage].value)),
		TradeFraction: g.genes[geneFraction].value,
		StopLoss:      g.genes[geneStopLoss].value,
		TakeProfit:    g.genes[geneTakeProfit].value,
		Fee:           g.space.Fee,
	}
	for i, on := range g.genes[geneSymbols].bits {
		if on {
			s.Symbols = append(s.Symbols, g.space.Symbols[i])
		}
	}
	for i, on := range g.genes[geneIndicators].bits {
		if on {
			s.Indicators = s.Indicators.With(g.space.Indicators[i])
		}
	}
	return s
}

// Evaluate returns the negated fitness since eaopt minimizes. Failures are folded into
// the worst fitness and never reported as errors.
func (g *Genome) Evaluate() (float64, error) {
	return -g.run.evaluate(g.Settings()).Fitness, nil
}

// Mutate changes each gene with probability 1/len(genes), and always at least one.
func (g *Genome) Mutate(rng *rand.Rand) {
	mutated := false
	for i := range g.genes {
		if rng.Float64() < 1/float64(len(g.genes)) {
			g.genes[i].mutate(rng)
			mutated = true
		}
	}
	if !mutated {
		g.genes[rng.Intn(len(g.genes))].mutate(rng)
	}
	g.repair(rng)
}

func (g *Genome) Crossover(other eaopt.Genome, rng *rand.Rand) {
	o := other.(*Genome)
	for i := range g.genes {
		g.genes[i].crossover(&o.genes[i], rng)
	}
	g.repair(rng)
	o.repair(rng)
}

func (g *Genome) Clone() eaopt.Genome {
	c := &Genome{genes: make([]gene, len(g.genes)), space: g.space, run: g.run}
	for i := range g.genes {
		c.genes[i] = g.genes[i].clone()
	}
	return c
}
