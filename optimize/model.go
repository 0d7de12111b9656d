package optimize

import (
	"errors"
	"math"

	"github.com/MaxHalford/eaopt"
)

// ModReinsertion breeds offspring from selected parents and reinserts the fittest of them
// in place of the weakest individuals. The best individual is never replaced, so the
// population size is constant and the best fitness never decreases.
type ModReinsertion struct {
	Selector         eaopt.Selector
	SelectionRatio   float64
	ReinsertionRatio float64
	CrossRate        float64
	MutRate          float64
	Parallel         bool
}

// Apply runs one generation on pop.
func (mod ModReinsertion) Apply(pop *eaopt.Population) error {
	size := len(pop.Individuals)
	if size < 2 {
		return nil
	}
	nParents := int(math.Round(mod.SelectionRatio * float64(size)))
	if nParents < 2 {
		nParents = 2
	}
	parents, _, err := mod.Selector.Apply(uint(nParents), pop.Individuals, pop.RNG)
	if err != nil {
		return err
	}

	offspring := make(eaopt.Individuals, 0, len(parents)+1)
	for i := 0; i < len(parents); i += 2 {
		a := parents[i].Clone(pop.RNG)
		b := parents[(i+1)%len(parents)].Clone(pop.RNG)
		if pop.RNG.Float64() < mod.CrossRate {
			a.Genome.Crossover(b.Genome, pop.RNG)
			a.Evaluated, b.Evaluated = false, false
		}
		for _, child := range []*eaopt.Individual{&a, &b} {
			if pop.RNG.Float64() < mod.MutRate {
				child.Genome.Mutate(pop.RNG)
				child.Evaluated = false
			}
		}
		offspring = append(offspring, a, b)
	}
	if err := offspring.Evaluate(mod.Parallel); err != nil {
		return err
	}
	offspring.SortByFitness()

	n := int(math.Round(mod.ReinsertionRatio * float64(len(offspring))))
	if n > size-1 {
		n = size - 1
	}
	pop.Individuals.SortByFitness()
	for i := 0; i < n; i++ {
		pop.Individuals[size-1-i] = offspring[i]
	}
	pop.Individuals.SortByFitness()
	return nil
}

// Validate checks the rates.
func (mod ModReinsertion) Validate() error {
	switch {
	case mod.Selector == nil:
		return errors.New("selector cannot be nil")
	case mod.SelectionRatio <= 0 || mod.SelectionRatio > 1:
		return errors.New("SelectionRatio should be in (0, 1]")
	case mod.ReinsertionRatio <= 0 || mod.ReinsertionRatio > 1:
		return errors.New("ReinsertionRatio should be in (0, 1]")
	case mod.CrossRate < 0 || mod.CrossRate > 1:
		return errors.New("CrossRate should be in [0, 1]")
	case mod.MutRate < 0 || mod.MutRate > 1:
		return errors.New("MutRate should be in [0, 1]")
	}
	return mod.Selector.Validate()
}
