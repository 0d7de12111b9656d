package models

import "time"

// Individual is one candidate configuration with its measured fitness.
type Individual struct {
	ID       string            `json:"id"`
	Settings AlgorithmSettings `json:"settings"`
	Fitness  float64           `json:"fitness"`
	Sharpe   float64           `json:"sharpe"`
	Return   float64           `json:"return"`
	Accuracy float64           `json:"accuracy"`
	Folds    []FoldResult      `json:"folds,omitempty"`
	Err      string            `json:"error,omitempty"`
}

// Failed reports whether the evaluation hit an error.
func (i Individual) Failed() bool {
	return i.Err != ""
}

// Population is the state of the search after one generation. A new value is produced
// for every generation; older values are never modified.
type Population struct {
	Generation  int          `json:"generation"`
	Individuals []Individual `json:"individuals"`
}

// Size is the number of individuals.
func (p Population) Size() int {
	return len(p.Individuals)
}

// Best returns the fittest individual, false for an empty population.
func (p Population) Best() (Individual, bool) {
	if len(p.Individuals) == 0 {
		return Individual{}, false
	}
	best := p.Individuals[0]
	for _, ind := range p.Individuals[1:] {
		if ind.Fitness > best.Fitness {
			best = ind
		}
	}
	return best, true
}

// GenerationSnapshot summarizes one generation for reporting.
type GenerationSnapshot struct {
	Generation  int       `json:"generation" csv:"generation"`
	BestFitness float64   `json:"best_fitness" csv:"best_fitness"`
	BestSharpe  float64   `json:"best_sharpe" csv:"best_sharpe"`
	BestReturn  float64   `json:"best_return" csv:"best_return"`
	MeanFitness float64   `json:"mean_fitness" csv:"mean_fitness"`
	Failed      int       `json:"failed" csv:"failed"`
	BestID      string    `json:"best_id" csv:"best_id"`
	Best        string    `json:"best" csv:"best"`
	Timestamp   time.Time `json:"timestamp" csv:"timestamp"`
}

// TrainingState is the lifecycle of an optimization run.
type TrainingState string

const (
	Idle      TrainingState = "idle"
	Running   TrainingState = "running"
	Done      TrainingState = "done"
	Cancelled TrainingState = "cancelled"
	Failed    TrainingState = "error"
)

// TrainingStatus is what the status endpoint reports.
type TrainingStatus struct {
	RunID       string        `json:"run_id"`
	State       TrainingState `json:"state"`
	Generation  int           `json:"generation"`
	BestFitness float64       `json:"best_fitness"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
