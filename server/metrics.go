package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tantralabs/krypto/models"
)

// Metrics exports optimizer progress as prometheus gauges. It is an optimize.Observer.
type Metrics struct {
	generation  prometheus.Gauge
	bestFitness prometheus.Gauge
	bestSharpe  prometheus.Gauge
	bestReturn  prometheus.Gauge
	meanFitness prometheus.Gauge
	failed      prometheus.Counter
}

// NewMetrics registers the gauges with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Name: "krypto_" + name, Help: help})
	}
	return &Metrics{
		generation:  gauge("generation", "Last completed generation"),
		bestFitness: gauge("best_fitness", "Fitness of the best individual so far"),
		bestSharpe:  gauge("best_sharpe", "Mean fold Sharpe of the best individual"),
		bestReturn:  gauge("best_return", "Mean fold net return of the best individual"),
		meanFitness: gauge("mean_fitness", "Mean fitness of the last generation"),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "krypto_failed_evaluations_total",
			Help: "Individuals whose evaluation failed",
		}),
	}
}

func (m *Metrics) Snapshot(s models.GenerationSnapshot) {
	m.generation.Set(float64(s.Generation))
	m.bestFitness.Set(s.BestFitness)
	m.bestSharpe.Set(s.BestSharpe)
	m.bestReturn.Set(s.BestReturn)
	m.meanFitness.Set(s.MeanFitness)
	m.failed.Add(float64(s.Failed))
}
