package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tantralabs/krypto/models"
)

type fakeProvider struct {
	status  models.TrainingStatus
	history []models.GenerationSnapshot
	best    *models.Individual
}

func (f *fakeProvider) Status() models.TrainingStatus        { return f.status }
func (f *fakeProvider) History() []models.GenerationSnapshot { return f.history }
func (f *fakeProvider) Best() (models.Individual, bool) {
	if f.best == nil {
		return models.Individual{}, false
	}
	return *f.best, true
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestEndpoints(t *testing.T) {
	p := &fakeProvider{status: models.TrainingStatus{RunID: "run-1", State: models.Idle}}
	s := New(":0", p, prometheus.NewRegistry())
	h := s.Handler()

	rec := get(t, h, "/status")
	var status models.TrainingStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.RunID != "run-1" || status.State != models.Idle {
		t.Error(status, "is not the provider status")
	}

	if rec := get(t, h, "/history"); strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Error(rec.Body.String(), "is not", "[]")
	}
	if rec := get(t, h, "/best"); rec.Code != http.StatusNotFound {
		t.Error(rec.Code, "is not", http.StatusNotFound)
	}

	p.history = []models.GenerationSnapshot{{Generation: 0, BestFitness: 0.5}, {Generation: 1, BestFitness: 0.7}}
	p.best = &models.Individual{ID: "abc", Fitness: 0.7, Settings: models.AlgorithmSettings{Target: "AAA"}}

	var history []models.GenerationSnapshot
	if err := json.Unmarshal(get(t, h, "/history").Body.Bytes(), &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[1].BestFitness != 0.7 {
		t.Error(history, "is not the provider history")
	}

	rec = get(t, h, "/best")
	var best models.Individual
	if err := json.Unmarshal(rec.Body.Bytes(), &best); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || best.ID != "abc" || best.Settings.Target != "AAA" {
		t.Error(rec.Code, best, "is not the best individual")
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Snapshot(models.GenerationSnapshot{Generation: 3, BestFitness: 1.25, Failed: 2})

	h := New(":0", &fakeProvider{}, reg).Handler()
	body := get(t, h, "/metrics").Body.String()
	for _, want := range []string{"krypto_generation 3", "krypto_best_fitness 1.25", "krypto_failed_evaluations_total 2"} {
		if !strings.Contains(body, want) {
			t.Error("metrics output is missing", want)
		}
	}
}
