package relationships

import (
	"context"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/tantralabs/krypto/models"
)

func randomInput(symbols []string, n int, depth int, seed int64) Input {
	rng := rand.New(rand.NewSource(seed))
	in := Input{
		Symbols:    symbols,
		Features:   map[string][]models.IndicatorVector{},
		Usable:     map[string][]bool{},
		Indicators: models.NewIndicatorSet(models.AllIndicators()...),
		Depth:      depth,
		From:       0,
		To:         n,
	}
	for _, s := range symbols {
		vectors := make([]models.IndicatorVector, n)
		usable := make([]bool, n)
		for i := range vectors {
			for k := range vectors[i] {
				vectors[i][k] = rng.NormFloat64() * 50
			}
			usable[i] = true
		}
		in.Features[s] = vectors
		in.Usable[s] = usable
	}
	return in
}

func TestCorrelationBounds(t *testing.T) {
	in := randomInput([]string{"AAA", "BBB", "CCC"}, 200, 5, 1)
	rels, err := Compute(context.Background(), in, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := 3 * 3 * models.NumIndicators * 5
	if len(rels) != want {
		t.Error(len(rels), "is not", want)
	}
	for _, r := range rels {
		if r.Correlation < -1 || r.Correlation > 1 || math.IsNaN(r.Correlation) {
			t.Error(r, "correlation out of [-1, 1]")
		}
		if r.Weight != 1.0 {
			t.Error(r, "weight is not 1")
		}
	}
}

func TestHandComputedCorrelation(t *testing.T) {
	in := Input{
		Symbols: []string{"AAA"},
		Features: map[string][]models.IndicatorVector{
			"AAA": {{1}, {2}, {-1}, {0.5}},
		},
		Usable:     map[string][]bool{"AAA": {true, true, true, true}},
		Indicators: models.NewIndicatorSet(models.PercentageChangeIndicator),
		Depth:      1,
		From:       0,
		To:         4,
	}
	rels, err := Compute(context.Background(), in, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 1 {
		t.Fatal(len(rels), "is not 1")
	}
	want := (math.Tanh(1*2) + math.Tanh(2*-1) + math.Tanh(-1*0.5)) / 3
	if math.Abs(rels[0].Correlation-want) > 1e-12 {
		t.Error(rels[0].Correlation, "is not", want)
	}
}

func TestInsufficientHistoryExcluded(t *testing.T) {
	in := randomInput([]string{"AAA", "BBB"}, 50, 3, 2)
	// BBB keeps only D+1 usable candles
	for i := range in.Usable["BBB"] {
		in.Usable["BBB"][i] = i < 4
	}
	rels, err := Compute(context.Background(), in, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rels {
		if r.Predictor == "BBB" || r.Target == "BBB" {
			t.Error("pair with too little history contributed", r)
		}
	}
	if len(rels) != models.NumIndicators*3 {
		t.Error(len(rels), "is not", models.NumIndicators*3)
	}
}

func TestWorkerCountDoesNotChangeResult(t *testing.T) {
	in := randomInput([]string{"AAA", "BBB", "CCC", "DDD"}, 120, 4, 3)
	one, err := Compute(context.Background(), in, 1)
	if err != nil {
		t.Fatal(err)
	}
	many, err := Compute(context.Background(), in, 16)
	if err != nil {
		t.Fatal(err)
	}
	Sort(one)
	Sort(many)
	if !reflect.DeepEqual(one, many) {
		t.Error("parallel and sequential relationships differ")
	}
}

func TestTrainingWindowOnly(t *testing.T) {
	in := randomInput([]string{"AAA", "BBB"}, 100, 2, 4)
	in.To = 60
	before, _ := Compute(context.Background(), in, 2)
	// changing data at or after To must not change anything
	for _, s := range in.Symbols {
		for i := 60; i < 100; i++ {
			in.Features[s][i][0] = 1e6
		}
	}
	after, _ := Compute(context.Background(), in, 2)
	Sort(before)
	Sort(after)
	if !reflect.DeepEqual(before, after) {
		t.Error("relationships read data outside the training window")
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := randomInput([]string{"AAA", "BBB"}, 50, 1, 5)
	if _, err := Compute(ctx, in, 1); err == nil {
		t.Error("expected a context error")
	}
}
