package predictor

import (
	"math"
	"math/rand"
	"testing"

	"github.com/tantralabs/krypto/models"
)

func TestFitPLSRecoversLinearModel(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var x [][]float64
	var y []float64
	for i := 0; i < 300; i++ {
		a, b, c := rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()
		x = append(x, []float64{a, b, c})
		y = append(y, 2*a-b+0.5*c+3)
	}
	m, err := FitPLS(x, y, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		got, err := m.Predict(x[i])
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-y[i]) > 1e-6 {
			t.Error(got, "is not", y[i])
		}
	}
}

func TestFitPLSFewerComponents(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	var x [][]float64
	var y []float64
	for i := 0; i < 200; i++ {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		x = append(x, []float64{a, b, a + 0.1*rng.NormFloat64()})
		y = append(y, a+0.01*rng.NormFloat64())
	}
	m, err := FitPLS(x, y, 1)
	if err != nil {
		t.Fatal(err)
	}
	hits := 0
	for i := range x {
		p, _ := m.Predict(x[i])
		if (p > m.YMean) == (y[i] > m.YMean) {
			hits++
		}
	}
	if float64(hits)/float64(len(x)) < 0.9 {
		t.Error("one component should capture the dominant direction, hit rate", float64(hits)/float64(len(x)))
	}
}

func TestFitPLSErrors(t *testing.T) {
	x := [][]float64{{1, 2}, {2, 4}, {3, 6}, {4, 8}}
	y := []float64{1, 2, 3, 5}
	if _, err := FitPLS(x, y, 2); !models.IsModelFitError(err) {
		t.Error("rank deficient matrix should fail, got", err)
	}
	if _, err := FitPLS(x, y[:3], 1); !models.IsModelFitError(err) {
		t.Error("row mismatch should fail, got", err)
	}
	if _, err := FitPLS(x, y, 0); !models.IsModelFitError(err) {
		t.Error("zero components should fail, got", err)
	}
	if _, err := FitPLS(x, []float64{1, 1, 1, 1}, 1); !models.IsModelFitError(err) {
		t.Error("constant label should fail, got", err)
	}
	if _, err := FitPLS([][]float64{{1, 2}, {3}}, []float64{1, 2}, 1); !models.IsModelFitError(err) {
		t.Error("ragged rows should fail, got", err)
	}
}

func simpleFeatures() Features {
	vectors := map[string][]models.IndicatorVector{
		"AAA": {{1, 0.5}, {2, -0.5}, {-1, 0.25}, {0.5, 1}, {3, 2}},
		"BBB": {{-2, 1}, {1, 1}, {0.5, -1}, {2, 0}, {-1, 1}},
	}
	usable := map[string][]bool{
		"AAA": {true, true, true, true, true},
		"BBB": {true, true, true, true, true},
	}
	return Features{
		Symbols:    []string{"AAA", "BBB"},
		Target:     "AAA",
		Vectors:    vectors,
		Usable:     usable,
		Indicators: models.NewIndicatorSet(models.PercentageChangeIndicator, models.CandlestickRatio),
		Depth:      2,
	}
}

func TestCorrelationScore(t *testing.T) {
	f := simpleFeatures()
	rels := []models.Relationship{
		{Predictor: "BBB", Target: "AAA", Indicator: models.PercentageChangeIndicator, Depth: 1, Correlation: 0.5, Weight: 1},
		{Predictor: "AAA", Target: "AAA", Indicator: models.CandlestickRatio, Depth: 2, Correlation: -0.2, Weight: 2},
		{Predictor: "AAA", Target: "BBB", Indicator: models.CandlestickRatio, Depth: 1, Correlation: 0.9, Weight: 1},
	}
	c := NewCorrelation(f, rels)
	got, _ := c.Score(2)
	// depth 1 reads period 2, depth 2 reads period 1
	want := 0.5*1*0.5 + -0.2*2*-0.5
	if math.Abs(got-want) > 1e-12 {
		t.Error(got, "is not", want)
	}
}

func TestFeatureRowsAndLabels(t *testing.T) {
	f := simpleFeatures()
	row, ok := f.Row(1)
	if !ok {
		t.Fatal("row 1 should be complete")
	}
	want := []float64{2, -0.5, 1, 1, 1, 0.5, -2, 1}
	if len(row) != len(want) || len(row) != f.Width() {
		t.Fatal(row, "is not", want)
	}
	for i := range want {
		if row[i] != want[i] {
			t.Error(row, "is not", want)
			break
		}
	}
	if _, ok := f.Row(0); ok {
		t.Error("row 0 lacks a lag")
	}
	rows, labels := f.Matrix(0, 4)
	if len(rows) != 2 || len(labels) != 2 {
		t.Fatal(len(rows), "rows is not 2")
	}
	// labels come from periods 2 and 3, both before the window end
	if labels[0] != -1 || labels[1] != 0.5 {
		t.Error(labels, "is not [-1 0.5]")
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New("magic", simpleFeatures(), nil, 0, 5, 1); !models.IsConfigurationError(err) {
		t.Error("unknown predictor should be a configuration error, got", err)
	}
}
