package krypto

import (
	"testing"

	"github.com/tantralabs/krypto/models"
)

func TestBuildFoldsNoLookAhead(t *testing.T) {
	for _, start := range []int{0, 19, 33} {
		for _, end := range []int{120, 500} {
			for k := 1; k <= 6; k++ {
				for _, ratio := range []float64{0.3, 0.5, 0.8} {
					for _, window := range []int{0, 25, 1000} {
						wf := WalkForward{Folds: k, TrainRatio: ratio, TrainWindow: window}
						folds, err := BuildFolds(start, end, wf)
						if err != nil {
							if !models.IsDataError(err) {
								t.Fatal(err)
							}
							continue
						}
						checkFolds(t, folds, start, end, wf)
					}
				}
			}
		}
	}
}

func checkFolds(t *testing.T, folds []Fold, start, end int, wf WalkForward) {
	t.Helper()
	if len(folds) != wf.Folds {
		t.Fatal(len(folds), "is not", wf.Folds)
	}
	for i, f := range folds {
		if f.TrainTo > f.TestFrom {
			t.Error(f, "trains on test periods")
		}
		if f.TrainFrom < start || f.TrainFrom >= f.TrainTo {
			t.Error(f, "has an invalid training window")
		}
		if wf.TrainWindow > 0 && f.TrainTo-f.TrainFrom > wf.TrainWindow {
			t.Error(f, "trains beyond the trailing window")
		}
		if f.TestTo-f.TestFrom < DefaultMinTest {
			t.Error(f, "has a short test window")
		}
		if i > 0 && folds[i-1].TestTo != f.TestFrom {
			t.Error(folds[i-1], f, "are not contiguous")
		}
	}
	if folds[len(folds)-1].TestTo != end {
		t.Error(folds[len(folds)-1], "does not reach", end)
	}
}

func TestBuildFoldsExample(t *testing.T) {
	folds, err := BuildFolds(10, 110, WalkForward{Folds: 3, TrainRatio: 0.4})
	if err != nil {
		t.Fatal(err)
	}
	want := []Fold{
		{Index: 0, TrainFrom: 10, TrainTo: 50, TestFrom: 50, TestTo: 70},
		{Index: 1, TrainFrom: 10, TrainTo: 70, TestFrom: 70, TestTo: 90},
		{Index: 2, TrainFrom: 10, TrainTo: 90, TestFrom: 90, TestTo: 110},
	}
	for i := range want {
		if folds[i] != want[i] {
			t.Error(folds[i], "is not", want[i])
		}
	}
}

func TestBuildFoldsTooShort(t *testing.T) {
	if _, err := BuildFolds(0, 12, WalkForward{Folds: 4, TrainRatio: 0.9}); !models.IsDataError(err) {
		t.Error(err, "is not a data error")
	}
	if _, err := BuildFolds(0, 100, WalkForward{Folds: 0, TrainRatio: 0.5}); !models.IsConfigurationError(err) {
		t.Error(err, "is not a configuration error")
	}
}

func TestFitnessModes(t *testing.T) {
	folds := []models.FoldResult{
		{NetReturn: 0.1, Sharpe: 1},
		{NetReturn: -0.2, Sharpe: 3},
		{NetReturn: 0.3, Sharpe: 2},
	}
	cases := []struct {
		fitness Fitness
		want    float64
	}{
		{Fitness{Mode: MeanSharpe}, 2},
		{Fitness{Mode: MedianReturn}, 0.1},
		{Fitness{Mode: WorstReturn}, -0.2},
		{Fitness{Mode: Weighted, ReturnWeight: 10, SharpeWeight: 0.5}, 10*(0.2/3) + 1},
	}
	for _, c := range cases {
		if got := c.fitness.Score(folds); got-c.want > 1e-12 || c.want-got > 1e-12 {
			t.Error(c.fitness.Mode, got, "is not", c.want)
		}
	}
	if got := (Fitness{}).Score(nil); got != WorstFitness {
		t.Error(got, "is not", WorstFitness)
	}
}
