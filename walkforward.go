package krypto

import (
	"fmt"

	"github.com/tantralabs/krypto/models"
)

// Fold is one train/test split. Training covers [TrainFrom, TrainTo) and always ends
// where the test window [TestFrom, TestTo) begins.
type Fold struct {
	Index     int `json:"index"`
	TrainFrom int `json:"train_from"`
	TrainTo   int `json:"train_to"`
	TestFrom  int `json:"test_from"`
	TestTo    int `json:"test_to"`
}

func (f Fold) String() string {
	return fmt.Sprintf("fold %d train [%d, %d) test [%d, %d)", f.Index, f.TrainFrom, f.TrainTo, f.TestFrom, f.TestTo)
}

// WalkForward configures fold construction.
type WalkForward struct {
	Folds       int     // number of test segments
	TrainRatio  float64 // share of the usable range used as the first training block
	TrainWindow int     // trailing training periods, 0 trains on everything before the test segment
	MinTrain    int
	MinTest     int
}

// Minimum segment sizes when WalkForward leaves them unset.
const (
	DefaultMinTrain = 10
	DefaultMinTest  = 2
)

// BuildFolds splits the usable periods [start, end) into an initial training block followed
// by Folds contiguous test segments; the last segment absorbs the remainder.
func BuildFolds(start, end int, wf WalkForward) ([]Fold, error) {
	const op = "krypto.BuildFolds"
	minTrain, minTest := wf.MinTrain, wf.MinTest
	if minTrain <= 0 {
		minTrain = DefaultMinTrain
	}
	if minTest <= 0 {
		minTest = DefaultMinTest
	}
	if wf.Folds < 1 {
		return nil, models.NewConfigurationError("cross_validations", "%d < 1", wf.Folds)
	}
	if wf.TrainRatio <= 0 || wf.TrainRatio >= 1 {
		return nil, models.NewConfigurationError("train_ratio", "%v outside (0, 1)", wf.TrainRatio)
	}
	if start < 0 {
		start = 0
	}
	length := end - start
	if length <= 0 {
		return nil, models.NewDataError(op, "no usable periods in [%d, %d)", start, end)
	}

	train := int(float64(length) * wf.TrainRatio)
	if train < minTrain {
		return nil, models.NewDataError(op, "initial training block of %d periods is shorter than %d", train, minTrain)
	}
	segment := (length - train) / wf.Folds
	if segment < minTest {
		return nil, models.NewDataError(op, "%d periods left for %d test segments of at least %d", length-train, wf.Folds, minTest)
	}

	folds := make([]Fold, wf.Folds)
	for k := range folds {
		testFrom := start + train + k*segment
		testTo := testFrom + segment
		if k == wf.Folds-1 {
			testTo = end
		}
		trainFrom := start
		if wf.TrainWindow > 0 && testFrom-wf.TrainWindow > start {
			trainFrom = testFrom - wf.TrainWindow
		}
		if testFrom-trainFrom < minTrain {
			return nil, models.NewDataError(op, "fold %d trains on %d periods, fewer than %d", k, testFrom-trainFrom, minTrain)
		}
		folds[k] = Fold{Index: k, TrainFrom: trainFrom, TrainTo: testFrom, TestFrom: testFrom, TestTo: testTo}
	}
	return folds, nil
}
