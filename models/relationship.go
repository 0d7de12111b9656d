package models

import "fmt"

// Relationship is the averaged lagged correlation between one instrument's indicator
// and a target instrument's percentage change.
type Relationship struct {
	Predictor   string        `json:"predictor" csv:"predictor"`
	Target      string        `json:"target" csv:"target"`
	Indicator   IndicatorType `json:"indicator" csv:"indicator"`
	Depth       int           `json:"depth" csv:"depth"`
	Correlation float64       `json:"correlation" csv:"correlation"`
	Weight      float64       `json:"weight" csv:"weight"`
}

func (r Relationship) String() string {
	return fmt.Sprintf("%s[%s,-%d] -> %s: %.4f x %.2f", r.Predictor, r.Indicator, r.Depth, r.Target, r.Correlation, r.Weight)
}
