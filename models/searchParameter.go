package models

import "math"

// ParameterKind tells the genetic operators how to treat a SearchParameter.
type ParameterKind int

const (
	Continuous ParameterKind = iota
	Integer
	Categorical
	Set
)

func (k ParameterKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Categorical:
		return "categorical"
	case Set:
		return "set"
	}
	return "unknown"
}

// SearchParameter specify the min and max range as well as the decimal to round to.
// Categorical and Set parameters range over the indexes of Choices.
type SearchParameter struct {
	Name     string
	Kind     ParameterKind
	Choices  []string
	min      float64
	max      float64
	decimals int
}

// NewSearchParameter Create a new search domain for a parameter to search between a min and max, and round to a decimal place
func NewSearchParameter(name string, min float64, max float64, decimals int) SearchParameter {
	return SearchParameter{
		Name:     name,
		Kind:     Continuous,
		min:      min,
		max:      max,
		decimals: decimals,
	}
}

// NewIntegerParameter searches whole numbers in [min, max].
func NewIntegerParameter(name string, min int, max int) SearchParameter {
	return SearchParameter{
		Name: name,
		Kind: Integer,
		min:  float64(min),
		max:  float64(max),
	}
}

// NewCategoricalParameter picks exactly one of choices.
func NewCategoricalParameter(name string, choices []string) SearchParameter {
	return SearchParameter{
		Name:    name,
		Kind:    Categorical,
		Choices: choices,
		min:     0,
		max:     float64(len(choices) - 1),
	}
}

// NewSetParameter picks any subset of choices.
func NewSetParameter(name string, choices []string) SearchParameter {
	return SearchParameter{
		Name:    name,
		Kind:    Set,
		Choices: choices,
		min:     0,
		max:     float64(len(choices) - 1),
	}
}

func (p SearchParameter) GetMin() float64 {
	return p.min
}

func (p SearchParameter) GetMax() float64 {
	return p.max
}

func (p SearchParameter) GetDecimals() int {
	return p.decimals
}

// Fixed reports whether the parameter has a single possible value.
func (p SearchParameter) Fixed() bool {
	return p.max <= p.min
}

// Clamp constrains a value to the parameter's bounds and precision.
func (p SearchParameter) Clamp(value float64) float64 {
	v := math.Max(p.min, math.Min(value, p.max))
	if p.Kind == Continuous {
		return ToFixed(v, p.decimals)
	}
	return math.Round(v)
}

func ToFixed(num float64, precision int) float64 {
	output := math.Pow(10, float64(precision))
	return float64(round(num*output)) / output
}

func round(num float64) int {
	return int(num + math.Copysign(0.5, num))
}
