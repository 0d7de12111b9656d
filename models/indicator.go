package models

import (
	"fmt"
	"strings"
)

// IndicatorType is the ordinal of a technical indicator inside an IndicatorVector.
type IndicatorType int

const (
	PercentageChangeIndicator IndicatorType = iota
	CandlestickRatio
	Stochastic
	RSI
	CCI
	VolumeChange

	// NumIndicators is the size of every IndicatorVector.
	NumIndicators = int(VolumeChange) + 1
)

var indicatorNames = [NumIndicators]string{
	"percentage_change",
	"candlestick_ratio",
	"stochastic",
	"rsi",
	"cci",
	"volume_change",
}

func (i IndicatorType) String() string {
	if i < 0 || int(i) >= NumIndicators {
		return fmt.Sprintf("indicator(%d)", int(i))
	}
	return indicatorNames[i]
}

// AllIndicators lists every indicator in ordinal order.
func AllIndicators() []IndicatorType {
	out := make([]IndicatorType, NumIndicators)
	for i := range out {
		out[i] = IndicatorType(i)
	}
	return out
}

// ParseIndicator maps a configuration name to its indicator type.
func ParseIndicator(name string) (IndicatorType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, known := range indicatorNames {
		if n == known {
			return IndicatorType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown indicator %q", name)
}

// IndicatorVector holds one value per indicator type for a single candle.
type IndicatorVector [NumIndicators]float64

// IndicatorSet is a bitmask of enabled indicators.
type IndicatorSet uint32

// NewIndicatorSet builds a set from a list of indicator types.
func NewIndicatorSet(types ...IndicatorType) IndicatorSet {
	var s IndicatorSet
	for _, t := range types {
		s = s.With(t)
	}
	return s
}

// ParseIndicatorSet builds a set from configuration names.
func ParseIndicatorSet(names []string) (IndicatorSet, error) {
	var s IndicatorSet
	for _, name := range names {
		t, err := ParseIndicator(name)
		if err != nil {
			return 0, err
		}
		s = s.With(t)
	}
	return s, nil
}

func (s IndicatorSet) Has(t IndicatorType) bool {
	return s&(1<<uint(t)) != 0
}

func (s IndicatorSet) With(t IndicatorType) IndicatorSet {
	return s | 1<<uint(t)
}

// Types returns the enabled indicators in ordinal order.
func (s IndicatorSet) Types() []IndicatorType {
	out := make([]IndicatorType, 0, NumIndicators)
	for i := 0; i < NumIndicators; i++ {
		if s.Has(IndicatorType(i)) {
			out = append(out, IndicatorType(i))
		}
	}
	return out
}

func (s IndicatorSet) Len() int {
	return len(s.Types())
}

func (s IndicatorSet) Names() []string {
	types := s.Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

func (s IndicatorSet) String() string {
	return strings.Join(s.Names(), ",")
}
