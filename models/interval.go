package models

import (
	"fmt"
	"time"
)

// Interval is a candle width in exchange notation ("1m", "1h", ...).
type Interval string

const (
	Minute        Interval = "1m"
	ThreeMinutes  Interval = "3m"
	FiveMinutes   Interval = "5m"
	FifteenMinute Interval = "15m"
	ThirtyMinutes Interval = "30m"
	Hour          Interval = "1h"
	TwoHours      Interval = "2h"
	FourHours     Interval = "4h"
	SixHours      Interval = "6h"
	EightHours    Interval = "8h"
	TwelveHours   Interval = "12h"
	Day           Interval = "1d"
	ThreeDays     Interval = "3d"
	Week          Interval = "1w"
)

var intervalDurations = map[Interval]time.Duration{
	Minute:        time.Minute,
	ThreeMinutes:  3 * time.Minute,
	FiveMinutes:   5 * time.Minute,
	FifteenMinute: 15 * time.Minute,
	ThirtyMinutes: 30 * time.Minute,
	Hour:          time.Hour,
	TwoHours:      2 * time.Hour,
	FourHours:     4 * time.Hour,
	SixHours:      6 * time.Hour,
	EightHours:    8 * time.Hour,
	TwelveHours:   12 * time.Hour,
	Day:           24 * time.Hour,
	ThreeDays:     72 * time.Hour,
	Week:          7 * 24 * time.Hour,
}

// ParseInterval validates an interval string.
func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if _, ok := intervalDurations[i]; !ok {
		return "", fmt.Errorf("unknown interval %q", s)
	}
	return i, nil
}

// Duration returns the wall-clock length of one candle, 0 for an unknown interval.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

// Millis is the candle width in milliseconds.
func (i Interval) Millis() int64 {
	return int64(i.Duration() / time.Millisecond)
}

// PeriodsPerYear is the Sharpe annualization factor for this interval.
func (i Interval) PeriodsPerYear() float64 {
	d := i.Duration()
	if d == 0 {
		return 0
	}
	return float64(365*24*time.Hour) / float64(d)
}

func (i Interval) String() string {
	return string(i)
}
