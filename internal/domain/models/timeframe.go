package models

import (
	"strings"
	"time"
)

// Timeframe is a candle resolution.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF1h:  time.Hour,
	TF4h:  4 * time.Hour,
	TF1d:  24 * time.Hour,
}

// DefaultTimeframe matches the bar size the scorers were tuned on.
func DefaultTimeframe() Timeframe { return TF5m }

func IsValidTimeframe(tf Timeframe) bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// NormalizeTimeframe lowercases and validates raw input, falling back to the default.
func NormalizeTimeframe(s string) Timeframe {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if IsValidTimeframe(tf) {
		return tf
	}
	switch tf {
	case "60m":
		return TF1h
	case "1440m", "24h":
		return TF1d
	}
	return DefaultTimeframe()
}

// Duration returns the bar length, or 0 for an unknown timeframe.
func (tf Timeframe) Duration() time.Duration { return timeframeDurations[tf] }

func (tf Timeframe) String() string { return string(tf) }
