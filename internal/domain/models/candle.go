package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DefaultMaxLookback bounds how many candles a series keeps (newest wins).
const DefaultMaxLookback = 100

// Candle is one OHLCV bar. Treat as immutable once built.
type Candle struct {
	Symbol    string    `json:"symbol,omitempty"`
	Timeframe Timeframe `json:"timeframe,omitempty"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Open      float64   `json:"open" validate:"gt=0"`
	High      float64   `json:"high" validate:"gt=0"`
	Low       float64   `json:"low" validate:"gt=0"`
	Close     float64   `json:"close" validate:"gt=0"`
	Volume    float64   `json:"volume" validate:"gte=0"`
}

// Validate checks the OHLC envelope: positive prices, high >= max(open, close) >= min(open, close) >= low.
func (c Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("candle %s: non-finite value", c.Timestamp.Format(time.RFC3339))
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("candle %s: prices must be positive", c.Timestamp.Format(time.RFC3339))
	}
	if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
		return fmt.Errorf("candle %s: high/low do not bound open/close", c.Timestamp.Format(time.RFC3339))
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %s: negative volume", c.Timestamp.Format(time.RFC3339))
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("candle: missing timestamp")
	}
	return nil
}

// CandleSeries is an oldest-first window of candles for one symbol/timeframe with strictly
// increasing timestamps. Build it with NewCandleSeries so those properties hold.
type CandleSeries []Candle

// NewCandleSeries validates every candle, orders them oldest first, collapses duplicate
// timestamps (the later entry in the input wins) and keeps at most maxLookback of the newest bars.
// maxLookback <= 0 means DefaultMaxLookback.
func NewCandleSeries(candles []Candle, maxLookback int) (CandleSeries, error) {
	if maxLookback <= 0 {
		maxLookback = DefaultMaxLookback
	}
	if len(candles) == 0 {
		return CandleSeries{}, nil
	}

	byTS := make(map[int64]int, len(candles))
	out := make([]Candle, 0, len(candles))
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("candle %d: %w", i, err)
		}
		key := c.Timestamp.UnixNano()
		if idx, dup := byTS[key]; dup {
			out[idx] = c
			continue
		}
		byTS[key] = len(out)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	if len(out) > maxLookback {
		out = out[len(out)-maxLookback:]
	}
	return CandleSeries(out), nil
}

func (s CandleSeries) Len() int { return len(s) }

func (s CandleSeries) Empty() bool { return len(s) == 0 }

// Last returns the newest candle. The caller must check Empty first.
func (s CandleSeries) Last() Candle { return s[len(s)-1] }

func (s CandleSeries) Closes() []float64  { return s.column(func(c Candle) float64 { return c.Close }) }
func (s CandleSeries) Opens() []float64   { return s.column(func(c Candle) float64 { return c.Open }) }
func (s CandleSeries) Highs() []float64   { return s.column(func(c Candle) float64 { return c.High }) }
func (s CandleSeries) Lows() []float64    { return s.column(func(c Candle) float64 { return c.Low }) }
func (s CandleSeries) Volumes() []float64 { return s.column(func(c Candle) float64 { return c.Volume }) }

func (s CandleSeries) column(pick func(Candle) float64) []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = pick(c)
	}
	return out
}

// Before returns the bars whose timestamp is <= anchor, keeping order.
func (s CandleSeries) Before(anchor time.Time) CandleSeries {
	idx := sort.Search(len(s), func(i int) bool { return s[i].Timestamp.After(anchor) })
	return s[:idx]
}

// Tail returns the newest n bars (or the whole series when shorter).
func (s CandleSeries) Tail(n int) CandleSeries {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}
