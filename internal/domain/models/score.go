package models

import (
	"math"
	"sort"
	"time"
)

// Signal is the directional call derived from a total score.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// StrategyID names a registered strategy scorer.
type StrategyID string

const (
	StrategyBreakout      StrategyID = "breakout"
	StrategyTrend         StrategyID = "trend"
	StrategyMeanReversion StrategyID = "mean_reversion"
)

// DefaultStrategyName is used when an inbound event does not name a strategy.
const DefaultStrategyName = "BreakoutStrategy"

// ScoreRequest is everything a scorer needs for one evaluation.
type ScoreRequest struct {
	Symbol            string
	Timeframe         Timeframe
	Candles           CandleSeries
	Strategy          StrategyID
	Parameters        map[string]float64
	IncludeIndicators bool
	IncludeSignals    bool
}

// SubScores maps a named sub-criterion to a value in [0,1].
type SubScores map[string]float64

// ScoreResult is a scorer's output. When Error is set every other score field is zero.
type ScoreResult struct {
	Symbol     string             `json:"symbol"`
	Strategy   StrategyID         `json:"strategy"`
	Timestamp  time.Time          `json:"timestamp"`
	TotalScore float64            `json:"total_score"`
	Signal     Signal             `json:"signal,omitempty"`
	Confidence float64            `json:"confidence"`
	SubScores  SubScores          `json:"sub_scores,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Signals    []string           `json:"signals,omitempty"`
	Reasoning  string             `json:"reasoning,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func (r ScoreResult) HasError() bool { return r.Error != "" }

// FailedResult builds the error-marked result for a request.
func FailedResult(req ScoreRequest, msg string) ScoreResult {
	res := ScoreResult{Symbol: req.Symbol, Strategy: req.Strategy, Error: msg}
	if !req.Candles.Empty() {
		res.Timestamp = req.Candles.Last().Timestamp
	}
	return res
}

// Budgets for the two halves of the final score.
const (
	StrategyPoints  = 60
	ForbiddenPoints = 40
	MaxFinalScore   = StrategyPoints + ForbiddenPoints
)

// FinalScore is the 0-100 composite: strategy points plus retained forbidden-rule points.
type FinalScore struct {
	StrategyScore    int `json:"strategy_score"`
	ForbiddenPenalty int `json:"forbidden_penalty"`
	FinalScore       int `json:"final_score"`
}

// Clamp01 bounds v to [0,1]; NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// WeightTable is the fixed, versioned weighting a strategy applies to its sub-scores.
type WeightTable struct {
	Version string             `json:"version"`
	Weights map[string]float64 `json:"weights"`
}

// Sum returns the total weight. A well formed table sums to 1.
func (w WeightTable) Sum() float64 {
	s := 0.0
	for _, v := range w.Weights {
		s += v
	}
	return s
}

// Criteria returns the sub-score names in a stable order.
func (w WeightTable) Criteria() []string {
	keys := make([]string, 0, len(w.Weights))
	for k := range w.Weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Combine returns Σ weight·sub over the table's criteria, summed in Criteria order so the result is
// bit-for-bit reproducible. Missing sub-scores count as 0.
func (w WeightTable) Combine(subs SubScores) float64 {
	total := 0.0
	for _, k := range w.Criteria() {
		total += w.Weights[k] * subs[k]
	}
	return total
}

func (w WeightTable) Clone() WeightTable {
	out := WeightTable{Version: w.Version, Weights: make(map[string]float64, len(w.Weights))}
	for k, v := range w.Weights {
		out.Weights[k] = v
	}
	return out
}
