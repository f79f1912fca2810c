// Package scoring holds the strategy scorers, their registry and the final score aggregation.
// Scorers are pure: no I/O, no shared state, safe to call from any goroutine.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/markcheno/go-talib"

	"TradeScore/internal/domain/models"
	"TradeScore/internal/services/features"
)

// Signal thresholds on the [0,1] total score. Engine-wide, never per call.
const (
	BuyThreshold  = 0.65
	SellThreshold = 0.35
)

// totals further than this outside [0,1] are reported as clipped
const clipTolerance = 1e-9

// DeriveSignal maps a total score to buy/sell/hold. Long-only strategies never emit sell.
func DeriveSignal(total float64, shortSide bool) models.Signal {
	switch {
	case total >= BuyThreshold:
		return models.SignalBuy
	case total <= SellThreshold && shortSide:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}

// Confidence measures how much the sub-scores agree: 1 when they are identical, 0 when they are
// spread as far apart as [0,1] allows. It does not look at the total.
func Confidence(subs models.SubScores, criteria []string) float64 {
	if len(criteria) == 0 {
		return 0
	}
	vals := make([]float64, 0, len(criteria))
	for _, k := range criteria {
		vals = append(vals, subs[k])
	}
	return models.Clamp01(1 - 2*features.StdDev(vals))
}

// evaluation is what a strategy computes before the shared finishing steps.
type evaluation struct {
	subs       models.SubScores
	indicators map[string]float64
	signals    []string
	reasoning  string
}

// finish combines sub-scores through the weight table and fills the common result fields.
func finish(req models.ScoreRequest, id models.StrategyID, weights models.WeightTable, shortSide bool, ev evaluation) models.ScoreResult {
	criteria := weights.Criteria()
	for _, k := range criteria {
		ev.subs[k] = models.Clamp01(ev.subs[k])
	}

	res := models.ScoreResult{
		Symbol:    req.Symbol,
		Strategy:  id,
		Timestamp: req.Candles.Last().Timestamp,
		SubScores: ev.subs,
		Reasoning: ev.reasoning,
	}

	total := weights.Combine(ev.subs)
	if total < -clipTolerance || total > 1+clipTolerance {
		res.Warnings = append(res.Warnings, fmt.Sprintf("total %.6f outside [0,1], clipped", total))
	}
	res.TotalScore = models.Clamp01(total)
	res.Signal = DeriveSignal(res.TotalScore, shortSide)
	res.Confidence = Confidence(ev.subs, criteria)

	if req.IncludeIndicators {
		res.Indicators = finite(ev.indicators)
	}
	if req.IncludeSignals {
		res.Signals = ev.signals
	}
	return res
}

// checkSeries returns a non-empty error marker when the series cannot be scored.
func checkSeries(s models.CandleSeries, need int) string {
	if s.Empty() {
		return "empty candle series"
	}
	if s.Len() < need {
		return fmt.Sprintf("insufficient candles: need %d, got %d", need, s.Len())
	}
	for i := 1; i < len(s); i++ {
		if !s[i].Timestamp.After(s[i-1].Timestamp) {
			return fmt.Sprintf("candles not strictly increasing at index %d", i)
		}
	}
	return ""
}

// Params reads strategy parameters with defaults. Missing, non-finite and non-positive values fall
// back to the default.
type Params map[string]float64

func (p Params) Float(name string, def float64) float64 {
	v, ok := p[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return def
	}
	return v
}

func (p Params) Int(name string, def int) int {
	v := int(math.Round(p.Float(name, float64(def))))
	if v < 1 {
		return def
	}
	return v
}

// rsi wraps talib.Rsi, which reports 0 for a window without any price change; that reads as
// "oversold", so a flat window is reported as the neutral 50 instead.
func rsi(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 50
	}
	tail := closes[len(closes)-period-1:]
	if features.MaxOf(tail) == features.MinOf(tail) {
		return 50
	}
	return features.LastValid(talib.Rsi(closes, period))
}

// finite drops NaN/Inf entries, which JSON cannot carry.
func finite(m map[string]float64) map[string]float64 {
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			delete(m, k)
		}
	}
	return m
}

func maxInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func joinReasons(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "; ")
}
