package features

import (
	"math"

	"github.com/markcheno/go-talib"

	"TradeScore/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles models.CandleSeries) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].Close, candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the trailing window
// using the provided number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum, sum2 := 0.0, 0.0
	for _, r := range logReturns[len(logReturns)-window:] {
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear returns the approximate number of bars per year for a timeframe.
func BarsPerYear(tf models.Timeframe) float64 {
	d := tf.Duration()
	if d <= 0 {
		d = models.DefaultTimeframe().Duration()
	}
	return (365 * 24 * 60 * 60) / d.Seconds()
}

// LastValid returns the newest finite value of a talib output series.
func LastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

// Mean of a slice, 0 when empty.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// StdDev is the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	v := 0.0
	for _, x := range xs {
		v += (x - m) * (x - m)
	}
	return math.Sqrt(v / float64(len(xs)))
}

// MaxOf and MinOf return the extremes, 0 for an empty slice.
func MaxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Max(m, x)
	}
	return m
}

func MinOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return m
}

const autoWindow = 20

// AutoIndicators derives the journal's indicator set from a candle window. Keys whose window is
// longer than the series are omitted rather than reported as zero.
func AutoIndicators(s models.CandleSeries, tf models.Timeframe) map[string]float64 {
	out := map[string]float64{}
	if s.Empty() {
		return out
	}
	closes, highs, lows, vols := s.Closes(), s.Highs(), s.Lows(), s.Volumes()
	last := s.Last()
	out["close"] = last.Close
	out["volume"] = last.Volume

	if n := len(s); n > autoWindow {
		prevHighs := highs[n-autoWindow-1 : n-1]
		prevLows := lows[n-autoWindow-1 : n-1]
		prevVols := vols[n-autoWindow-1 : n-1]
		out["prev_range_high"] = MaxOf(prevHighs)
		out["prev_range_low"] = MinOf(prevLows)
		out["average_volume"] = Mean(prevVols)
		if avg := out["average_volume"]; avg > 0 {
			out["volume_ratio"] = last.Volume / avg
		}
	}
	if len(s) >= autoWindow {
		sma := LastValid(talib.Sma(closes, autoWindow))
		sd := StdDev(closes[len(closes)-autoWindow:])
		out["sma_20"] = sma
		out["ema_20"] = LastValid(talib.Ema(closes, autoWindow))
		if sd > 0 {
			out["zscore_20"] = (last.Close - sma) / sd
		}
	}
	if len(s) > 14 {
		out["rsi_14"] = LastValid(talib.Rsi(closes, 14))
		out["atr_14"] = LastValid(talib.Atr(highs, lows, closes, 14))
	}
	if rets := ComputeLogReturns(s); len(rets) >= autoWindow {
		out["realized_vol"] = RealizedVolatility(rets, autoWindow, BarsPerYear(tf))
	}
	return out
}

// MergeIndicators overlays explicit values on auto-computed ones key by key. Explicit always wins;
// neither input is modified.
func MergeIndicators(auto, explicit map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(auto)+len(explicit))
	for k, v := range auto {
		out[k] = v
	}
	for k, v := range explicit {
		out[k] = v
	}
	return out
}
