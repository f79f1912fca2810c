package scoring

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"TradeScore/internal/domain/models"
	"TradeScore/internal/services/features"
)

const (
	TrendFastPeriod  = "fast_period"
	TrendMidPeriod   = "mid_period"
	TrendSlowPeriod  = "slow_period"
	TrendSlopeWindow = "slope_window"
	TrendSlopeScale  = "slope_scale"
	TrendADXPeriod   = "adx_period"
	TrendADXScale    = "adx_scale"
)

var trendWeights = models.WeightTable{
	Version: "trend/v1",
	Weights: map[string]float64{
		"ma_alignment":   0.4,
		"ma_slope":       0.3,
		"trend_strength": 0.3,
	},
}

// TrendScorer checks EMA stacking, the slope of the mid EMA and ADX strength signed by the
// dominant directional index. A clean downtrend scores near 0 and reads as sell.
//
//	ma_alignment   = share of {close>fast, fast>mid, mid>slow} that hold
//	ma_slope       = clamp(0.5 + slope(midEMA over slope_window) / (2*slope_scale))
//	trend_strength = 0.5 ± 0.5*clamp(ADX/adx_scale), + when +DI >= -DI
type TrendScorer struct{}

func NewTrendScorer() *TrendScorer { return &TrendScorer{} }

func (s *TrendScorer) ID() models.StrategyID       { return models.StrategyTrend }
func (s *TrendScorer) MinCandles() int             { return 50 }
func (s *TrendScorer) ShortSide() bool             { return true }
func (s *TrendScorer) Weights() models.WeightTable { return trendWeights.Clone() }

func (s *TrendScorer) Score(req models.ScoreRequest) models.ScoreResult {
	p := Params(req.Parameters)
	fast := p.Int(TrendFastPeriod, 10)
	mid := p.Int(TrendMidPeriod, 20)
	slow := p.Int(TrendSlowPeriod, 50)
	slopeWindow := p.Int(TrendSlopeWindow, 5)
	slopeScale := p.Float(TrendSlopeScale, 0.01)
	adxPeriod := p.Int(TrendADXPeriod, 14)
	adxScale := p.Float(TrendADXScale, 50)

	need := maxInt(s.MinCandles(), slow, fast, mid+slopeWindow+1, 2*adxPeriod+1)
	if msg := checkSeries(req.Candles, need); msg != "" {
		return models.FailedResult(withStrategy(req, s.ID()), msg)
	}

	c := req.Candles
	closes, highs, lows := c.Closes(), c.Highs(), c.Lows()
	n := len(closes)
	last := closes[n-1]

	emaFast := features.LastValid(talib.Ema(closes, fast))
	emaMidSeries := talib.Ema(closes, mid)
	emaMid := emaMidSeries[n-1]
	emaSlow := features.LastValid(talib.Ema(closes, slow))

	aligned := 0
	for _, ok := range []bool{last > emaFast, emaFast > emaMid, emaMid > emaSlow} {
		if ok {
			aligned++
		}
	}

	slope := 0.0
	if prev := emaMidSeries[n-1-slopeWindow]; prev > 0 {
		slope = (emaMid - prev) / prev
	}

	adx := features.LastValid(talib.Adx(highs, lows, closes, adxPeriod))
	plusDI := features.LastValid(talib.PlusDI(highs, lows, closes, adxPeriod))
	minusDI := features.LastValid(talib.MinusDI(highs, lows, closes, adxPeriod))
	strength := models.Clamp01(adx / adxScale)
	direction := 1.0
	if plusDI < minusDI {
		direction = -1
	}

	subs := models.SubScores{
		"ma_alignment":   float64(aligned) / 3,
		"ma_slope":       0.5 + slope/(2*slopeScale),
		"trend_strength": 0.5 + direction*strength/2,
	}

	var signals []string
	switch aligned {
	case 3:
		signals = append(signals, "EMAs stacked bullish")
	case 0:
		signals = append(signals, "EMAs stacked bearish")
	default:
		signals = append(signals, "EMAs mixed")
	}
	if adx >= 25 {
		if direction > 0 {
			signals = append(signals, "strong uptrend")
		} else {
			signals = append(signals, "strong downtrend")
		}
	} else {
		signals = append(signals, "weak trend")
	}

	return finish(req, s.ID(), trendWeights, s.ShortSide(), evaluation{
		subs: subs,
		indicators: map[string]float64{
			"ema_fast":  emaFast,
			"ema_mid":   emaMid,
			"ema_slow":  emaSlow,
			"slope_pct": round2(slope * 100),
			"adx":       adx,
			"plus_di":   plusDI,
			"minus_di":  minusDI,
		},
		signals: signals,
		reasoning: joinReasons(
			fmt.Sprintf("%d/3 EMA(%d/%d/%d) alignment checks hold", aligned, fast, mid, slow),
			fmt.Sprintf("EMA(%d) slope %+.2f%% over %d bars", mid, slope*100, slopeWindow),
			fmt.Sprintf("ADX(%d) %.1f, +DI %.1f vs -DI %.1f", adxPeriod, adx, plusDI, minusDI),
		),
	})
}
