package scoring

import (
	"fmt"

	"TradeScore/internal/domain/models"
	"TradeScore/internal/services/features"
)

// Breakout parameter names and defaults.
const (
	BreakoutLookback         = "lookback"
	BreakoutVolumeWindow     = "volume_window"
	BreakoutVolumeMultiplier = "volume_multiplier"
	BreakoutMomentumPeriod   = "momentum_period"
	BreakoutScale            = "breakout_scale"
)

var breakoutWeights = models.WeightTable{
	Version: "breakout/v1",
	Weights: map[string]float64{
		"breakout_strength":   0.4,
		"volume_confirmation": 0.3,
		"momentum_alignment":  0.3,
	},
}

// BreakoutScorer rewards a close through the prior range high on above-average volume with
// supportive momentum. Long only.
//
//	breakout_strength   = clamp(0.5 + (close-rangeHigh)/rangeHigh / (2*breakout_scale))
//	volume_confirmation = clamp(lastVolume / avgVolume / volume_multiplier)
//	momentum_alignment  = clamp((RSI - 30) / 40)
type BreakoutScorer struct{}

func NewBreakoutScorer() *BreakoutScorer { return &BreakoutScorer{} }

func (s *BreakoutScorer) ID() models.StrategyID       { return models.StrategyBreakout }
func (s *BreakoutScorer) MinCandles() int             { return 30 }
func (s *BreakoutScorer) ShortSide() bool             { return false }
func (s *BreakoutScorer) Weights() models.WeightTable { return breakoutWeights.Clone() }

func (s *BreakoutScorer) Score(req models.ScoreRequest) models.ScoreResult {
	p := Params(req.Parameters)
	lookback := p.Int(BreakoutLookback, 20)
	volWindow := p.Int(BreakoutVolumeWindow, 20)
	volMult := p.Float(BreakoutVolumeMultiplier, 1.5)
	momPeriod := p.Int(BreakoutMomentumPeriod, 14)
	scale := p.Float(BreakoutScale, 0.02)

	need := maxInt(s.MinCandles(), lookback+1, volWindow+1, momPeriod+1)
	if msg := checkSeries(req.Candles, need); msg != "" {
		return models.FailedResult(withStrategy(req, s.ID()), msg)
	}

	c := req.Candles
	n := c.Len()
	last := c.Last()
	highs, lows, vols, closes := c.Highs(), c.Lows(), c.Volumes(), c.Closes()

	rangeHigh := features.MaxOf(highs[n-1-lookback : n-1])
	rangeLow := features.MinOf(lows[n-1-lookback : n-1])
	excess := (last.Close - rangeHigh) / rangeHigh

	avgVol := features.Mean(vols[n-1-volWindow : n-1])
	volRatio := 1.0
	if avgVol > 0 {
		volRatio = last.Volume / avgVol
	}

	momentum := rsi(closes, momPeriod)

	subs := models.SubScores{
		"breakout_strength":   0.5 + excess/(2*scale),
		"volume_confirmation": volRatio / volMult,
		"momentum_alignment":  (momentum - 30) / 40,
	}

	var signals []string
	switch {
	case last.Close > rangeHigh:
		signals = append(signals, fmt.Sprintf("close above %d-bar high", lookback))
	case last.Close < rangeLow:
		signals = append(signals, fmt.Sprintf("close below %d-bar low", lookback))
	default:
		signals = append(signals, "inside range")
	}
	if volRatio >= volMult {
		signals = append(signals, "volume confirmed")
	}
	if momentum >= 50 {
		signals = append(signals, "momentum bullish")
	} else {
		signals = append(signals, "momentum bearish")
	}

	return finish(req, s.ID(), breakoutWeights, s.ShortSide(), evaluation{
		subs: subs,
		indicators: map[string]float64{
			"range_high":   rangeHigh,
			"range_low":    rangeLow,
			"breakout_pct": round2(excess * 100),
			"volume_ratio": volRatio,
			"rsi":          momentum,
		},
		signals: signals,
		reasoning: joinReasons(
			fmt.Sprintf("close %.4g is %+.2f%% vs %d-bar high %.4g", last.Close, excess*100, lookback, rangeHigh),
			fmt.Sprintf("volume %.2fx its %d-bar average", volRatio, volWindow),
			fmt.Sprintf("RSI(%d) %.1f", momPeriod, momentum),
		),
	})
}

func withStrategy(req models.ScoreRequest, id models.StrategyID) models.ScoreRequest {
	req.Strategy = id
	return req
}
