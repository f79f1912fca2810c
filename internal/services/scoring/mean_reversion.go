package scoring

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"TradeScore/internal/domain/models"
	"TradeScore/internal/services/features"
)

const (
	MeanRevWindow     = "window"
	MeanRevZScale     = "z_scale"
	MeanRevRSIPeriod  = "rsi_period"
	MeanRevBandStdDev = "band_stddev"
)

var meanReversionWeights = models.WeightTable{
	Version: "mean_reversion/v1",
	Weights: map[string]float64{
		"deviation":     0.4,
		"rsi_extreme":   0.3,
		"band_position": 0.3,
	},
}

// MeanReversionScorer favors buying stretched-down prices and selling stretched-up ones.
//
//	deviation     = clamp(0.5 - z/(2*z_scale)), z = (close - SMA(window)) / stddev(window)
//	rsi_extreme   = clamp((70 - RSI) / 40)
//	band_position = clamp(1 - (close-lower)/(upper-lower)), 0.5 for a flat band
type MeanReversionScorer struct{}

func NewMeanReversionScorer() *MeanReversionScorer { return &MeanReversionScorer{} }

func (s *MeanReversionScorer) ID() models.StrategyID       { return models.StrategyMeanReversion }
func (s *MeanReversionScorer) MinCandles() int             { return 20 }
func (s *MeanReversionScorer) ShortSide() bool             { return true }
func (s *MeanReversionScorer) Weights() models.WeightTable { return meanReversionWeights.Clone() }

func (s *MeanReversionScorer) Score(req models.ScoreRequest) models.ScoreResult {
	p := Params(req.Parameters)
	window := p.Int(MeanRevWindow, 20)
	zScale := p.Float(MeanRevZScale, 2)
	rsiPeriod := p.Int(MeanRevRSIPeriod, 14)
	bandK := p.Float(MeanRevBandStdDev, 2)
	if window < 2 {
		window = 2
	}

	need := maxInt(s.MinCandles(), window, rsiPeriod+1)
	if msg := checkSeries(req.Candles, need); msg != "" {
		return models.FailedResult(withStrategy(req, s.ID()), msg)
	}

	closes := req.Candles.Closes()
	n := len(closes)
	last := closes[n-1]
	recent := closes[n-window:]

	mean := features.Mean(recent)
	sd := features.StdDev(recent)
	z := 0.0
	if sd > 0 {
		z = (last - mean) / sd
	}

	upper, _, lower := talib.BBands(closes, window, bandK, bandK, talib.SMA)
	up, lo := upper[n-1], lower[n-1]
	bandPos := 0.5
	if width := up - lo; width > 0 {
		bandPos = (last - lo) / width
	}

	momentum := rsi(closes, rsiPeriod)

	subs := models.SubScores{
		"deviation":     0.5 - z/(2*zScale),
		"rsi_extreme":   (70 - momentum) / 40,
		"band_position": 1 - bandPos,
	}
	if up-lo <= 0 {
		subs["band_position"] = 0.5
	}

	var signals []string
	switch {
	case z <= -zScale:
		signals = append(signals, "stretched below mean")
	case z >= zScale:
		signals = append(signals, "stretched above mean")
	default:
		signals = append(signals, "near mean")
	}
	switch {
	case momentum <= 30:
		signals = append(signals, "RSI oversold")
	case momentum >= 70:
		signals = append(signals, "RSI overbought")
	}

	return finish(req, s.ID(), meanReversionWeights, s.ShortSide(), evaluation{
		subs: subs,
		indicators: map[string]float64{
			"sma":      mean,
			"stddev":   sd,
			"zscore":   z,
			"bb_upper": up,
			"bb_lower": lo,
			"rsi":      momentum,
			"band_pos": bandPos,
		},
		signals: signals,
		reasoning: joinReasons(
			fmt.Sprintf("close %.4g is %.2f sigma from its %d-bar mean %.4g", last, z, window, mean),
			fmt.Sprintf("RSI(%d) %.1f", rsiPeriod, momentum),
			fmt.Sprintf("band position %.2f within %.1f-sigma Bollinger bands", bandPos, bandK),
		),
	})
}
