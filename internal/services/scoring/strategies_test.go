package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeScore/internal/domain/models"
)

func TestBreakoutOnVolumeSpikeIsBuy(t *testing.T) {
	base := geometric(60, 100, 0.002)
	series := withLast(base, base[58].Close*1.04, 5000)

	res := NewBreakoutScorer().Score(request(models.StrategyBreakout, series))
	require.Empty(t, res.Error)

	assert.Equal(t, 1.0, res.SubScores["breakout_strength"])
	assert.Equal(t, 1.0, res.SubScores["volume_confirmation"])
	assert.Equal(t, models.SignalBuy, res.Signal)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	assert.Contains(t, res.Signals, "volume confirmed")
	assert.InDelta(t, 5.0, res.Indicators["volume_ratio"], 1e-9)
}

func TestBreakoutNeverSells(t *testing.T) {
	res := NewBreakoutScorer().Score(request(models.StrategyBreakout, geometric(60, 100, -0.003)))
	require.Empty(t, res.Error)
	assert.LessOrEqual(t, res.TotalScore, SellThreshold)
	assert.Equal(t, models.SignalHold, res.Signal)
}

func TestTrendFollowsDirection(t *testing.T) {
	s := NewTrendScorer()

	up := s.Score(request(models.StrategyTrend, geometric(100, 100, 0.005)))
	require.Empty(t, up.Error)
	assert.Equal(t, 1.0, up.SubScores["ma_alignment"])
	assert.Equal(t, 1.0, up.SubScores["ma_slope"])
	assert.Greater(t, up.SubScores["trend_strength"], 0.9)
	assert.Equal(t, models.SignalBuy, up.Signal)

	down := s.Score(request(models.StrategyTrend, geometric(100, 100, -0.005)))
	require.Empty(t, down.Error)
	assert.Equal(t, 0.0, down.SubScores["ma_alignment"])
	assert.Equal(t, 0.0, down.SubScores["ma_slope"])
	assert.Less(t, down.SubScores["trend_strength"], 0.1)
	assert.Equal(t, models.SignalSell, down.Signal)
}

func TestMeanReversionFadesExtremes(t *testing.T) {
	s := NewMeanReversionScorer()
	base := wave(60, 100, 0.01)

	dip := s.Score(request(models.StrategyMeanReversion, withLast(base, 90, 1000)))
	require.Empty(t, dip.Error)
	assert.Equal(t, 1.0, dip.SubScores["deviation"])
	assert.Equal(t, 1.0, dip.SubScores["band_position"])
	assert.Equal(t, models.SignalBuy, dip.Signal)
	assert.Less(t, dip.Indicators["zscore"], -2.0)

	rip := s.Score(request(models.StrategyMeanReversion, withLast(base, 110, 1000)))
	require.Empty(t, rip.Error)
	assert.Equal(t, 0.0, rip.SubScores["deviation"])
	assert.Equal(t, models.SignalSell, rip.Signal)
}

func TestMeanReversionFlatSeriesIsNeutral(t *testing.T) {
	res := NewMeanReversionScorer().Score(request(models.StrategyMeanReversion, flat(30, 10)))
	require.Empty(t, res.Error)
	assert.InDelta(t, 0.5, res.TotalScore, 1e-12)
	assert.Equal(t, models.SignalHold, res.Signal)
	assert.Equal(t, 1.0, res.Confidence)
}
