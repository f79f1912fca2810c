package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeScore/internal/domain/models"
)

func series(closes ...float64) models.CandleSeries {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make(models.CandleSeries, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Timestamp: t0.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 100 + float64(i)}
	}
	return out
}

func TestComputeLogReturns(t *testing.T) {
	rets := ComputeLogReturns(series(100, 110, 99))
	require.Len(t, rets, 2)
	assert.InDelta(t, math.Log(1.1), rets[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), rets[1], 1e-12)
	assert.Nil(t, ComputeLogReturns(series(100)))
}

func TestRealizedVolatilityFlatIsZero(t *testing.T) {
	rets := make([]float64, 30)
	assert.Equal(t, 0.0, RealizedVolatility(rets, 20, BarsPerYear(models.TF5m)))
	assert.Equal(t, 0.0, RealizedVolatility(rets[:5], 20, 1))
}

func TestBarsPerYear(t *testing.T) {
	assert.InDelta(t, 365*24*12, BarsPerYear(models.TF5m), 1e-6)
	assert.InDelta(t, 365, BarsPerYear(models.TF1d), 1e-9)
}

func TestMergeIndicatorsExplicitWins(t *testing.T) {
	auto := map[string]float64{"rsi_14": 55, "volume": 1000, "sma_20": 101}
	explicit := map[string]float64{"rsi_14": 30, "volume": 2500, "custom": 1}

	merged := MergeIndicators(auto, explicit)

	assert.Equal(t, map[string]float64{"rsi_14": 30, "volume": 2500, "sma_20": 101, "custom": 1}, merged)
	assert.Equal(t, 55.0, auto["rsi_14"], "inputs must not be mutated")
}

func TestAutoIndicatorsOmitsShortWindows(t *testing.T) {
	short := AutoIndicators(series(100, 101, 102), models.TF5m)
	assert.Contains(t, short, "close")
	assert.NotContains(t, short, "sma_20")
	assert.NotContains(t, short, "rsi_14")

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%5)
	}
	full := AutoIndicators(series(closes...), models.TF5m)
	for _, k := range []string{"sma_20", "ema_20", "rsi_14", "atr_14", "prev_range_high", "average_volume", "volume_ratio", "realized_vol"} {
		assert.Contains(t, full, k)
	}
	assert.Greater(t, full["prev_range_high"], 0.0)
}
