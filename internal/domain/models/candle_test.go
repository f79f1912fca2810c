package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(ts time.Time, close float64) Candle {
	return Candle{Symbol: "BTC/USDT", Timeframe: TF5m, Timestamp: ts, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 10}
}

func TestNewCandleSeriesOrdersDedupsAndTrims(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Candle{
		bar(t0.Add(10*time.Minute), 102),
		bar(t0, 100),
		bar(t0.Add(5*time.Minute), 101),
		bar(t0.Add(5*time.Minute), 111), // duplicate timestamp, later entry wins
	}

	s, err := NewCandleSeries(in, 2)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{111, 102}, s.Closes())
	assert.True(t, s[0].Timestamp.Before(s[1].Timestamp))
}

func TestNewCandleSeriesRejectsBrokenBars(t *testing.T) {
	t0 := time.Now()
	bad := bar(t0, 100)
	bad.High = 99
	_, err := NewCandleSeries([]Candle{bad}, 0)
	require.Error(t, err)

	neg := bar(t0, 100)
	neg.Volume = -1
	_, err = NewCandleSeries([]Candle{neg}, 0)
	require.Error(t, err)
}

func TestCandleSeriesBeforeAndTail(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var in []Candle
	for i := 0; i < 6; i++ {
		in = append(in, bar(t0.Add(time.Duration(i)*time.Minute), float64(100+i)))
	}
	s, err := NewCandleSeries(in, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Before(t0.Add(2*time.Minute)).Len())
	assert.Equal(t, []float64{104, 105}, s.Tail(2).Closes())
	assert.Equal(t, 6, s.Tail(0).Len())
}

func TestNormalizeTimeframe(t *testing.T) {
	assert.Equal(t, TF1h, NormalizeTimeframe("1H"))
	assert.Equal(t, TF1h, NormalizeTimeframe("60m"))
	assert.Equal(t, DefaultTimeframe(), NormalizeTimeframe("7m"))
	assert.Equal(t, 15*time.Minute, TF15m.Duration())
}
