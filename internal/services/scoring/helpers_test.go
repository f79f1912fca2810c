package scoring

import (
	"math"
	"time"

	"TradeScore/internal/domain/models"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// geometric builds n bars whose close moves by step (fractional) per bar.
func geometric(n int, start, step float64) models.CandleSeries {
	out := make(models.CandleSeries, n)
	prev := start
	for i := 0; i < n; i++ {
		c := start * math.Pow(1+step, float64(i))
		out[i] = bar(i, prev, c, 1000)
		prev = c
	}
	return out
}

// wave oscillates around base with the given relative amplitude.
func wave(n int, base, amp float64) models.CandleSeries {
	out := make(models.CandleSeries, n)
	prev := base
	for i := 0; i < n; i++ {
		c := base * (1 + amp*math.Sin(float64(i)/3))
		out[i] = bar(i, prev, c, 1000+float64(i%7)*10)
		prev = c
	}
	return out
}

func flat(n int, price float64) models.CandleSeries {
	out := make(models.CandleSeries, n)
	for i := 0; i < n; i++ {
		out[i] = models.Candle{Timestamp: t0.Add(time.Duration(i) * 5 * time.Minute), Open: price, High: price, Low: price, Close: price, Volume: 500}
	}
	return out
}

func bar(i int, open, close, volume float64) models.Candle {
	return models.Candle{
		Symbol:    "BTC/USDT",
		Timeframe: models.TF5m,
		Timestamp: t0.Add(time.Duration(i) * 5 * time.Minute),
		Open:      open,
		High:      math.Max(open, close) * 1.002,
		Low:       math.Min(open, close) * 0.998,
		Close:     close,
		Volume:    volume,
	}
}

// withLast replaces the newest bar's close and volume.
func withLast(s models.CandleSeries, close, volume float64) models.CandleSeries {
	out := append(models.CandleSeries(nil), s...)
	n := len(out) - 1
	out[n] = bar(n, out[n-1].Close, close, volume)
	return out
}

func request(strategy models.StrategyID, s models.CandleSeries) models.ScoreRequest {
	return models.ScoreRequest{
		Symbol:            "BTC/USDT",
		Timeframe:         models.TF5m,
		Candles:           s,
		Strategy:          strategy,
		IncludeIndicators: true,
		IncludeSignals:    true,
	}
}
