package repository

import (
	"context"
	"time"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
)

const defaultSyntheticPrice = 100.0

// SyntheticCandles generates a deterministic gentle uptrend centred on the trade price. It stands
// in for market data in local runs and demos.
type SyntheticCandles struct {
	bars int
}

var _ domrepo.IndicatorProvider = (*SyntheticCandles)(nil)

func NewSyntheticCandles(bars int) *SyntheticCandles {
	if bars <= 0 {
		bars = models.DefaultMaxLookback
	}
	return &SyntheticCandles{bars: bars}
}

// FetchCandles ignores the symbol for pricing. Bar i (oldest first) closes at
// price·(1+(i-bars/2)·0.001) and the newest bar opens one bar before anchor.
func (g *SyntheticCandles) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, anchor time.Time, count int) (models.CandleSeries, error) {
	n := g.bars
	if count > 0 && count < n {
		n = count
	}
	price, ok := domrepo.PriceHint(ctx)
	if !ok {
		price = defaultSyntheticPrice
	}
	step := tf.Duration()
	if step <= 0 {
		step = models.DefaultTimeframe().Duration()
	}
	if anchor.IsZero() {
		anchor = time.Now()
	}
	anchor = anchor.UTC()

	mid := n / 2
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		p := price * (1 + float64(i-mid)*0.001)
		out[i] = models.Candle{
			Symbol:    symbol,
			Timeframe: tf,
			Timestamp: anchor.Add(-time.Duration(n-i) * step),
			Open:      p * 0.999,
			High:      p * 1.002,
			Low:       p * 0.998,
			Close:     p,
			Volume:    1000 + float64(i)*10,
		}
	}
	return models.NewCandleSeries(out, n)
}
