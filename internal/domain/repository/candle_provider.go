package repository

import (
	"context"
	"time"

	"TradeScore/internal/domain/models"
)

// IndicatorProvider returns the newest count candles for symbol at or before anchor, oldest first.
// An empty series is never returned with a nil error: implementations report unavailability as an
// error so callers can route the message to Failed.
type IndicatorProvider interface {
	FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, anchor time.Time, count int) (models.CandleSeries, error)
}

// CandleSink accepts live candles, e.g. from an exchange stream.
type CandleSink interface {
	Append(c models.Candle)
}

// CandleStream is a live market data feed of closed candles.
type CandleStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.Candle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type priceHintKey struct{}

// WithPriceHint attaches the trade price to a fetch. Providers that synthesize candles centre them
// on it; real market data providers ignore it.
func WithPriceHint(ctx context.Context, price float64) context.Context {
	if price <= 0 {
		return ctx
	}
	return context.WithValue(ctx, priceHintKey{}, price)
}

func PriceHint(ctx context.Context) (float64, bool) {
	p, ok := ctx.Value(priceHintKey{}).(float64)
	return p, ok
}
