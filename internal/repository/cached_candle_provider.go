package repository

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	"TradeScore/pkg/cache"
	applogger "TradeScore/pkg/logger"
	"TradeScore/pkg/util"
)

// CachedCandleProvider is a read-through cache in front of another provider. Anchors are floored
// to the bar so trades inside the same bar share an entry, and concurrent misses for one key share
// a single upstream fetch. Do not put it in front of SyntheticCandles: their output depends on the
// price hint, which is not part of the key.
type CachedCandleProvider struct {
	next  domrepo.IndicatorProvider
	cache cache.Service
	ttl   time.Duration
	group singleflight.Group
	l     *applogger.Logger
}

var _ domrepo.IndicatorProvider = (*CachedCandleProvider)(nil)

func NewCachedCandleProvider(next domrepo.IndicatorProvider, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedCandleProvider {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CachedCandleProvider{next: next, cache: c, ttl: ttl, l: l}
}

func (p *CachedCandleProvider) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, anchor time.Time, count int) (models.CandleSeries, error) {
	key := cache.GenerateKeyWithParams("candles", symbol, tf, util.AlignToBar(anchor, tf.Duration()).Unix(), count)

	cached, err := cache.GetJSON[[]models.Candle](ctx, p.cache, key)
	switch {
	case err == nil && len(cached) > 0:
		return models.CandleSeries(cached), nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		p.l.Warn("candle cache read failed, bypassing",
			applogger.String("key", key),
			applogger.Error(err))
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		series, err := p.next.FetchCandles(ctx, symbol, tf, anchor, count)
		if err != nil {
			return nil, err
		}
		if err := cache.SetJSON(ctx, p.cache, key, []models.Candle(series), p.ttl); err != nil {
			p.l.Warn("candle cache write failed",
				applogger.String("key", key),
				applogger.Error(err))
		}
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(models.CandleSeries), nil
}
