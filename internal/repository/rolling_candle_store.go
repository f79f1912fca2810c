package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	"TradeScore/pkg/util"
)

// RollingCandleStore holds the newest bars per symbol and timeframe, filled by a live stream.
// Symbols are keyed in exchange form, so "BTC/USDT" and "BTCUSDT" name the same series.
type RollingCandleStore struct {
	mu       sync.RWMutex
	capacity int
	bars     map[rollingKey][]models.Candle
}

type rollingKey struct {
	symbol string
	tf     models.Timeframe
}

var (
	_ domrepo.CandleSink        = (*RollingCandleStore)(nil)
	_ domrepo.IndicatorProvider = (*RollingCandleStore)(nil)
)

func NewRollingCandleStore(capacity int) *RollingCandleStore {
	if capacity <= 0 {
		capacity = 500
	}
	return &RollingCandleStore{capacity: capacity, bars: make(map[rollingKey][]models.Candle)}
}

// Append adds a bar. A bar with the same open time as the newest one replaces it; older bars
// arriving late are dropped.
func (s *RollingCandleStore) Append(c models.Candle) {
	if c.Validate() != nil {
		return
	}
	k := rollingKey{symbol: util.ExchangeSymbol(c.Symbol), tf: c.Timeframe}

	s.mu.Lock()
	defer s.mu.Unlock()
	bars := s.bars[k]
	if n := len(bars); n > 0 {
		last := bars[n-1].Timestamp
		switch {
		case c.Timestamp.Equal(last):
			bars[n-1] = c
			return
		case c.Timestamp.Before(last):
			return
		}
	}
	bars = append(bars, c)
	if over := len(bars) - s.capacity; over > 0 {
		bars = append([]models.Candle(nil), bars[over:]...)
	}
	s.bars[k] = bars
}

func (s *RollingCandleStore) FetchCandles(_ context.Context, symbol string, tf models.Timeframe, anchor time.Time, count int) (models.CandleSeries, error) {
	s.mu.RLock()
	series := models.CandleSeries(append([]models.Candle(nil), s.bars[rollingKey{symbol: util.ExchangeSymbol(symbol), tf: tf}]...))
	s.mu.RUnlock()

	if !anchor.IsZero() {
		series = series.Before(anchor)
	}
	series = series.Tail(count)
	if series.Empty() {
		return nil, &models.DataUnavailableError{Symbol: symbol, Err: errors.New("no streamed candles yet")}
	}
	return series, nil
}

// Len reports how many bars are held for a symbol and timeframe.
func (s *RollingCandleStore) Len(symbol string, tf models.Timeframe) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bars[rollingKey{symbol: util.ExchangeSymbol(symbol), tf: tf}])
}
