package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
)

// MemoryTradeStore keeps the journal in process. The oldest trades are dropped past capacity.
type MemoryTradeStore struct {
	mu       sync.RWMutex
	trades   []models.Trade
	capacity int
}

var _ domrepo.TradeStore = (*MemoryTradeStore)(nil)

func NewMemoryTradeStore(capacity int) *MemoryTradeStore {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryTradeStore{capacity: capacity}
}

func (s *MemoryTradeStore) Init(context.Context) error { return nil }

func (s *MemoryTradeStore) Append(_ context.Context, t models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	if over := len(s.trades) - s.capacity; over > 0 {
		s.trades = append([]models.Trade(nil), s.trades[over:]...)
	}
	return nil
}

func (s *MemoryTradeStore) Recent(_ context.Context, symbol string, since time.Time, limit int) ([]models.Trade, error) {
	s.mu.RLock()
	out := make([]models.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		if symbol != "" && t.Symbol != symbol {
			continue
		}
		if !since.IsZero() && t.EntryTime.Before(since) {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].EntryTime.After(out[j].EntryTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryTradeStore) Page(ctx context.Context, symbol string, offset, limit int) ([]models.Trade, int64, error) {
	all, _ := s.Recent(ctx, symbol, time.Time{}, 0)
	total := int64(len(all))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []models.Trade{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemoryTradeStore) Health(context.Context) error { return nil }

func (s *MemoryTradeStore) Close() error { return nil }

func (s *MemoryTradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades)
}
