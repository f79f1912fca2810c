package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"TradeScore/internal/domain/models"
	"TradeScore/internal/repository"
	"TradeScore/internal/services/forbidden"
	"TradeScore/internal/services/scoring"
	applogger "TradeScore/pkg/logger"
	"TradeScore/pkg/metrics"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// stubProvider serves synthetic candles except for symbols listed in fail.
type stubProvider struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []string
	base  *repository.SyntheticCandles
}

func newStubProvider() *stubProvider {
	return &stubProvider{fail: map[string]error{}, base: repository.NewSyntheticCandles(100)}
}

func (p *stubProvider) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, anchor time.Time, count int) (models.CandleSeries, error) {
	p.mu.Lock()
	p.calls = append(p.calls, symbol)
	err := p.fail[symbol]
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.base.FetchCandles(ctx, symbol, tf, anchor, count)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ScoredTradeEvent
	err    error
}

func (p *recordingPublisher) PublishScore(_ context.Context, ev models.ScoredTradeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) pairs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Pair
	}
	return out
}

type failingJournal struct{ *repository.MemoryTradeStore }

func newFailingJournal() *failingJournal {
	return &failingJournal{repository.NewMemoryTradeStore(10)}
}

func (*failingJournal) Recent(context.Context, string, time.Time, int) ([]models.Trade, error) {
	return nil, errors.New("journal offline")
}

func newPipeline(provider *stubProvider, pub *recordingPublisher) *ScorePipeline {
	return NewScorePipeline(
		PipelineConfig{Topic: "trade.raw", IncludeIndicators: true},
		provider,
		scoring.DefaultRegistry(),
		forbidden.NewEvaluator(forbidden.DefaultConfig()),
		repository.NewMemoryTradeStore(100),
		pub,
		metrics.Nop{},
		applogger.NewNop(),
	)
}

func newFacade(provider *stubProvider, pub *recordingPublisher, journal *repository.MemoryTradeStore) *ScoreFacade {
	return NewScoreFacade(
		FacadeConfig{PublishScores: pub != nil, History: HistoryConfig{Limit: 50, Window: 24 * time.Hour}},
		provider,
		scoring.DefaultRegistry(),
		forbidden.NewEvaluator(forbidden.DefaultConfig()),
		journal,
		pub,
		metrics.Nop{},
		applogger.NewNop(),
	)
}

func eventJSON(pair string, amount float64, extra map[string]interface{}) []byte {
	raw := map[string]interface{}{
		"pair":      pair,
		"side":      "buy",
		"amount":    amount,
		"price":     100.0,
		"timestamp": t0.Format(time.RFC3339),
	}
	for k, v := range extra {
		raw[k] = v
	}
	b, _ := json.Marshal(raw)
	return b
}
