package repository

import (
	"context"
	"time"

	"TradeScore/internal/domain/models"
)

// ScorePublisher emits scored trades to the outbound topic. Must be safe for concurrent use.
type ScorePublisher interface {
	PublishScore(ctx context.Context, ev models.ScoredTradeEvent) error
}

// EventPublisher forwards raw trade events to the inbound topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev models.TradeEvent) error
}

// TradeStore is the journal. The engine only appends and reads recent history.
type TradeStore interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, t models.Trade) error
	// Recent returns trades newest first. Empty symbol means all symbols; since zero means no bound.
	Recent(ctx context.Context, symbol string, since time.Time, limit int) ([]models.Trade, error)
	// Page returns one newest-first page and the number of trades matching symbol.
	Page(ctx context.Context, symbol string, offset, limit int) ([]models.Trade, int64, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordStage(stage string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordScore(strategy string, final int)
	RecordCandle(source, symbol string)
}
