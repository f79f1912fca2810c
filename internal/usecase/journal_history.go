package usecase

import (
	"context"
	"time"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	"TradeScore/internal/services/forbidden"
	applogger "TradeScore/pkg/logger"
)

// HistoryConfig bounds how much of the journal the forbidden rules look at.
type HistoryConfig struct {
	Limit         int
	Window        time.Duration
	AccountEquity float64
}

// penaltyContext gathers what the forbidden rules need for t. A journal read failure leaves the
// history empty, which the rules treat as unknown.
func penaltyContext(ctx context.Context, journal domrepo.TradeStore, cfg HistoryConfig, t models.Trade, equity float64, l *applogger.Logger) forbidden.Context {
	if equity <= 0 {
		equity = cfg.AccountEquity
	}
	pc := forbidden.Context{Trade: t, AccountEquity: equity}
	if journal == nil {
		return pc
	}

	var since time.Time
	if cfg.Window > 0 && !t.EntryTime.IsZero() {
		since = t.EntryTime.Add(-cfg.Window)
	}
	// Rules that only concern the same symbol filter for it themselves.
	history, err := journal.Recent(ctx, "", since, cfg.Limit)
	if err != nil {
		l.Warn("journal history unavailable, forbidden rules run without it",
			applogger.String("symbol", t.Symbol),
			applogger.Error(err))
		return pc
	}
	pc.History = history
	return pc
}
