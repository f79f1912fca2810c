package usecase

import (
	"context"
	"strings"
	"time"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
)

// CandlesUseCase exposes the candle window the scorers would see, for debugging a score.
type CandlesUseCase struct {
	provider domrepo.IndicatorProvider
}

func NewCandlesUseCase(provider domrepo.IndicatorProvider) *CandlesUseCase {
	return &CandlesUseCase{provider: provider}
}

type GetCandlesParams struct {
	Symbol    string
	Timeframe models.Timeframe
	To        time.Time
	Limit     int
	// Price centres synthetic candles; real providers ignore it.
	Price float64
}

type GetCandlesResult struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	To        time.Time       `json:"to"`
	Count     int             `json:"count"`
	Candles   []models.Candle `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	p.Symbol = strings.TrimSpace(p.Symbol)
	if p.Symbol == "" {
		return nil, models.NewValidationError("symbol", "required")
	}
	if !models.IsValidTimeframe(p.Timeframe) {
		p.Timeframe = models.DefaultTimeframe()
	}
	if p.Limit <= 0 {
		p.Limit = models.DefaultMaxLookback
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}
	if p.To.IsZero() {
		p.To = time.Now().UTC()
	}

	series, err := uc.provider.FetchCandles(domrepo.WithPriceHint(ctx, p.Price), p.Symbol, p.Timeframe, p.To, p.Limit)
	if err != nil {
		return nil, err
	}
	return &GetCandlesResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		To:        p.To,
		Count:     series.Len(),
		Candles:   series,
	}, nil
}
