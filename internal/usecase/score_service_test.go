package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeScore/internal/domain/models"
	"TradeScore/internal/repository"
	"TradeScore/internal/services/forbidden"
	"TradeScore/internal/services/scoring"
	"TradeScore/pkg/metrics"
)

func newService(provider *stubProvider) *ScoreService {
	return NewScoreService(provider, scoring.DefaultRegistry(), forbidden.NewEvaluator(forbidden.DefaultConfig()),
		repository.NewMemoryTradeStore(10), HistoryConfig{Limit: 10}, 100, time.Second, metrics.Nop{}, nil)
}

func payloadCandles(n int) []models.CandlePayload {
	series, _ := repository.NewSyntheticCandles(n).FetchCandles(context.Background(), "BTC/USDT", models.TF5m, t0, n)
	out := make([]models.CandlePayload, len(series))
	for i, c := range series {
		out[i] = models.CandlePayload{
			Timestamp: c.Timestamp.Format(time.RFC3339),
			Open:      c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
		}
	}
	return out
}

func TestScoreServiceScore(t *testing.T) {
	s := newService(newStubProvider())
	resp, err := s.Score(context.Background(), models.ScoreRequestPayload{
		Symbol:            "BTC/USDT",
		Timeframe:         "5m",
		Strategy:          "breakout",
		Candles:           payloadCandles(60),
		IncludeIndicators: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StrategyBreakout, resp.Strategy)
	assert.GreaterOrEqual(t, resp.Score, 0.0)
	assert.LessOrEqual(t, resp.Score, 1.0)
	assert.NotEmpty(t, resp.Indicators)
	assert.Equal(t, t0.Add(-5*time.Minute).Format(time.RFC3339), resp.Timestamp)
}

func TestScoreServiceRejectsBadInput(t *testing.T) {
	s := newService(newStubProvider())
	ctx := context.Background()

	_, err := s.Score(ctx, models.ScoreRequestPayload{Symbol: "X", Strategy: "breakout"})
	assert.True(t, models.IsValidation(err), "empty candles")

	_, err = s.Score(ctx, models.ScoreRequestPayload{Symbol: "X", Strategy: "nope", Candles: payloadCandles(40)})
	assert.True(t, models.IsValidation(err), "unknown strategy")

	bad := payloadCandles(40)
	bad[3].Timestamp = "yesterday"
	_, err = s.Score(ctx, models.ScoreRequestPayload{Symbol: "X", Strategy: "breakout", Candles: bad})
	assert.True(t, models.IsValidation(err), "bad timestamp")

	_, err = s.Score(ctx, models.ScoreRequestPayload{Symbol: "X", Strategy: "trend", Candles: payloadCandles(20)})
	assert.True(t, models.IsScoring(err), "too short for trend")
}

func TestQuickScoreUsesPathStrategy(t *testing.T) {
	s := newService(newStubProvider())
	resp, err := s.QuickScore(context.Background(), models.QuickScoreRequest{
		Symbol: "BTC/USDT", Price: 250, Side: "long", Amount: 1, Strategy: "breakout", Timeframe: "5m",
		Timestamp: t0.Format(time.RFC3339),
	}, "mean_reversion")
	require.NoError(t, err)

	assert.Equal(t, models.StrategyMeanReversion, resp.Strategy)
	assert.Equal(t, "mean_reversion", resp.TradeInfo.Strategy)
	assert.GreaterOrEqual(t, resp.TotalScore, 0.0)
	assert.LessOrEqual(t, resp.TotalScore, 100.0)
	assert.Contains(t, resp.ScorePercentage, "%")
	assert.Equal(t, 30, resp.Final.ForbiddenPenalty)
}

func TestQuickScoreProviderFailure(t *testing.T) {
	provider := newStubProvider()
	provider.fail["BTC/USDT"] = &models.DataUnavailableError{Symbol: "BTC/USDT"}
	_, err := newService(provider).QuickScore(context.Background(), models.QuickScoreRequest{Symbol: "BTC/USDT", Price: 1, Side: "buy", Amount: 1}, "")
	assert.True(t, models.IsDataUnavailable(err))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 33.9, percent(0.3391))
	assert.Equal(t, 100.0, percent(1))
}
