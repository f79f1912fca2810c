package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeScore/internal/domain/models"
	"TradeScore/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func TestPnL(t *testing.T) {
	assert.Equal(t, 20.0, PnL(models.SideBuy, 100, 110, 2))
	assert.Equal(t, 20.0, PnL(models.SideSell, 100, 90, 2))
	assert.Equal(t, -20.0, PnL(models.SideBuy, 100, 90, 2))
	assert.Equal(t, 0.3, PnL(models.SideBuy, 0.1, 0.4, 1))
}

func input() models.TradeInput {
	return models.TradeInput{
		Symbol:     "BTC/USDT",
		Side:       models.SideBuy,
		EntryTime:  t0,
		EntryPrice: 100,
		Quantity:   2,
		StopLoss:   ptr(95.0),
		Strategy:   "breakout",
	}
}

func TestComputeScoreClosedTrade(t *testing.T) {
	journal := repository.NewMemoryTradeStore(10)
	pub := &recordingPublisher{}
	f := newFacade(newStubProvider(), pub, journal)

	in := input()
	in.ExitPrice = ptr(110.0)
	in.ExitTime = ptr(t0.Add(time.Hour))

	ts, err := f.ComputeScore(context.Background(), in)
	require.NoError(t, err)

	require.NotNil(t, ts.Trade.PnL)
	assert.Equal(t, 20.0, *ts.Trade.PnL)
	assert.Equal(t, models.TradeClosed, ts.Trade.Status)
	assert.NotEmpty(t, ts.Trade.ID)
	assert.Equal(t, 40, ts.Final.ForbiddenPenalty)
	assert.Equal(t, ts.Final.StrategyScore+40, ts.Final.FinalScore)
	assert.Equal(t, ts.Final.FinalScore, ts.Trade.FinalScore)
	assert.Equal(t, 1, journal.Len())

	require.Len(t, pub.events, 1)
	assert.Equal(t, "facade", pub.events[0].Source)
	assert.Equal(t, ts.Trade.ID, pub.events[0].ID)
}

func TestComputeScoreOpenTradeHasNoPnL(t *testing.T) {
	f := newFacade(newStubProvider(), nil, repository.NewMemoryTradeStore(10))
	ts, err := f.ComputeScore(context.Background(), input())
	require.NoError(t, err)
	assert.Nil(t, ts.Trade.PnL)
	assert.Equal(t, models.TradeOpen, ts.Trade.Status)
}

func TestComputeScoreExplicitIndicatorsWin(t *testing.T) {
	f := newFacade(newStubProvider(), nil, repository.NewMemoryTradeStore(10))
	in := input()
	in.Indicators = map[string]float64{"rsi_14": 12.5, "custom": 1}

	ts, err := f.ComputeScore(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 12.5, ts.Result.Indicators["rsi_14"])
	assert.Equal(t, 1.0, ts.Result.Indicators["custom"])
	// auto-computed keys the caller did not send are kept
	assert.Contains(t, ts.Result.Indicators, "sma_20")
}

func TestComputeScoreUsesCallerCandles(t *testing.T) {
	provider := newStubProvider()
	f := newFacade(provider, nil, repository.NewMemoryTradeStore(10))

	series, err := repository.NewSyntheticCandles(60).FetchCandles(context.Background(), "BTC/USDT", models.TF5m, t0, 60)
	require.NoError(t, err)
	in := input()
	in.Candles = series

	_, err = f.ComputeScore(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, provider.calls)
}

func TestComputeScoreValidation(t *testing.T) {
	f := newFacade(newStubProvider(), nil, repository.NewMemoryTradeStore(10))

	in := input()
	in.Quantity = 0
	_, err := f.ComputeScore(context.Background(), in)
	assert.True(t, models.IsValidation(err))

	in = input()
	in.Strategy = "astrology"
	_, err = f.ComputeScore(context.Background(), in)
	assert.True(t, models.IsValidation(err))
}

func TestComputeScoreProviderFailure(t *testing.T) {
	provider := newStubProvider()
	provider.fail["BTC/USDT"] = errors.New("timeout")
	f := newFacade(provider, nil, repository.NewMemoryTradeStore(10))

	_, err := f.ComputeScore(context.Background(), input())
	assert.True(t, models.IsDataUnavailable(err))
}

func TestComputeScoreSeesJournalHistory(t *testing.T) {
	journal := repository.NewMemoryTradeStore(10)
	f := newFacade(newStubProvider(), nil, journal)

	loser := input()
	loser.ExitPrice = ptr(90.0)
	loser.ExitTime = ptr(t0.Add(10 * time.Minute))
	_, err := f.ComputeScore(context.Background(), loser)
	require.NoError(t, err)

	next := input()
	next.EntryTime = t0.Add(20 * time.Minute)
	ts, err := f.ComputeScore(context.Background(), next)
	require.NoError(t, err)

	rules := make([]string, 0, len(ts.Violations))
	for _, v := range ts.Violations {
		rules = append(rules, v.Rule)
	}
	assert.Contains(t, rules, "revenge_trade")
}

func TestComputeScoreHistorySpansSymbols(t *testing.T) {
	journal := repository.NewMemoryTradeStore(50)
	f := newFacade(newStubProvider(), nil, journal)
	ctx := context.Background()

	loser := input()
	loser.Symbol = "ETH/USDT"
	loser.ExitPrice = ptr(90.0)
	loser.ExitTime = ptr(t0.Add(10 * time.Minute))
	_, err := f.ComputeScore(ctx, loser)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		sol := input()
		sol.Symbol = "SOL/USDT"
		sol.EntryTime = t0.Add(time.Duration(i+1) * time.Minute)
		_, err := f.ComputeScore(ctx, sol)
		require.NoError(t, err)
	}

	next := input()
	next.EntryTime = t0.Add(20 * time.Minute)
	ts, err := f.ComputeScore(ctx, next)
	require.NoError(t, err)

	rules := make([]string, 0, len(ts.Violations))
	for _, v := range ts.Violations {
		rules = append(rules, v.Rule)
	}
	assert.ElementsMatch(t, []string{"revenge_trade", "overtrading"}, rules)
	assert.Equal(t, 27, ts.Final.ForbiddenPenalty)
}

func TestCompareStrategies(t *testing.T) {
	provider := newStubProvider()
	f := newFacade(provider, nil, repository.NewMemoryTradeStore(10))

	out, err := f.CompareStrategies(context.Background(), input())
	require.NoError(t, err)

	assert.Len(t, out.Results, 3)
	assert.Len(t, provider.calls, 1)
	for id, res := range out.Results {
		assert.Equal(t, id, res.Strategy)
	}
	assert.NotEmpty(t, out.Best)
}
