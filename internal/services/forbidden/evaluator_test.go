package forbidden

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeScore/internal/domain/models"
)

var entry = time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func cleanBuy() models.Trade {
	return models.Trade{
		ID:         "t-current",
		Symbol:     "BTC/USDT",
		Side:       models.SideBuy,
		EntryTime:  entry,
		EntryPrice: 100,
		Quantity:   1,
		StopLoss:   ptr(95.0),
		Status:     models.TradeOpen,
	}
}

func TestCleanTradeKeepsFullBudget(t *testing.T) {
	rep := NewEvaluator(Config{}).Evaluate(Context{Trade: cleanBuy(), AccountEquity: 10000})
	assert.Equal(t, 40, rep.PointsRetained)
	assert.Zero(t, rep.Deducted)
	assert.Empty(t, rep.Violations)
}

func TestUnknownAttributesAreNotViolations(t *testing.T) {
	tr := cleanBuy()
	tr.Quantity = 1e6 // would be oversized, but equity is unknown
	rep := NewEvaluator(Config{}).Evaluate(Context{Trade: tr})
	assert.Equal(t, 40, rep.PointsRetained)
}

func TestEachRule(t *testing.T) {
	lossExit := entry.Add(-10 * time.Minute)
	cases := []struct {
		name string
		ctx  func() Context
	}{
		{"no_stoploss", func() Context {
			tr := cleanBuy()
			tr.StopLoss = nil
			return Context{Trade: tr}
		}},
		{"oversized_position", func() Context {
			tr := cleanBuy()
			tr.Quantity = 20
			return Context{Trade: tr, AccountEquity: 10000}
		}},
		{"revenge_trade", func() Context {
			return Context{Trade: cleanBuy(), History: []models.Trade{{
				ID: "loss", Symbol: "ETH/USDT", Side: models.SideBuy, EntryTime: entry.Add(-time.Hour),
				EntryPrice: 3000, Quantity: 1, ExitTime: &lossExit, PnL: ptr(-50.0), Status: models.TradeClosed,
			}}}
		}},
		{"chasing", func() Context {
			var hist []models.Trade
			for i := 0; i < 5; i++ {
				hist = append(hist, models.Trade{ID: string(rune('a' + i)), Symbol: "BTC/USDT", Side: models.SideSell,
					EntryTime: entry.Add(-time.Duration(i+1) * 24 * time.Hour), EntryPrice: 90, Status: models.TradeClosed})
			}
			return Context{Trade: cleanBuy(), History: hist}
		}},
		{"overtrading", func() Context {
			var hist []models.Trade
			for i := 0; i < 10; i++ {
				hist = append(hist, models.Trade{ID: string(rune('a' + i)), Symbol: "SOL/USDT", Side: models.SideSell,
					EntryTime: entry.Add(-time.Duration(i+1) * time.Minute), EntryPrice: 150, Status: models.TradeClosed})
			}
			return Context{Trade: cleanBuy(), History: hist}
		}},
		{"avg_down_no_plan", func() Context {
			return Context{Trade: cleanBuy(), History: []models.Trade{{
				ID: "open", Symbol: "BTC/USDT", Side: models.SideBuy, EntryTime: entry.Add(-48 * time.Hour),
				EntryPrice: 102, Status: models.TradeOpen,
			}}}
		}},
	}

	points := map[string]int{}
	for _, r := range rules {
		points[r.name] = r.points
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep := NewEvaluator(Config{}).Evaluate(tc.ctx())
			require.Equal(t, []string{tc.name}, rep.RuleNames())
			assert.Equal(t, 40-points[tc.name], rep.PointsRetained)
			assert.NotEmpty(t, rep.Violations[0].Message)
		})
	}
}

func TestPlanKeywordExcusesAveragingDown(t *testing.T) {
	tr := cleanBuy()
	tr.Memo = "Planned 물타기 at support"
	hist := []models.Trade{{ID: "open", Symbol: "BTC/USDT", Side: models.SideBuy, EntryTime: entry.Add(-48 * time.Hour), EntryPrice: 102, Status: models.TradeOpen}}
	rep := NewEvaluator(Config{}).Evaluate(Context{Trade: tr, History: hist})
	assert.Empty(t, rep.Violations)
}

func TestRevengeWindowBoundary(t *testing.T) {
	exit := entry.Add(-45 * time.Minute)
	hist := []models.Trade{{ID: "loss", Symbol: "BTC/USDT", EntryTime: entry.Add(-2 * time.Hour), EntryPrice: 110,
		ExitTime: &exit, PnL: ptr(-10.0), Status: models.TradeClosed}}

	rep := NewEvaluator(Config{}).Evaluate(Context{Trade: cleanBuy(), History: hist})
	assert.NotContains(t, rep.RuleNames(), "revenge_trade")

	rep = NewEvaluator(Config{RevengeWindow: time.Hour}).Evaluate(Context{Trade: cleanBuy(), History: hist})
	assert.Contains(t, rep.RuleNames(), "revenge_trade")

	// an exit exactly one window before entry is outside it
	rep = NewEvaluator(Config{RevengeWindow: 45 * time.Minute}).Evaluate(Context{Trade: cleanBuy(), History: hist})
	assert.NotContains(t, rep.RuleNames(), "revenge_trade")
}

func TestAveragingDownIgnoresLaterPositions(t *testing.T) {
	hist := []models.Trade{{ID: "later", Symbol: "BTC/USDT", Side: models.SideBuy, EntryTime: entry.Add(2 * time.Hour),
		EntryPrice: 102, Status: models.TradeOpen}}
	rep := NewEvaluator(Config{}).Evaluate(Context{Trade: cleanBuy(), History: hist})
	assert.NotContains(t, rep.RuleNames(), "avg_down_no_plan")
}

func TestChasingIgnoresSimultaneousEntries(t *testing.T) {
	hist := []models.Trade{{ID: "same-ts", Symbol: "BTC/USDT", Side: models.SideBuy, EntryTime: entry,
		EntryPrice: 90, Status: models.TradeClosed}}
	rep := NewEvaluator(Config{}).Evaluate(Context{Trade: cleanBuy(), History: hist})
	assert.NotContains(t, rep.RuleNames(), "chasing")
}

func TestDeductionsFloorAtZeroAfterSumming(t *testing.T) {
	exit := entry.Add(-5 * time.Minute)
	tr := cleanBuy()
	tr.StopLoss = nil
	tr.Quantity = 50
	tr.EntryPrice = 120

	hist := []models.Trade{{ID: "loss", Symbol: "BTC/USDT", Side: models.SideBuy, EntryTime: entry.Add(-time.Hour),
		EntryPrice: 100, ExitTime: &exit, PnL: ptr(-5.0), Status: models.TradeClosed}}
	for i := 0; i < 10; i++ {
		hist = append(hist, models.Trade{ID: string(rune('k' + i)), Symbol: "BTC/USDT", Side: models.SideBuy,
			EntryTime: entry.Add(-time.Duration(i+2) * time.Minute), EntryPrice: 100, Status: models.TradeOpen})
	}

	rep := NewEvaluator(Config{}).Evaluate(Context{Trade: tr, History: hist, AccountEquity: 1000})
	assert.Equal(t, []string{"no_stoploss", "oversized_position", "revenge_trade", "chasing", "overtrading"}, rep.RuleNames())
	assert.Equal(t, 38, rep.Deducted)
	assert.Equal(t, 2, rep.PointsRetained)

	// recent cheap fills make 90 a chase while the open buys at 100 make it an unplanned average down
	for i := 0; i < 5; i++ {
		hist = append(hist, models.Trade{ID: string(rune('a' + i)), Symbol: "BTC/USDT", Side: models.SideSell,
			EntryTime: entry.Add(-time.Duration(i+1) * time.Second), EntryPrice: 50, Status: models.TradeClosed})
	}
	tr.EntryPrice = 90
	rep = NewEvaluator(Config{}).Evaluate(Context{Trade: tr, History: hist, AccountEquity: 100})
	assert.Len(t, rep.Violations, 6)
	assert.Equal(t, 45, rep.Deducted)
	assert.Equal(t, 0, rep.PointsRetained)
}

func TestCurrentTradeExcludedFromHistory(t *testing.T) {
	tr := cleanBuy()
	tr.EntryPrice = 200
	rep := NewEvaluator(Config{}).Evaluate(Context{Trade: tr, History: []models.Trade{tr}})
	assert.NotContains(t, rep.RuleNames(), "chasing")
}
