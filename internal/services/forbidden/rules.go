// Package forbidden scores trade hygiene: a fixed list of rules, each deducting fixed points from a
// 40 point budget. Rules only look at the trade, its journal history and account equity.
package forbidden

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"TradeScore/internal/domain/models"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Config holds the rule thresholds. Zero values fall back to defaults in NewEvaluator.
type Config struct {
	MaxPositionRatio float64       `yaml:"max_position_ratio" default:"0.1"`
	RevengeWindow    time.Duration `yaml:"revenge_window" default:"30m"`
	MaxDailyTrades   int           `yaml:"max_daily_trades" default:"10"`
	ChaseThreshold   float64       `yaml:"chase_threshold" default:"0.05"`
	ChaseLookback    int           `yaml:"chase_lookback" default:"5"`
	PlanKeywords     []string      `yaml:"plan_keywords"`
}

var defaultPlanKeywords = []string{"물타기", "평균단가", "추가매수", "average down", "scale in", "add to position"}

func DefaultConfig() Config {
	return Config{
		MaxPositionRatio: 0.1,
		RevengeWindow:    30 * time.Minute,
		MaxDailyTrades:   10,
		ChaseThreshold:   0.05,
		ChaseLookback:    5,
		PlanKeywords:     defaultPlanKeywords,
	}
}

// Context is everything the rules may look at. Zero AccountEquity and empty History mean
// "unknown" and never count as a violation.
type Context struct {
	Trade         models.Trade
	History       []models.Trade
	AccountEquity float64
}

type rule struct {
	name     string
	severity Severity
	points   int
	check    func(cfg Config, c Context) (bool, string)
}

// rules is the fixed evaluation order. Deductions are additive, so order only affects the order of
// the reported violations.
var rules = []rule{
	{"no_stoploss", SeverityHigh, 10, noStopLoss},
	{"oversized_position", SeverityHigh, 10, oversizedPosition},
	{"revenge_trade", SeverityHigh, 8, revengeTrade},
	{"chasing", SeverityMedium, 5, chasing},
	{"overtrading", SeverityMedium, 5, overtrading},
	{"avg_down_no_plan", SeverityMedium, 7, avgDownNoPlan},
}

// RuleNames lists the rules in evaluation order.
func RuleNames() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.name
	}
	return out
}

func noStopLoss(_ Config, c Context) (bool, string) {
	t := c.Trade
	if t.Side != models.SideBuy {
		return false, ""
	}
	if t.StopLoss == nil || *t.StopLoss <= 0 {
		return true, "buy entered without a stop loss"
	}
	return false, ""
}

func oversizedPosition(cfg Config, c Context) (bool, string) {
	if c.AccountEquity <= 0 {
		return false, ""
	}
	limit := c.AccountEquity * cfg.MaxPositionRatio
	if notional := c.Trade.Notional(); notional > limit {
		return true, fmt.Sprintf("position %.2f exceeds %.0f%% of equity (%.2f)", notional, cfg.MaxPositionRatio*100, limit)
	}
	return false, ""
}

func revengeTrade(cfg Config, c Context) (bool, string) {
	entry := c.Trade.EntryTime
	var lastLossExit time.Time
	for _, h := range priorTrades(c) {
		if !h.Loss() || h.ExitTime == nil || h.ExitTime.After(entry) {
			continue
		}
		if h.ExitTime.After(lastLossExit) {
			lastLossExit = *h.ExitTime
		}
	}
	if lastLossExit.IsZero() {
		return false, ""
	}
	if since := entry.Sub(lastLossExit); since < cfg.RevengeWindow {
		return true, fmt.Sprintf("entered %s after a losing exit", since.Round(time.Minute))
	}
	return false, ""
}

func chasing(cfg Config, c Context) (bool, string) {
	t := c.Trade
	if t.Side != models.SideBuy {
		return false, ""
	}
	var same []models.Trade
	for _, h := range priorTrades(c) {
		if h.Symbol == t.Symbol && h.EntryTime.Before(t.EntryTime) {
			same = append(same, h)
		}
	}
	if len(same) == 0 {
		return false, ""
	}
	sort.Slice(same, func(i, j int) bool { return same[i].EntryTime.After(same[j].EntryTime) })
	if len(same) > cfg.ChaseLookback {
		same = same[:cfg.ChaseLookback]
	}
	avg := 0.0
	for _, h := range same {
		avg += h.EntryPrice
	}
	avg /= float64(len(same))
	if t.EntryPrice > avg*(1+cfg.ChaseThreshold) {
		return true, fmt.Sprintf("entry %.4g is %.1f%% above recent average %.4g", t.EntryPrice, (t.EntryPrice/avg-1)*100, avg)
	}
	return false, ""
}

func overtrading(cfg Config, c Context) (bool, string) {
	y, m, d := c.Trade.EntryTime.UTC().Date()
	count := 1
	for _, h := range priorTrades(c) {
		hy, hm, hd := h.EntryTime.UTC().Date()
		if hy == y && hm == m && hd == d {
			count++
		}
	}
	if count > cfg.MaxDailyTrades {
		return true, fmt.Sprintf("%d trades today, limit %d", count, cfg.MaxDailyTrades)
	}
	return false, ""
}

func avgDownNoPlan(cfg Config, c Context) (bool, string) {
	t := c.Trade
	if t.Side != models.SideBuy {
		return false, ""
	}
	sum, n := 0.0, 0
	for _, h := range priorTrades(c) {
		if h.Symbol == t.Symbol && h.Side == models.SideBuy && h.Status == models.TradeOpen && h.EntryTime.Before(t.EntryTime) {
			sum += h.EntryPrice
			n++
		}
	}
	if n == 0 {
		return false, ""
	}
	avg := sum / float64(n)
	if t.EntryPrice >= avg {
		return false, ""
	}
	memo := strings.ToLower(t.Memo)
	for _, kw := range cfg.PlanKeywords {
		if kw != "" && strings.Contains(memo, strings.ToLower(kw)) {
			return false, ""
		}
	}
	return true, fmt.Sprintf("added below average entry %.4g without a stated plan", avg)
}

// priorTrades is the history minus the trade under evaluation.
func priorTrades(c Context) []models.Trade {
	if c.Trade.ID == "" {
		return c.History
	}
	out := make([]models.Trade, 0, len(c.History))
	for _, h := range c.History {
		if h.ID != c.Trade.ID {
			out = append(out, h)
		}
	}
	return out
}
