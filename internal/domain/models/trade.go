package models

import "time"

// TradeStatus is "open" until an exit price is known.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// TradeInput is a journal submission scored synchronously.
type TradeInput struct {
	Symbol     string
	Side       Side
	EntryTime  time.Time
	EntryPrice float64
	Quantity   float64
	ExitPrice  *float64
	ExitTime   *time.Time
	StopLoss   *float64
	Strategy   string
	Timeframe  Timeframe
	Memo       string
	Parameters map[string]float64

	// Candles, when supplied, are scored as-is instead of asking the provider.
	Candles []Candle
	// Indicators override auto-computed indicator values with the same key.
	Indicators map[string]float64
	// AccountEquity enables the position sizing rule. Zero means unknown.
	AccountEquity float64
}

// Trade is a scored journal record.
type Trade struct {
	ID               string             `json:"id"`
	Symbol           string             `json:"symbol"`
	Side             Side               `json:"side"`
	Strategy         string             `json:"strategy"`
	EntryTime        time.Time          `json:"entry_time"`
	EntryPrice       float64            `json:"entry_price"`
	Quantity         float64            `json:"quantity"`
	ExitTime         *time.Time         `json:"exit_time,omitempty"`
	ExitPrice        *float64           `json:"exit_price,omitempty"`
	StopLoss         *float64           `json:"stop_loss,omitempty"`
	Status           TradeStatus        `json:"status"`
	PnL              *float64           `json:"pnl,omitempty"`
	Memo             string             `json:"memo,omitempty"`
	StrategyScore    int                `json:"strategy_score"`
	ForbiddenPenalty int                `json:"forbidden_penalty"`
	FinalScore       int                `json:"final_score"`
	Signal           Signal             `json:"signal"`
	Violations       []string           `json:"violations,omitempty"`
	Indicators       map[string]float64 `json:"indicators,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// Notional is entry price times quantity.
func (t Trade) Notional() float64 { return t.EntryPrice * t.Quantity }

// Loss reports whether a closed trade lost money.
func (t Trade) Loss() bool { return t.PnL != nil && *t.PnL < 0 }

// TradeScore is the facade's answer for one trade.
type TradeScore struct {
	Trade      Trade       `json:"trade"`
	Result     ScoreResult `json:"result"`
	Final      FinalScore  `json:"final"`
	Violations []Violation `json:"violations,omitempty"`
}

// Violation is one broken forbidden rule.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Points   int    `json:"points"`
	Message  string `json:"message"`
}
