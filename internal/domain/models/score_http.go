package models

// Request and response shapes for the HTTP surface. Defaults are applied with creasty/defaults before
// validation, mirroring how the handlers bind every request.

type CandlePayload struct {
	Timestamp string  `json:"timestamp" validate:"required"`
	Open      float64 `json:"open" validate:"gt=0"`
	High      float64 `json:"high" validate:"gt=0"`
	Low       float64 `json:"low" validate:"gt=0"`
	Close     float64 `json:"close" validate:"gt=0"`
	Volume    float64 `json:"volume" validate:"gte=0"`
}

// ScoreRequestPayload is the synchronous scoring call: the caller brings its own candles.
type ScoreRequestPayload struct {
	Symbol            string             `json:"symbol" validate:"required"`
	Timeframe         string             `json:"timeframe" default:"5m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Strategy          string             `json:"strategy" default:"breakout" validate:"required"`
	Candles           []CandlePayload    `json:"candles" validate:"required,min=1,dive"`
	Parameters        map[string]float64 `json:"parameters"`
	IncludeIndicators bool               `json:"include_indicators" default:"true"`
	IncludeSignals    bool               `json:"include_signals" default:"true"`
}

type ScoreResponse struct {
	Symbol     string             `json:"symbol"`
	Strategy   StrategyID         `json:"strategy"`
	Timestamp  string             `json:"timestamp"`
	Score      float64            `json:"score"`
	Signal     Signal             `json:"signal"`
	Confidence float64            `json:"confidence"`
	SubScores  SubScores          `json:"sub_scores"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Signals    []string           `json:"signals,omitempty"`
	Reasoning  string             `json:"reasoning,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// QuickScoreRequest scores a symbol at a price using provider candles (the per-strategy endpoints).
type QuickScoreRequest struct {
	Symbol     string             `json:"symbol" validate:"required"`
	Price      float64            `json:"price" validate:"gt=0"`
	Side       string             `json:"side" default:"buy" validate:"oneof=buy sell long short"`
	Amount     float64            `json:"amount" default:"1" validate:"gt=0"`
	Strategy   string             `json:"strategy"`
	Timeframe  string             `json:"timeframe" default:"5m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Timestamp  string             `json:"timestamp"`
	StopLoss   *float64           `json:"stop_loss" validate:"omitempty,gt=0"`
	Parameters map[string]float64 `json:"parameters"`
}

// CreateTradeRequest is a journal submission.
type CreateTradeRequest struct {
	Symbol        string             `json:"symbol" validate:"required"`
	Side          string             `json:"side" default:"buy" validate:"oneof=buy sell long short"`
	EntryTime     string             `json:"entry_time" validate:"required"`
	EntryPrice    float64            `json:"entry_price" validate:"gt=0"`
	Quantity      float64            `json:"qty" validate:"gt=0"`
	ExitTime      string             `json:"exit_time"`
	ExitPrice     *float64           `json:"exit_price" validate:"omitempty,gt=0"`
	StopLoss      *float64           `json:"stop_loss" validate:"omitempty,gt=0"`
	Strategy      string             `json:"strategy"`
	Timeframe     string             `json:"timeframe" default:"5m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Memo          string             `json:"memo" validate:"max=2000"`
	AccountEquity float64            `json:"account_equity" validate:"gte=0"`
	Parameters    map[string]float64 `json:"parameters"`
	Indicators    map[string]float64 `json:"indicators"`
	Candles       []CandlePayload    `json:"candles" validate:"omitempty,dive"`
}

type ListTradesRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	Offset int    `query:"offset" json:"offset" validate:"gte=0"`
}

// EventRequest is a trade event submitted over HTTP for the streaming pipeline.
type EventRequest struct {
	ID         string                 `json:"id"`
	Pair       string                 `json:"pair" validate:"required"`
	Side       string                 `json:"side" validate:"required,oneof=buy sell"`
	Amount     float64                `json:"amount" validate:"gt=0"`
	Price      float64                `json:"price" validate:"gt=0"`
	Timestamp  string                 `json:"timestamp" validate:"required"`
	Strategy   string                 `json:"strategy"`
	Parameters map[string]float64     `json:"parameters"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// CompareResponse holds one result per registered strategy for the same trade.
type CompareResponse struct {
	Symbol  string                     `json:"symbol"`
	Results map[StrategyID]ScoreResult `json:"results"`
	Best    StrategyID                 `json:"best,omitempty"`
}

// QuickScoreResponse reports scores on a 0-100 scale with one decimal, the way journal clients
// display them.
type QuickScoreResponse struct {
	Symbol          string             `json:"symbol"`
	Strategy        StrategyID         `json:"strategy"`
	Timestamp       string             `json:"timestamp"`
	TotalScore      float64            `json:"total_score"`
	ScorePercentage string             `json:"score_percentage"`
	Signal          Signal             `json:"signal"`
	Confidence      float64            `json:"confidence"`
	SubScores       map[string]float64 `json:"sub_scores"`
	Indicators      map[string]float64 `json:"indicators,omitempty"`
	Reasoning       string             `json:"reasoning,omitempty"`
	Final           FinalScore         `json:"final"`
	Violations      []Violation        `json:"violations,omitempty"`
	TradeInfo       QuickScoreRequest  `json:"trade_info"`
	ProcessedAt     string             `json:"processed_at"`
}
