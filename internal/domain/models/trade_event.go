package models

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Side of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// ParseSide accepts buy/sell plus the long/short spelling used by journal clients.
func ParseSide(raw string) Side {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long":
		return SideBuy
	case "sell", "short":
		return SideSell
	default:
		return Side(strings.ToLower(strings.TrimSpace(raw)))
	}
}

// TradeEvent is one inbound trade from the raw topic, already normalized to typed values.
type TradeEvent struct {
	ID         string                 `json:"id,omitempty"`
	Pair       string                 `json:"pair"`
	Side       Side                   `json:"side"`
	Amount     float64                `json:"amount"`
	Price      float64                `json:"price"`
	Timestamp  time.Time              `json:"timestamp"`
	Strategy   string                 `json:"strategy,omitempty"`
	Parameters map[string]float64     `json:"parameters,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Validate enforces the fields every scorable event must carry.
func (e TradeEvent) Validate() error {
	switch {
	case strings.TrimSpace(e.Pair) == "":
		return NewValidationError("pair", "required")
	case !e.Side.Valid():
		return NewValidationError("side", "must be buy or sell, got "+string(e.Side))
	case !(e.Amount > 0):
		return NewValidationError("amount", "must be positive")
	case !(e.Price > 0):
		return NewValidationError("price", "must be positive")
	case e.Timestamp.IsZero():
		return NewValidationError("timestamp", "required")
	}
	return nil
}

// StrategyName returns the requested strategy or the default one.
func (e TradeEvent) StrategyName() string {
	if s := strings.TrimSpace(e.Strategy); s != "" {
		return s
	}
	return DefaultStrategyName
}

// MetaFloat reads a numeric metadata attribute. Missing or non-numeric values report false.
func (e TradeEvent) MetaFloat(key string) (float64, bool) {
	v, ok := e.Metadata[key]
	if !ok || v == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (e TradeEvent) MetaString(key string) string {
	v, ok := e.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

// ScoredTradeEvent is what the pipeline publishes to the score topic: the original trade plus the score.
type ScoredTradeEvent struct {
	ID         string                 `json:"id,omitempty"`
	Pair       string                 `json:"pair"`
	Side       Side                   `json:"side"`
	Amount     float64                `json:"amount"`
	Price      float64                `json:"price"`
	Timestamp  time.Time              `json:"timestamp"`
	Strategy   string                 `json:"strategy"`
	Parameters map[string]float64     `json:"parameters,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`

	TotalScore     float64            `json:"total_score"`
	Signal         Signal             `json:"signal"`
	Confidence     float64            `json:"confidence"`
	SubScores      SubScores          `json:"sub_scores"`
	Indicators     map[string]float64 `json:"indicators,omitempty"`
	Reasoning      string             `json:"reasoning,omitempty"`
	ScoreBreakdown FinalScore         `json:"score_breakdown"`
	Violations     []string           `json:"violations,omitempty"`
	Source         string             `json:"source"`
	ProcessedAt    time.Time          `json:"processed_at"`
}

// NewScoredTradeEvent joins a trade with its score.
func NewScoredTradeEvent(e TradeEvent, res ScoreResult, final FinalScore, source string, processedAt time.Time) ScoredTradeEvent {
	return ScoredTradeEvent{
		ID:             e.ID,
		Pair:           e.Pair,
		Side:           e.Side,
		Amount:         e.Amount,
		Price:          e.Price,
		Timestamp:      e.Timestamp,
		Strategy:       e.StrategyName(),
		Parameters:     e.Parameters,
		Metadata:       e.Metadata,
		TotalScore:     res.TotalScore,
		Signal:         res.Signal,
		Confidence:     res.Confidence,
		SubScores:      res.SubScores,
		Indicators:     res.Indicators,
		Reasoning:      res.Reasoning,
		ScoreBreakdown: final,
		Source:         source,
		ProcessedAt:    processedAt.UTC(),
	}
}
