package service

import "TradeScore/internal/domain/models"

// Scorer evaluates one strategy over a candle window. Implementations are pure: the same request
// always yields the same result, and failures are reported on ScoreResult.Error, never panics.
type Scorer interface {
	ID() models.StrategyID
	// MinCandles is the shortest series the scorer can evaluate.
	MinCandles() int
	// ShortSide reports whether a low score should read as "sell" rather than "hold".
	ShortSide() bool
	Weights() models.WeightTable
	Score(req models.ScoreRequest) models.ScoreResult
}

// ScorerRegistry resolves a strategy identifier (or one of its aliases) to a scorer.
type ScorerRegistry interface {
	Lookup(name string) (Scorer, error)
	All() []Scorer
}
