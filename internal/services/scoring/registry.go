package scoring

import (
	"fmt"
	"strings"

	"TradeScore/internal/domain/models"
	"TradeScore/internal/domain/service"
)

// aliases maps the strategy names clients actually send to registered identifiers.
var aliases = map[string]models.StrategyID{
	"breakoutstrategy":      models.StrategyBreakout,
	"trendstrategy":         models.StrategyTrend,
	"trend_following":       models.StrategyTrend,
	"meanreversionstrategy": models.StrategyMeanReversion,
	"meanreversion":         models.StrategyMeanReversion,
	"mean-reversion":        models.StrategyMeanReversion,
	"counter_trend":         models.StrategyMeanReversion,
}

// Registry is the lookup table from strategy identifier to scorer. Read-only after construction.
type Registry struct {
	byID  map[models.StrategyID]service.Scorer
	order []service.Scorer
}

var _ service.ScorerRegistry = (*Registry)(nil)

func NewRegistry(scorers ...service.Scorer) *Registry {
	r := &Registry{byID: make(map[models.StrategyID]service.Scorer, len(scorers))}
	for _, s := range scorers {
		if _, dup := r.byID[s.ID()]; dup {
			continue
		}
		r.byID[s.ID()] = s
		r.order = append(r.order, s)
	}
	return r
}

// DefaultRegistry registers breakout, trend and mean reversion.
func DefaultRegistry() *Registry {
	return NewRegistry(NewBreakoutScorer(), NewTrendScorer(), NewMeanReversionScorer())
}

// Resolve normalizes a client supplied strategy name to an identifier without checking registration.
func Resolve(name string) models.StrategyID {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := aliases[key]; ok {
		return id
	}
	return models.StrategyID(key)
}

func (r *Registry) Lookup(name string) (service.Scorer, error) {
	if strings.TrimSpace(name) == "" {
		name = models.DefaultStrategyName
	}
	if s, ok := r.byID[Resolve(name)]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownStrategy, name)
}

func (r *Registry) All() []service.Scorer {
	out := make([]service.Scorer, len(r.order))
	copy(out, r.order)
	return out
}
