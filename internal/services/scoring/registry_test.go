package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeScore/internal/domain/models"
)

func TestRegistryLookupAliases(t *testing.T) {
	r := DefaultRegistry()
	cases := map[string]models.StrategyID{
		"":                      models.StrategyBreakout,
		"BreakoutStrategy":      models.StrategyBreakout,
		" breakout ":            models.StrategyBreakout,
		"TrendStrategy":         models.StrategyTrend,
		"trend":                 models.StrategyTrend,
		"MeanReversionStrategy": models.StrategyMeanReversion,
		"counter_trend":         models.StrategyMeanReversion,
		"mean_reversion":        models.StrategyMeanReversion,
	}
	for name, want := range cases {
		s, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, s.ID(), name)
	}
}

func TestRegistryUnknownStrategy(t *testing.T) {
	_, err := DefaultRegistry().Lookup("martingale")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknownStrategy))
}

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry(NewTrendScorer(), NewBreakoutScorer(), NewTrendScorer())
	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, models.StrategyTrend, all[0].ID())
	assert.Equal(t, models.StrategyBreakout, all[1].ID())
}
