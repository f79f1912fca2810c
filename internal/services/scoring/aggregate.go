package scoring

import (
	"math"

	"TradeScore/internal/domain/models"
)

// Aggregate combines a strategy result (worth up to 60 points) with the forbidden-rule points
// retained (up to 40). An errored result contributes 0 strategy points.
func Aggregate(res models.ScoreResult, pointsRetained int) models.FinalScore {
	strategy := 0
	if !res.HasError() {
		strategy = int(math.Round(models.Clamp01(res.TotalScore) * models.StrategyPoints))
	}
	retained := clampInt(pointsRetained, 0, models.ForbiddenPoints)
	return models.FinalScore{
		StrategyScore:    strategy,
		ForbiddenPenalty: retained,
		FinalScore:       clampInt(strategy+retained, 0, models.MaxFinalScore),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
