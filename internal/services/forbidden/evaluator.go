package forbidden

import (
	"TradeScore/internal/domain/models"
)

// Report is the outcome of one evaluation.
type Report struct {
	PointsRetained int                `json:"points_retained"`
	Deducted       int                `json:"deducted"`
	Violations     []models.Violation `json:"violations,omitempty"`
}

// RuleNames returns the names of the violated rules.
func (r Report) RuleNames() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Rule
	}
	return out
}

// Evaluator applies the rule set. Stateless and safe for concurrent use.
type Evaluator struct {
	cfg Config
}

func NewEvaluator(cfg Config) *Evaluator {
	def := DefaultConfig()
	if cfg.MaxPositionRatio <= 0 {
		cfg.MaxPositionRatio = def.MaxPositionRatio
	}
	if cfg.RevengeWindow <= 0 {
		cfg.RevengeWindow = def.RevengeWindow
	}
	if cfg.MaxDailyTrades <= 0 {
		cfg.MaxDailyTrades = def.MaxDailyTrades
	}
	if cfg.ChaseThreshold <= 0 {
		cfg.ChaseThreshold = def.ChaseThreshold
	}
	if cfg.ChaseLookback <= 0 {
		cfg.ChaseLookback = def.ChaseLookback
	}
	if len(cfg.PlanKeywords) == 0 {
		cfg.PlanKeywords = def.PlanKeywords
	}
	return &Evaluator{cfg: cfg}
}

// Evaluate runs every rule, sums the deductions and floors the budget at zero once at the end.
func (e *Evaluator) Evaluate(c Context) Report {
	var rep Report
	for _, r := range rules {
		violated, msg := r.check(e.cfg, c)
		if !violated {
			continue
		}
		rep.Deducted += r.points
		rep.Violations = append(rep.Violations, models.Violation{
			Rule:     r.name,
			Severity: string(r.severity),
			Points:   r.points,
			Message:  msg,
		})
	}
	rep.PointsRetained = models.ForbiddenPoints - rep.Deducted
	if rep.PointsRetained < 0 {
		rep.PointsRetained = 0
	}
	return rep
}
