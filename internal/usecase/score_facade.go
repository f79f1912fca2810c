package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	"TradeScore/internal/domain/service"
	"TradeScore/internal/services/features"
	"TradeScore/internal/services/forbidden"
	"TradeScore/internal/services/scoring"
	applogger "TradeScore/pkg/logger"
)

type FacadeConfig struct {
	Lookback        int
	FetchTimeout    time.Duration
	DefaultStrategy string
	PublishScores   bool
	History         HistoryConfig
}

// ScoreFacade scores a single journal submission synchronously, outside the streaming loop.
type ScoreFacade struct {
	cfg      FacadeConfig
	provider domrepo.IndicatorProvider
	scorers  service.ScorerRegistry
	penalty  *forbidden.Evaluator
	journal  domrepo.TradeStore
	pub      domrepo.ScorePublisher
	metrics  domrepo.Metrics
	l        *applogger.Logger
	now      func() time.Time
}

func NewScoreFacade(
	cfg FacadeConfig,
	provider domrepo.IndicatorProvider,
	scorers service.ScorerRegistry,
	penalty *forbidden.Evaluator,
	journal domrepo.TradeStore,
	pub domrepo.ScorePublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *ScoreFacade {
	if cfg.Lookback <= 0 {
		cfg.Lookback = models.DefaultMaxLookback
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = models.DefaultStrategyName
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &ScoreFacade{
		cfg:      cfg,
		provider: provider,
		scorers:  scorers,
		penalty:  penalty,
		journal:  journal,
		pub:      pub,
		metrics:  metrics,
		l:        l.With(applogger.String("component", "score_facade")),
		now:      time.Now,
	}
}

// ComputeScore scores the trade, evaluates the forbidden rules, appends the scored trade to the
// journal and, when enabled, publishes it to the score topic. A scorer error does not fail the
// call: the result carries the error marker and contributes no strategy points.
func (f *ScoreFacade) ComputeScore(ctx context.Context, in models.TradeInput) (models.TradeScore, error) {
	start := f.now()
	in, err := f.normalize(in)
	if err != nil {
		f.metrics.RecordError("validation")
		return models.TradeScore{}, err
	}
	scorer, err := f.scorers.Lookup(in.Strategy)
	if err != nil {
		return models.TradeScore{}, &models.ValidationError{Field: "strategy", Reason: err.Error()}
	}

	series, err := f.candles(ctx, in)
	if err != nil {
		f.metrics.RecordError("candles")
		return models.TradeScore{}, err
	}

	res := scorer.Score(models.ScoreRequest{
		Symbol:            in.Symbol,
		Timeframe:         in.Timeframe,
		Candles:           series,
		Strategy:          scorer.ID(),
		Parameters:        in.Parameters,
		IncludeIndicators: true,
		IncludeSignals:    true,
	})
	indicators := features.MergeIndicators(features.MergeIndicators(features.AutoIndicators(series, in.Timeframe), res.Indicators), in.Indicators)
	res.Indicators = indicators

	trade := f.buildTrade(in, scorer.ID())
	rep := f.penalty.Evaluate(penaltyContext(ctx, f.journal, f.cfg.History, trade, in.AccountEquity, f.l))
	final := scoring.Aggregate(res, rep.PointsRetained)

	trade.StrategyScore = final.StrategyScore
	trade.ForbiddenPenalty = final.ForbiddenPenalty
	trade.FinalScore = final.FinalScore
	trade.Signal = res.Signal
	trade.Violations = rep.RuleNames()
	trade.Indicators = indicators

	if f.journal != nil {
		if err := f.journal.Append(ctx, trade); err != nil {
			f.metrics.RecordError("journal")
			return models.TradeScore{}, err
		}
	}
	if res.HasError() {
		f.l.Warn("trade scored with scorer error",
			applogger.String("symbol", in.Symbol),
			applogger.String("strategy", string(scorer.ID())),
			applogger.String("reason", res.Error))
	} else {
		f.metrics.RecordScore(string(scorer.ID()), final.FinalScore)
	}

	if f.cfg.PublishScores && f.pub != nil {
		ev := models.NewScoredTradeEvent(eventFromTrade(trade, in), res, final, "facade", f.now())
		ev.Violations = trade.Violations
		if err := f.pub.PublishScore(ctx, ev); err != nil {
			f.metrics.RecordError("publish")
			f.l.Error("publish scored trade failed",
				applogger.String("trade_id", trade.ID),
				applogger.Error(err))
		}
	}

	f.metrics.RecordLatency("compute_score", time.Since(start).Seconds())
	return models.TradeScore{Trade: trade, Result: res, Final: final, Violations: rep.Violations}, nil
}

// CompareStrategies scores the same trade under every registered strategy. Candles are fetched
// once; each scorer gets its own request. Nothing is journaled.
func (f *ScoreFacade) CompareStrategies(ctx context.Context, in models.TradeInput) (models.CompareResponse, error) {
	in, err := f.normalize(in)
	if err != nil {
		return models.CompareResponse{}, err
	}
	series, err := f.candles(ctx, in)
	if err != nil {
		return models.CompareResponse{}, err
	}

	var (
		mu  sync.Mutex
		out = models.CompareResponse{Symbol: in.Symbol, Results: map[models.StrategyID]models.ScoreResult{}}
	)
	g, _ := errgroup.WithContext(ctx)
	for _, sc := range f.scorers.All() {
		g.Go(func() error {
			req := models.ScoreRequest{
				Symbol:            in.Symbol,
				Timeframe:         in.Timeframe,
				Candles:           series,
				Strategy:          sc.ID(),
				Parameters:        copyParams(in.Parameters),
				IncludeIndicators: true,
			}
			res := sc.Score(req)
			mu.Lock()
			out.Results[sc.ID()] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.CompareResponse{}, err
	}

	best := -1.0
	for _, sc := range f.scorers.All() {
		res := out.Results[sc.ID()]
		if !res.HasError() && res.TotalScore > best {
			best, out.Best = res.TotalScore, sc.ID()
		}
	}
	return out, nil
}

// History pages through journaled trades, newest first, and reports how many match symbol.
func (f *ScoreFacade) History(ctx context.Context, symbol string, offset, limit int) ([]models.Trade, int64, error) {
	if f.journal == nil {
		return nil, 0, nil
	}
	if offset < 0 {
		offset = 0
	}
	return f.journal.Page(ctx, symbol, offset, limit)
}

func (f *ScoreFacade) normalize(in models.TradeInput) (models.TradeInput, error) {
	in.Symbol = strings.TrimSpace(in.Symbol)
	switch {
	case in.Symbol == "":
		return in, models.NewValidationError("symbol", "required")
	case !in.Side.Valid():
		return in, models.NewValidationError("side", "must be buy or sell, got "+string(in.Side))
	case !(in.EntryPrice > 0):
		return in, models.NewValidationError("entry_price", "must be positive")
	case !(in.Quantity > 0):
		return in, models.NewValidationError("qty", "must be positive")
	case in.EntryTime.IsZero():
		return in, models.NewValidationError("entry_time", "required")
	case in.ExitPrice != nil && !(*in.ExitPrice > 0):
		return in, models.NewValidationError("exit_price", "must be positive")
	}
	if !models.IsValidTimeframe(in.Timeframe) {
		in.Timeframe = models.DefaultTimeframe()
	}
	if strings.TrimSpace(in.Strategy) == "" {
		in.Strategy = f.cfg.DefaultStrategy
	}
	return in, nil
}

// candles uses the caller's bars when given, otherwise asks the provider for the window ending at
// entry time.
func (f *ScoreFacade) candles(ctx context.Context, in models.TradeInput) (models.CandleSeries, error) {
	if len(in.Candles) > 0 {
		series, err := models.NewCandleSeries(in.Candles, f.cfg.Lookback)
		if err != nil {
			return nil, models.NewValidationError("candles", err.Error())
		}
		return series, nil
	}

	fctx, cancel := context.WithTimeout(domrepo.WithPriceHint(ctx, in.EntryPrice), f.cfg.FetchTimeout)
	defer cancel()
	series, err := f.provider.FetchCandles(fctx, in.Symbol, in.Timeframe, in.EntryTime, f.cfg.Lookback)
	if err != nil {
		if !models.IsDataUnavailable(err) {
			err = &models.DataUnavailableError{Symbol: in.Symbol, Err: err}
		}
		return nil, err
	}
	if series.Empty() {
		return nil, &models.DataUnavailableError{Symbol: in.Symbol}
	}
	return series, nil
}

func (f *ScoreFacade) buildTrade(in models.TradeInput, strategy models.StrategyID) models.Trade {
	t := models.Trade{
		ID:         uuid.NewString(),
		Symbol:     in.Symbol,
		Side:       in.Side,
		Strategy:   string(strategy),
		EntryTime:  in.EntryTime.UTC(),
		EntryPrice: in.EntryPrice,
		Quantity:   in.Quantity,
		StopLoss:   in.StopLoss,
		Status:     models.TradeOpen,
		Memo:       in.Memo,
		CreatedAt:  f.now().UTC(),
	}
	if in.ExitPrice != nil {
		pnl := PnL(in.Side, in.EntryPrice, *in.ExitPrice, in.Quantity)
		exit := *in.ExitPrice
		t.ExitPrice = &exit
		t.PnL = &pnl
		t.Status = models.TradeClosed
		if in.ExitTime != nil {
			et := in.ExitTime.UTC()
			t.ExitTime = &et
		}
	}
	return t
}

// PnL is (exit-entry)·qty for a long and (entry-exit)·qty for a short, computed in decimal so
// that 0.1-style prices do not pick up binary rounding noise.
func PnL(side models.Side, entry, exit, qty float64) float64 {
	diff := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry))
	if side == models.SideSell {
		diff = diff.Neg()
	}
	v, _ := diff.Mul(decimal.NewFromFloat(qty)).Float64()
	return v
}

func eventFromTrade(t models.Trade, in models.TradeInput) models.TradeEvent {
	ev := models.TradeEvent{
		ID:         t.ID,
		Pair:       t.Symbol,
		Side:       t.Side,
		Amount:     t.Quantity,
		Price:      t.EntryPrice,
		Timestamp:  t.EntryTime,
		Strategy:   t.Strategy,
		Parameters: in.Parameters,
	}
	if t.StopLoss != nil || t.Memo != "" {
		ev.Metadata = map[string]interface{}{}
		if t.StopLoss != nil {
			ev.Metadata["stop_loss"] = *t.StopLoss
		}
		if t.Memo != "" {
			ev.Metadata["memo"] = t.Memo
		}
	}
	return ev
}

func copyParams(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
