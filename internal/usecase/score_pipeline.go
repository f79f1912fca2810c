package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	"TradeScore/internal/domain/service"
	"TradeScore/internal/services/forbidden"
	"TradeScore/internal/services/scoring"
	pkgkafka "TradeScore/pkg/kafka"
	applogger "TradeScore/pkg/logger"
)

// Stage is where a message's trip through the pipeline ended up.
type Stage string

const (
	StageReceived  Stage = "received"
	StageValidated Stage = "validated"
	StageEnriched  Stage = "enriched"
	StageScored    Stage = "scored"
	StagePublished Stage = "published"
	StageSkipped   Stage = "skipped"
	StageFailed    Stage = "failed"
)

// Outcome describes one processed message. Err is set for Skipped and Failed.
type Outcome struct {
	Stage  Stage
	Event  models.TradeEvent
	Scored *models.ScoredTradeEvent
	Err    error
}

type PipelineConfig struct {
	Topic             string
	Timeframe         models.Timeframe
	Lookback          int
	FetchTimeout      time.Duration
	DefaultStrategy   string
	IncludeIndicators bool
	History           HistoryConfig
}

// ScorePipeline consumes raw trade events, scores them and publishes the result. It is the
// consumer's handler for the raw topic; every per-message failure ends in Skipped or Failed and
// is never returned to the consumer, so the stream keeps moving.
type ScorePipeline struct {
	cfg      PipelineConfig
	provider domrepo.IndicatorProvider
	scorers  service.ScorerRegistry
	penalty  *forbidden.Evaluator
	journal  domrepo.TradeStore
	pub      domrepo.ScorePublisher
	metrics  domrepo.Metrics
	l        *applogger.Logger
	now      func() time.Time
}

var _ pkgkafka.MessageHandler = (*ScorePipeline)(nil)

func NewScorePipeline(
	cfg PipelineConfig,
	provider domrepo.IndicatorProvider,
	scorers service.ScorerRegistry,
	penalty *forbidden.Evaluator,
	journal domrepo.TradeStore,
	pub domrepo.ScorePublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *ScorePipeline {
	if cfg.Timeframe == "" {
		cfg.Timeframe = models.DefaultTimeframe()
	}
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
	return &ScorePipeline{
		cfg:      cfg,
		provider: provider,
		scorers:  scorers,
		penalty:  penalty,
		journal:  journal,
		pub:      pub,
		metrics:  metrics,
		l:        l.With(applogger.String("component", "score_pipeline")),
		now:      time.Now,
	}
}

func (p *ScorePipeline) Topic() string { return p.cfg.Topic }

// Handle always returns nil: the outcome is logged and counted, and the offset is committed.
func (p *ScorePipeline) Handle(ctx context.Context, payload []byte) error {
	p.Process(ctx, payload)
	return nil
}

// Process runs one message through received → validated → enriched → scored → published.
func (p *ScorePipeline) Process(ctx context.Context, payload []byte) Outcome {
	start := p.now()
	p.stage(StageReceived)

	ev, err := models.DecodeTradeEvent(payload)
	if err == nil {
		err = ev.Validate()
	}
	if err != nil {
		p.l.Warn("trade event skipped",
			applogger.String("pair", ev.Pair),
			applogger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
			applogger.Error(err))
		p.metrics.RecordError("validation")
		return p.finish(Outcome{Stage: StageSkipped, Event: ev, Err: err}, start)
	}
	if ev.Strategy == "" {
		ev.Strategy = p.cfg.DefaultStrategy
	}
	p.stage(StageValidated)

	scorer, err := p.scorers.Lookup(ev.Strategy)
	if err != nil {
		return p.fail(ev, &models.ValidationError{Field: "strategy", Reason: err.Error()}, "strategy", start)
	}

	series, err := p.enrich(ctx, ev)
	if err != nil {
		return p.fail(ev, err, "candles", start)
	}
	p.stage(StageEnriched)

	res := scorer.Score(models.ScoreRequest{
		Symbol:            ev.Pair,
		Timeframe:         p.cfg.Timeframe,
		Candles:           series,
		Strategy:          scorer.ID(),
		Parameters:        ev.Parameters,
		IncludeIndicators: p.cfg.IncludeIndicators,
	})
	if res.HasError() {
		return p.fail(ev, &models.ScoringError{Strategy: scorer.ID(), Reason: res.Error}, "scoring", start)
	}

	trade := tradeFromEvent(ev)
	rep := p.penalty.Evaluate(penaltyContext(ctx, p.journal, p.cfg.History, trade, p.metaEquity(ev), p.l))
	final := scoring.Aggregate(res, rep.PointsRetained)
	p.stage(StageScored)
	p.metrics.RecordScore(string(scorer.ID()), final.FinalScore)

	scored := models.NewScoredTradeEvent(ev, res, final, "pipeline", p.now())
	scored.Violations = rep.RuleNames()

	if err := p.pub.PublishScore(ctx, scored); err != nil {
		// at-least-once is the transport's job; the message is not re-driven from here
		out := p.fail(ev, err, "publish", start)
		out.Scored = &scored
		return out
	}
	p.stage(StagePublished)
	p.l.Debug("trade scored",
		applogger.String("pair", ev.Pair),
		applogger.String("strategy", string(scorer.ID())),
		applogger.Float64("total_score", res.TotalScore),
		applogger.Int("final_score", final.FinalScore),
		applogger.String("signal", string(res.Signal)))
	return p.finish(Outcome{Stage: StagePublished, Event: ev, Scored: &scored}, start)
}

// enrich fetches the candle window ending at the trade, bounded by the fetch timeout.
func (p *ScorePipeline) enrich(ctx context.Context, ev models.TradeEvent) (models.CandleSeries, error) {
	fctx, cancel := context.WithTimeout(domrepo.WithPriceHint(ctx, ev.Price), p.cfg.FetchTimeout)
	defer cancel()

	fetchStart := p.now()
	series, err := p.provider.FetchCandles(fctx, ev.Pair, p.cfg.Timeframe, ev.Timestamp, p.cfg.Lookback)
	p.metrics.RecordLatency("candle_fetch", time.Since(fetchStart).Seconds())
	if err != nil {
		if !models.IsDataUnavailable(err) {
			err = &models.DataUnavailableError{Symbol: ev.Pair, Err: err}
		}
		return nil, err
	}
	if series.Empty() {
		return nil, &models.DataUnavailableError{Symbol: ev.Pair, Err: errors.New("provider returned no candles")}
	}
	return series, nil
}

func (p *ScorePipeline) fail(ev models.TradeEvent, err error, kind string, start time.Time) Outcome {
	p.l.Error("trade event failed",
		applogger.String("pair", ev.Pair),
		applogger.String("stage", kind),
		applogger.Error(err))
	p.metrics.RecordError(kind)
	return p.finish(Outcome{Stage: StageFailed, Event: ev, Err: err}, start)
}

func (p *ScorePipeline) finish(out Outcome, start time.Time) Outcome {
	if out.Stage == StageSkipped || out.Stage == StageFailed {
		p.stage(out.Stage)
	}
	p.metrics.RecordLatency("pipeline", time.Since(start).Seconds())
	return out
}

func (p *ScorePipeline) stage(s Stage) { p.metrics.RecordStage(string(s)) }

func (p *ScorePipeline) metaEquity(ev models.TradeEvent) float64 {
	v, _ := ev.MetaFloat("account_equity")
	return v
}

// tradeFromEvent maps an event onto the journal shape the forbidden rules read. Stop loss and memo
// travel in metadata.
func tradeFromEvent(ev models.TradeEvent) models.Trade {
	t := models.Trade{
		ID:         ev.ID,
		Symbol:     ev.Pair,
		Side:       ev.Side,
		Strategy:   ev.Strategy,
		EntryTime:  ev.Timestamp,
		EntryPrice: ev.Price,
		Quantity:   ev.Amount,
		Status:     models.TradeOpen,
		Memo:       strings.TrimSpace(ev.MetaString("memo")),
	}
	if sl, ok := ev.MetaFloat("stop_loss"); ok && sl > 0 {
		t.StopLoss = &sl
	}
	return t
}
