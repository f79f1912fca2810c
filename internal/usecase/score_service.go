package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	"TradeScore/internal/domain/service"
	"TradeScore/internal/services/forbidden"
	"TradeScore/internal/services/scoring"
	applogger "TradeScore/pkg/logger"
	"TradeScore/pkg/util"
)

// ScoreService answers the synchronous scoring calls: /score with caller candles and the
// per-strategy quick endpoints that pull candles from the provider. Nothing is journaled.
type ScoreService struct {
	provider     domrepo.IndicatorProvider
	scorers      service.ScorerRegistry
	penalty      *forbidden.Evaluator
	journal      domrepo.TradeStore
	history      HistoryConfig
	lookback     int
	fetchTimeout time.Duration
	metrics      domrepo.Metrics
	l            *applogger.Logger
	now          func() time.Time
}

func NewScoreService(
	provider domrepo.IndicatorProvider,
	scorers service.ScorerRegistry,
	penalty *forbidden.Evaluator,
	journal domrepo.TradeStore,
	history HistoryConfig,
	lookback int,
	fetchTimeout time.Duration,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *ScoreService {
	if lookback <= 0 {
		lookback = models.DefaultMaxLookback
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &ScoreService{
		provider:     provider,
		scorers:      scorers,
		penalty:      penalty,
		journal:      journal,
		history:      history,
		lookback:     lookback,
		fetchTimeout: fetchTimeout,
		metrics:      metrics,
		l:            l,
		now:          time.Now,
	}
}

// Score runs one strategy over the caller's candles. Malformed candles and unknown strategies are
// ValidationErrors; a scorer error comes back as a ScoringError.
func (s *ScoreService) Score(ctx context.Context, req models.ScoreRequestPayload) (models.ScoreResponse, error) {
	start := s.now()
	scorer, err := s.scorers.Lookup(req.Strategy)
	if err != nil {
		return models.ScoreResponse{}, &models.ValidationError{Field: "strategy", Reason: err.Error()}
	}

	candles := make([]models.Candle, 0, len(req.Candles))
	tf := models.NormalizeTimeframe(req.Timeframe)
	for i, c := range req.Candles {
		ts, ok := util.ParseTime(c.Timestamp)
		if !ok {
			return models.ScoreResponse{}, models.NewValidationError(fmt.Sprintf("candles[%d].timestamp", i), "unparseable: "+c.Timestamp)
		}
		candles = append(candles, models.Candle{
			Symbol: req.Symbol, Timeframe: tf, Timestamp: ts,
			Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
		})
	}
	series, err := models.NewCandleSeries(candles, s.lookback)
	if err != nil {
		return models.ScoreResponse{}, models.NewValidationError("candles", err.Error())
	}
	if series.Empty() {
		return models.ScoreResponse{}, models.NewValidationError("candles", "empty candle series")
	}

	res := scorer.Score(models.ScoreRequest{
		Symbol:            req.Symbol,
		Timeframe:         tf,
		Candles:           series,
		Strategy:          scorer.ID(),
		Parameters:        req.Parameters,
		IncludeIndicators: req.IncludeIndicators,
		IncludeSignals:    req.IncludeSignals,
	})
	s.metrics.RecordLatency("score", time.Since(start).Seconds())
	if res.HasError() {
		s.metrics.RecordError("scoring")
		return models.ScoreResponse{}, &models.ScoringError{Strategy: scorer.ID(), Reason: res.Error}
	}

	return models.ScoreResponse{
		Symbol:     res.Symbol,
		Strategy:   res.Strategy,
		Timestamp:  res.Timestamp.UTC().Format(time.RFC3339),
		Score:      res.TotalScore,
		Signal:     res.Signal,
		Confidence: res.Confidence,
		SubScores:  res.SubScores,
		Indicators: res.Indicators,
		Signals:    res.Signals,
		Reasoning:  res.Reasoning,
		Warnings:   res.Warnings,
	}, nil
}

// QuickScore scores a symbol at a price with provider candles. strategy overrides the request's
// own strategy when set.
func (s *ScoreService) QuickScore(ctx context.Context, req models.QuickScoreRequest, strategy string) (models.QuickScoreResponse, error) {
	if strategy == "" {
		strategy = req.Strategy
	}
	scorer, err := s.scorers.Lookup(strategy)
	if err != nil {
		return models.QuickScoreResponse{}, &models.ValidationError{Field: "strategy", Reason: err.Error()}
	}
	side := models.ParseSide(req.Side)
	if !side.Valid() {
		return models.QuickScoreResponse{}, models.NewValidationError("side", "must be buy or sell")
	}
	anchor := s.now().UTC()
	if req.Timestamp != "" {
		ts, ok := util.ParseTime(req.Timestamp)
		if !ok {
			return models.QuickScoreResponse{}, models.NewValidationError("timestamp", "unparseable: "+req.Timestamp)
		}
		anchor = ts
	}
	tf := models.NormalizeTimeframe(req.Timeframe)
	symbol := strings.TrimSpace(req.Symbol)

	fctx, cancel := context.WithTimeout(domrepo.WithPriceHint(ctx, req.Price), s.fetchTimeout)
	series, err := s.provider.FetchCandles(fctx, symbol, tf, anchor, s.lookback)
	cancel()
	if err != nil {
		if !models.IsDataUnavailable(err) {
			err = &models.DataUnavailableError{Symbol: symbol, Err: err}
		}
		return models.QuickScoreResponse{}, err
	}

	res := scorer.Score(models.ScoreRequest{
		Symbol:            symbol,
		Timeframe:         tf,
		Candles:           series,
		Strategy:          scorer.ID(),
		Parameters:        req.Parameters,
		IncludeIndicators: true,
		IncludeSignals:    true,
	})
	if res.HasError() {
		s.metrics.RecordError("scoring")
		return models.QuickScoreResponse{}, &models.ScoringError{Strategy: scorer.ID(), Reason: res.Error}
	}

	trade := models.Trade{
		Symbol: symbol, Side: side, Strategy: string(scorer.ID()), EntryTime: anchor,
		EntryPrice: req.Price, Quantity: req.Amount, StopLoss: req.StopLoss, Status: models.TradeOpen,
	}
	rep := s.penalty.Evaluate(penaltyContext(ctx, s.journal, s.history, trade, 0, s.l))
	final := scoring.Aggregate(res, rep.PointsRetained)
	s.metrics.RecordScore(string(scorer.ID()), final.FinalScore)

	total := percent(res.TotalScore)
	subs := make(map[string]float64, len(res.SubScores))
	for k, v := range res.SubScores {
		subs[k] = percent(v)
	}
	req.Strategy = string(scorer.ID())
	return models.QuickScoreResponse{
		Symbol:          symbol,
		Strategy:        scorer.ID(),
		Timestamp:       res.Timestamp.UTC().Format(time.RFC3339),
		TotalScore:      total,
		ScorePercentage: fmt.Sprintf("%.1f%%", total),
		Signal:          res.Signal,
		Confidence:      res.Confidence,
		SubScores:       subs,
		Indicators:      res.Indicators,
		Reasoning:       res.Reasoning,
		Final:           final,
		Violations:      rep.Violations,
		TradeInfo:       req,
		ProcessedAt:     s.now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// percent maps [0,1] onto 0-100 with one decimal.
func percent(v float64) float64 {
	return math.Round(v*1000) / 10
}
