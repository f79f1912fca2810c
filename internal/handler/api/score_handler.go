package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	models "TradeScore/internal/domain/models"
	"TradeScore/internal/middleware"
	"TradeScore/internal/usecase"
	xhttp "TradeScore/pkg/http"
	pkgkafka "TradeScore/pkg/kafka"
	xlogger "TradeScore/pkg/logger"
)

// TraceHeader lets callers correlate an ingested event with the scored record downstream.
const TraceHeader = "X-Trace-ID"

// ScoreHandler serves the scoring, journal and ingestion routes.
type ScoreHandler struct {
	logger  *xlogger.Logger
	service *usecase.ScoreService
	facade  *usecase.ScoreFacade
	candles *usecase.CandlesUseCase
	gate    *middleware.IngestGate
	status  *StatusBoard
}

func NewScoreHandler(
	logger *xlogger.Logger,
	service *usecase.ScoreService,
	facade *usecase.ScoreFacade,
	candles *usecase.CandlesUseCase,
	gate *middleware.IngestGate,
	status *StatusBoard,
) *ScoreHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	if status == nil {
		status = NewStatusBoard()
	}
	return &ScoreHandler{logger: logger, service: service, facade: facade, candles: candles, gate: gate, status: status}
}

func (h *ScoreHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/score", h.Score)
	e.GET("/health", h.Health)

	g := e.Group("/api/v1")
	g.POST("/trade/score", h.QuickScore(""))
	g.POST("/trade/breakout", h.QuickScore(string(models.StrategyBreakout)))
	g.POST("/trade/trend", h.QuickScore(string(models.StrategyTrend)))
	g.POST("/trade/mean_reversion", h.QuickScore(string(models.StrategyMeanReversion)))

	g.POST("/trades", h.CreateTrade)
	g.GET("/trades", h.ListTrades)
	g.POST("/trades/compare", h.Compare)
	g.GET("/candles", h.Candles)
	g.POST("/events", h.SubmitEvent)
	g.GET("/status", h.Status)
}

func (h *ScoreHandler) Score(c echo.Context) error {
	req := &models.ScoreRequestPayload{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.service.Score(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "score", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// QuickScore scores with provider candles. An empty strategy falls back to the one in the body.
func (h *ScoreHandler) QuickScore(strategy string) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := &models.QuickScoreRequest{}
		if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
			return xhttp.BadRequestResponse(c, verr)
		}
		res, err := h.service.QuickScore(c.Request().Context(), *req, strategy)
		if err != nil {
			return h.fail(c, "quick score", err)
		}
		return xhttp.SuccessResponse(c, res)
	}
}

func (h *ScoreHandler) CreateTrade(c echo.Context) error {
	req := &models.CreateTradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	in, err := TradeInputFromRequest(*req)
	if err != nil {
		return h.fail(c, "create trade", err)
	}
	res, err := h.facade.ComputeScore(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, "create trade", err)
	}
	return xhttp.DataResponse(c, http.StatusCreated, res)
}

func (h *ScoreHandler) ListTrades(c echo.Context) error {
	req := &models.ListTradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, total, err := h.facade.History(c.Request().Context(), strings.TrimSpace(req.Symbol), req.Offset, req.Limit)
	if err != nil {
		return h.fail(c, "list trades", err)
	}
	if rows == nil {
		rows = []models.Trade{}
	}
	return xhttp.ListResponse(c, rows, total, req.Offset, req.Limit)
}

func (h *ScoreHandler) Compare(c echo.Context) error {
	req := &models.CreateTradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	in, err := TradeInputFromRequest(*req)
	if err != nil {
		return h.fail(c, "compare", err)
	}
	res, err := h.facade.CompareStrategies(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, "compare", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScoreHandler) Candles(c echo.Context) error {
	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:    c.QueryParam("symbol"),
		Timeframe: models.NormalizeTimeframe(c.QueryParam("timeframe")),
		To:        xhttp.QueryTime(c, "to", zeroTime),
		Limit:     xhttp.QueryInt(c, "limit", 0),
		Price:     xhttp.QueryFloat(c, "price", 0),
	})
	if err != nil {
		return h.fail(c, "candles", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// SubmitEvent hands a trade to the ingestion gate. 202 means it was published or parked for retry.
func (h *ScoreHandler) SubmitEvent(c echo.Context) error {
	req := &models.EventRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ev, err := EventFromRequest(*req)
	if err != nil {
		return h.fail(c, "submit event", err)
	}

	traceID := c.Request().Header.Get(TraceHeader)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	c.Response().Header().Set(TraceHeader, traceID)
	ctx := pkgkafka.WithTraceID(c.Request().Context(), traceID)

	adm, err := h.gate.Submit(ctx, ev)
	if err != nil {
		return h.fail(c, "submit event", err)
	}
	if adm == middleware.Throttled {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many events for "+ev.Pair))
	}
	return xhttp.AcceptedResponse(c, map[string]interface{}{
		"admission": adm,
		"trace_id":  traceID,
	})
}

func (h *ScoreHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Status runs every registered probe. Any failing probe turns the answer into a 503.
func (h *ScoreHandler) Status(c echo.Context) error {
	rep := h.status.Check(c.Request().Context())
	if h.gate != nil {
		rep.Buffered = h.gate.Buffered()
	}
	code := http.StatusOK
	if !rep.Healthy {
		code = http.StatusServiceUnavailable
	}
	return xhttp.DataResponse(c, code, rep)
}

// fail maps domain errors onto AppErrors: bad input and scorer failures are 400, missing candles 422.
func (h *ScoreHandler) fail(c echo.Context, op string, err error) error {
	appErr := ToAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func ToAppError(err error) *xhttp.AppError {
	var (
		appErr  *xhttp.AppError
		valErr  *models.ValidationError
		scorErr *models.ScoringError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &valErr):
		return xhttp.FieldError(valErr.Field, valErr.Error()).WithError(err)
	case errors.As(err, &scorErr):
		return xhttp.BadRequestError(scorErr.Error()).WithParam("strategy", scorErr.Strategy).WithError(err)
	case models.IsDataUnavailable(err):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, middleware.ErrBufferFull):
		return xhttp.ServiceUnavailableError("ingest buffer full, retry later").WithError(err)
	}
	return xhttp.InternalError("internal error").WithError(err)
}
