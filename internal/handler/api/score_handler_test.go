package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	"TradeScore/internal/middleware"
	"TradeScore/internal/repository"
	"TradeScore/internal/services/forbidden"
	"TradeScore/internal/services/scoring"
	"TradeScore/internal/usecase"
	pkgkafka "TradeScore/pkg/kafka"
	"TradeScore/pkg/metrics"
)

type downProvider struct{}

func (downProvider) FetchCandles(_ context.Context, symbol string, _ models.Timeframe, _ time.Time, _ int) (models.CandleSeries, error) {
	return nil, &models.DataUnavailableError{Symbol: symbol, Err: errors.New("exchange offline")}
}

type eventSink struct {
	mu     sync.Mutex
	err    error
	events []models.TradeEvent
	traces []string
}

func (s *eventSink) PublishEvent(ctx context.Context, ev models.TradeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	s.traces = append(s.traces, pkgkafka.TraceIDFrom(ctx))
	return nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type fixture struct {
	e       *echo.Echo
	journal *repository.MemoryTradeStore
	sink    *eventSink
	status  *StatusBoard
}

func newFixture(t *testing.T, provider domrepo.IndicatorProvider, gateOpts ...middleware.GateOption) *fixture {
	t.Helper()
	journal := repository.NewMemoryTradeStore(100)
	registry := scoring.DefaultRegistry()
	penalty := forbidden.NewEvaluator(forbidden.DefaultConfig())
	history := usecase.HistoryConfig{Limit: 50, Window: 24 * time.Hour}

	svc := usecase.NewScoreService(provider, registry, penalty, journal, history, 100, time.Second, metrics.Nop{}, nil)
	facade := usecase.NewScoreFacade(usecase.FacadeConfig{History: history}, provider, registry, penalty, journal, nil, metrics.Nop{}, nil)
	sink := &eventSink{}
	gate := middleware.NewIngestGate(sink, metrics.Nop{}, gateOpts...)
	status := NewStatusBoard()

	e := echo.New()
	NewScoreHandler(nil, svc, facade, usecase.NewCandlesUseCase(provider), gate, status).RegisterRoutes(e)
	return &fixture{e: e, journal: journal, sink: sink, status: status}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestQuickScoreUsesPathStrategy(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100))

	rec, env := f.do(t, http.MethodPost, "/api/v1/trade/trend",
		`{"symbol":"BTC/USDT","price":65000,"strategy":"breakout","stop_loss":64000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.QuickScoreResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.StrategyTrend, res.Strategy)
	assert.Equal(t, "BTC/USDT", res.Symbol)
	assert.GreaterOrEqual(t, res.TotalScore, 0.0)
	assert.LessOrEqual(t, res.TotalScore, 100.0)
	assert.Equal(t, "trend", res.TradeInfo.Strategy)
}

func TestQuickScoreRejectsMissingPrice(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100))

	rec, _ := f.do(t, http.MethodPost, "/api/v1/trade/score", `{"symbol":"BTC/USDT"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuickScoreMapsMissingCandlesTo422(t *testing.T) {
	f := newFixture(t, downProvider{})

	rec, _ := f.do(t, http.MethodPost, "/api/v1/trade/breakout", `{"symbol":"BTC/USDT","price":100}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestScoreUnknownStrategyIs400(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100))

	body := `{"symbol":"BTC/USDT","strategy":"scalping","candles":[
		{"timestamp":"2024-05-01T12:00:00Z","open":1,"high":1,"low":1,"close":1,"volume":1}]}`
	rec, _ := f.do(t, http.MethodPost, "/score", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTradeThenList(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100))

	rec, env := f.do(t, http.MethodPost, "/api/v1/trades", `{
		"symbol":"ETH/USDT","side":"long","entry_time":"2024-05-01T12:00:00Z",
		"entry_price":3000,"qty":1,"exit_time":"2024-05-01T14:00:00Z","exit_price":3100}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ts models.TradeScore
	require.NoError(t, json.Unmarshal(env.Data, &ts))
	assert.Equal(t, models.TradeClosed, ts.Trade.Status)
	require.NotNil(t, ts.Trade.PnL)
	assert.InDelta(t, 100.0, *ts.Trade.PnL, 1e-9)
	assert.Contains(t, ts.Trade.Violations, "no_stoploss")
	assert.Equal(t, 1, f.journal.Len())

	rec, env = f.do(t, http.MethodGet, "/api/v1/trades?symbol=ETH/USDT&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.Trade `json:"rows"`
		Total int64          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, ts.Trade.ID, list.Rows[0].ID)
}

func TestListTradesPages(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"t-1", "t-2", "t-3"} {
		require.NoError(t, f.journal.Append(context.Background(), models.Trade{
			ID: id, Symbol: "ETH/USDT", Side: models.SideBuy, EntryTime: base.Add(time.Duration(i) * time.Hour),
			EntryPrice: 3000, Quantity: 1, Status: models.TradeOpen,
		}))
	}
	require.NoError(t, f.journal.Append(context.Background(), models.Trade{
		ID: "t-btc", Symbol: "BTC/USDT", Side: models.SideBuy, EntryTime: base, EntryPrice: 60000, Quantity: 1,
	}))

	type page struct {
		Rows  []models.Trade `json:"rows"`
		Total int64          `json:"total"`
		Page  int            `json:"page"`
		Limit int            `json:"limit"`
	}

	rec, env := f.do(t, http.MethodGet, "/api/v1/trades?symbol=ETH/USDT&limit=1&offset=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got page
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.EqualValues(t, 3, got.Total)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 1, got.Limit)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "t-2", got.Rows[0].ID)

	rec, env = f.do(t, http.MethodGet, "/api/v1/trades?limit=2&offset=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = page{}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.EqualValues(t, 4, got.Total)
	assert.Empty(t, got.Rows)

	rec, _ = f.do(t, http.MethodGet, "/api/v1/trades?offset=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTradeBadEntryTime(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100))

	rec, env := f.do(t, http.MethodPost, "/api/v1/trades",
		`{"symbol":"ETH/USDT","entry_time":"yesterday","entry_price":3000,"qty":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "entry_time")
	assert.Equal(t, 0, f.journal.Len())
}

func TestCompareReturnsEveryStrategy(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100))

	rec, env := f.do(t, http.MethodPost, "/api/v1/trades/compare",
		`{"symbol":"BTC/USDT","entry_time":"2024-05-01T12:00:00Z","entry_price":100,"qty":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.CompareResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res.Results, 3)
}

func TestCandlesEndpoint(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100))

	rec, env := f.do(t, http.MethodGet, "/api/v1/candles?symbol=BTCUSDT&timeframe=1h&limit=20&price=50&to=2024-05-01T12:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res usecase.GetCandlesResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 20, res.Count)
	assert.Equal(t, "1h", res.Timeframe)
	assert.InDelta(t, 50, res.Candles[10].Close, 1e-9)
}

func TestSubmitEventAdmission(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100), middleware.WithPerPairInterval(time.Hour))
	body := `{"pair":"BTC/USDT","side":"buy","amount":1,"price":100,"timestamp":"2024-05-01T12:00:00Z"}`

	rec, _ := f.do(t, http.MethodPost, "/api/v1/events", body, TraceHeader, "trace-1")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "trace-1", rec.Header().Get(TraceHeader))
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "trace-1", f.sink.traces[0])

	rec, _ = f.do(t, http.MethodPost, "/api/v1/events", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSubmitEventRejectsBadSide(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100))

	rec, _ := f.do(t, http.MethodPost, "/api/v1/events",
		`{"pair":"BTC/USDT","side":"hold","amount":1,"price":100,"timestamp":"2024-05-01T12:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.sink.events)
}

func TestSubmitEventBufferFullIs503(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100), middleware.WithBufferSize(1))
	f.sink.err = errors.New("broker down")

	rec, env := f.do(t, http.MethodPost, "/api/v1/events",
		`{"pair":"BTC/USDT","side":"buy","amount":1,"price":100,"timestamp":"2024-05-01T12:00:00Z"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, string(env.Data), string(middleware.Buffered))

	rec, _ = f.do(t, http.MethodPost, "/api/v1/events",
		`{"pair":"ETH/USDT","side":"buy","amount":1,"price":100,"timestamp":"2024-05-01T12:00:00Z"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusReflectsProbes(t *testing.T) {
	f := newFixture(t, repository.NewSyntheticCandles(100))
	f.status.Add("journal", f.journal.Health)

	rec, _ := f.do(t, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.status.Add("candle_stream", func(context.Context) error { return errors.New("disconnected") })
	rec, env := f.do(t, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var rep StatusReport
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	require.Len(t, rep.Components, 2)
	assert.Equal(t, "candle_stream", rep.Components[0].Name)
	assert.False(t, rep.Components[0].Healthy)
	assert.True(t, rep.Components[1].Healthy)

	rec, _ = f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestToAppError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ToAppError(models.NewValidationError("pair", "required")).Status)
	assert.Equal(t, http.StatusBadRequest, ToAppError(&models.ScoringError{Strategy: "trend", Reason: "x"}).Status)
	assert.Equal(t, http.StatusUnprocessableEntity, ToAppError(&models.DataUnavailableError{Symbol: "X"}).Status)
	assert.Equal(t, http.StatusServiceUnavailable, ToAppError(middleware.ErrBufferFull).Status)
	assert.Equal(t, http.StatusInternalServerError, ToAppError(errors.New("boom")).Status)
}
