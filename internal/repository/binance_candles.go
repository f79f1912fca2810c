package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	pkghttp "TradeScore/pkg/http"
	applogger "TradeScore/pkg/logger"
	"TradeScore/pkg/util"
)

// binanceMaxLimit is the largest page /api/v3/klines serves.
const binanceMaxLimit = 1000

// BinanceCandles fetches klines from the Binance public REST API.
type BinanceCandles struct {
	client *pkghttp.Client
	l      *applogger.Logger
}

var _ domrepo.IndicatorProvider = (*BinanceCandles)(nil)

func NewBinanceCandles(client *pkghttp.Client, l *applogger.Logger) *BinanceCandles {
	if l == nil {
		l = applogger.NewNop()
	}
	return &BinanceCandles{client: client, l: l}
}

func (b *BinanceCandles) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, anchor time.Time, count int) (models.CandleSeries, error) {
	if count <= 0 || count > binanceMaxLimit {
		count = min(max(count, models.DefaultMaxLookback), binanceMaxLimit)
	}
	query := map[string][]string{
		"symbol":   {util.ExchangeSymbol(symbol)},
		"interval": {string(tf)},
		"limit":    {strconv.Itoa(count)},
	}
	if !anchor.IsZero() {
		query["endTime"] = []string{strconv.FormatInt(anchor.UnixMilli(), 10)}
	}

	body, err := b.client.Fetch(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         "/api/v3/klines",
		QueryParams: query,
	})
	if err != nil {
		var se *pkghttp.StatusError
		if errors.As(err, &se) && se.Code >= http.StatusBadRequest && se.Code < http.StatusInternalServerError {
			// unknown symbol or interval, retrying will not help
			return nil, &models.DataUnavailableError{Symbol: symbol, Err: fmt.Errorf("binance rejected request: %s", gjson.Get(se.Body, "msg").String())}
		}
		b.l.Error("binance klines fetch failed",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err))
		return nil, &models.DataUnavailableError{Symbol: symbol, Err: err}
	}

	candles, err := parseKlines(body, symbol, tf)
	if err != nil {
		return nil, &models.DataUnavailableError{Symbol: symbol, Err: err}
	}
	series, err := models.NewCandleSeries(candles, count)
	if err != nil {
		return nil, &models.DataUnavailableError{Symbol: symbol, Err: err}
	}
	if !anchor.IsZero() {
		series = series.Before(anchor)
	}
	if series.Empty() {
		return nil, &models.DataUnavailableError{Symbol: symbol, Err: errors.New("binance returned no klines")}
	}
	return series, nil
}

// parseKlines reads the positional kline arrays:
// [openTime, "open", "high", "low", "close", "volume", closeTime, ...].
func parseKlines(body []byte, symbol string, tf models.Timeframe) ([]models.Candle, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("binance klines: invalid json")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("binance klines: expected array, got %s", root.Type)
	}
	rows := root.Array()
	out := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		f := row.Array()
		if len(f) < 6 {
			return nil, fmt.Errorf("binance kline %d: %d fields", i, len(f))
		}
		out = append(out, models.Candle{
			Symbol:    symbol,
			Timeframe: tf,
			Timestamp: time.UnixMilli(f[0].Int()).UTC(),
			Open:      f[1].Float(),
			High:      f[2].Float(),
			Low:       f[3].Float(),
			Close:     f[4].Float(),
			Volume:    f[5].Float(),
		})
	}
	return out, nil
}
