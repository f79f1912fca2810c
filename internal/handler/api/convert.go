package api

import (
	"fmt"
	"strings"
	"time"

	models "TradeScore/internal/domain/models"
	"TradeScore/pkg/util"
)

var zeroTime time.Time

// TradeInputFromRequest turns a bound journal request into typed input. Unparseable times are
// ValidationErrors naming the field.
func TradeInputFromRequest(req models.CreateTradeRequest) (models.TradeInput, error) {
	entry, ok := util.ParseTime(req.EntryTime)
	if !ok {
		return models.TradeInput{}, models.NewValidationError("entry_time", "unparseable: "+req.EntryTime)
	}
	tf := models.NormalizeTimeframe(req.Timeframe)
	in := models.TradeInput{
		Symbol:        strings.TrimSpace(req.Symbol),
		Side:          models.ParseSide(req.Side),
		EntryTime:     entry,
		EntryPrice:    req.EntryPrice,
		Quantity:      req.Quantity,
		ExitPrice:     req.ExitPrice,
		StopLoss:      req.StopLoss,
		Strategy:      req.Strategy,
		Timeframe:     tf,
		Memo:          req.Memo,
		Parameters:    req.Parameters,
		Indicators:    req.Indicators,
		AccountEquity: req.AccountEquity,
	}
	if req.ExitTime != "" {
		exit, ok := util.ParseTime(req.ExitTime)
		if !ok {
			return models.TradeInput{}, models.NewValidationError("exit_time", "unparseable: "+req.ExitTime)
		}
		in.ExitTime = &exit
	}
	if len(req.Candles) > 0 {
		candles, err := CandlesFromPayload(in.Symbol, tf, req.Candles)
		if err != nil {
			return models.TradeInput{}, err
		}
		in.Candles = candles
	}
	return in, nil
}

func CandlesFromPayload(symbol string, tf models.Timeframe, in []models.CandlePayload) ([]models.Candle, error) {
	out := make([]models.Candle, 0, len(in))
	for i, c := range in {
		ts, ok := util.ParseTime(c.Timestamp)
		if !ok {
			return nil, models.NewValidationError(fmt.Sprintf("candles[%d].timestamp", i), "unparseable: "+c.Timestamp)
		}
		out = append(out, models.Candle{
			Symbol: symbol, Timeframe: tf, Timestamp: ts,
			Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
		})
	}
	return out, nil
}

func EventFromRequest(req models.EventRequest) (models.TradeEvent, error) {
	ts, ok := util.ParseTime(req.Timestamp)
	if !ok {
		return models.TradeEvent{}, models.NewValidationError("timestamp", "unparseable: "+req.Timestamp)
	}
	return models.TradeEvent{
		ID:         req.ID,
		Pair:       strings.TrimSpace(req.Pair),
		Side:       models.ParseSide(req.Side),
		Amount:     req.Amount,
		Price:      req.Price,
		Timestamp:  ts,
		Strategy:   req.Strategy,
		Parameters: req.Parameters,
		Metadata:   req.Metadata,
	}, nil
}
