package usecase

import (
	"context"
	"errors"
	"time"

	"TradeScore/internal/domain/models"
	drepo "TradeScore/internal/domain/repository"
	applogger "TradeScore/pkg/logger"
)

// CandleWriter persists closed bars, e.g. into the ClickHouse candle table.
type CandleWriter interface {
	InsertCandles(ctx context.Context, candles []models.Candle) error
}

// CandleCollector feeds closed bars from a live stream into the rolling store and, optionally, a
// persistent writer.
type CandleCollector struct {
	stream  drepo.CandleStream
	sink    drepo.CandleSink
	writer  CandleWriter
	metrics drepo.Metrics
	l       *applogger.Logger
	source  string
}

func NewCandleCollector(stream drepo.CandleStream, sink drepo.CandleSink, writer CandleWriter, metrics drepo.Metrics, l *applogger.Logger) *CandleCollector {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CandleCollector{
		stream:  stream,
		sink:    sink,
		writer:  writer,
		metrics: metrics,
		l:       l.With(applogger.String("component", "candle_collector")),
		source:  "binance",
	}
}

func (c *CandleCollector) IsConnected() bool { return c.stream.IsConnected() }

// Run connects and consumes until ctx is done, reconnecting whenever the stream fails.
func (c *CandleCollector) Run(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	defer c.stream.Close()

	for {
		candles, errs := c.stream.Read(ctx)
		if err := c.consume(ctx, candles, errs); err != nil {
			c.metrics.RecordError("stream")
			c.l.Warn("candle stream failed, reconnecting", applogger.Error(err))
			for ctx.Err() == nil {
				if rerr := c.stream.Reconnect(ctx); rerr == nil {
					break
				} else if ctx.Err() == nil {
					c.l.Error("candle stream reconnect failed", applogger.Error(rerr))
				}
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// consume drains one connection. It returns the stream error, or nil when ctx ended.
func (c *CandleCollector) consume(ctx context.Context, candles <-chan models.Candle, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if ok && err != nil {
				return err
			}
			errs = nil
		case bar, ok := <-candles:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				// read loop ended; pick up its error if one was sent
				if errs != nil {
					if err, ok := <-errs; ok && err != nil {
						return err
					}
				}
				return errStreamClosed
			}
			c.handle(ctx, bar)
		}
	}
}

func (c *CandleCollector) handle(ctx context.Context, bar models.Candle) {
	c.sink.Append(bar)
	c.metrics.RecordCandle(c.source, bar.Symbol)
	if c.writer == nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.writer.InsertCandles(wctx, []models.Candle{bar}); err != nil {
		c.metrics.RecordError("candle_store")
		c.l.Error("persist candle failed",
			applogger.String("symbol", bar.Symbol),
			applogger.Time("ts", bar.Timestamp),
			applogger.Error(err))
	}
}

var errStreamClosed = errors.New("candle stream closed")
