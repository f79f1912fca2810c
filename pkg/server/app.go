package server

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	mid "TradeScore/internal/middleware"
	"TradeScore/internal/usecase"
	"TradeScore/pkg/config"
	xhttp "TradeScore/pkg/http"
	pkgkafka "TradeScore/pkg/kafka"
	applogger "TradeScore/pkg/logger"
)

// App owns the long-running tasks: the HTTP server, the Kafka consumer feeding the score pipeline,
// the kline collector and the ingest gate's retry loop. Any of them but the HTTP server may be nil.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	collector  *usecase.CandleCollector
	gate       *mid.IngestGate
}

func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	collector *usecase.CandleCollector,
	gate *mid.IngestGate,
) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{cfg: cfg, l: l, httpServer: httpServer, consumer: consumer, collector: collector, gate: gate}
}

// Run blocks until ctx is cancelled or a task fails, then stops everything. Infrastructure clients
// are closed by the DI cleanup afterwards.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.gate != nil {
		a.gate.Start(gctx)
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.InTopic))
	}

	if a.collector != nil {
		g.Go(func() error {
			a.l.Info("candle collector started", applogger.Strings("symbols", a.cfg.Binance.Symbols))
			return a.collector.Run(gctx)
		})
	}

	if a.httpServer != nil && a.cfg.Server.Enabled {
		g.Go(func() error { return a.httpServer.Run(gctx) })
	}

	<-gctx.Done()
	a.l.Info("shutting down")
	err := g.Wait()
	a.shutdown()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.gate != nil {
		a.gate.Stop()
		if n := a.gate.Buffered(); n > 0 {
			a.l.Warn("ingest events dropped at shutdown", applogger.Int("buffered", n))
		}
	}
	a.l.Info("shutdown complete")
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 15 * time.Second
}
