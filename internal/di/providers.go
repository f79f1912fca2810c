package di

import (
	"context"
	"fmt"
	"time"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	"TradeScore/internal/handler/api"
	mid "TradeScore/internal/middleware"
	internalrepo "TradeScore/internal/repository"
	"TradeScore/internal/service/binance"
	"TradeScore/internal/service/ratelimit"
	"TradeScore/internal/services/forbidden"
	"TradeScore/internal/services/scoring"
	"TradeScore/internal/usecase"
	"TradeScore/pkg/cache"
	pkgch "TradeScore/pkg/clickhouse"
	"TradeScore/pkg/config"
	xhttp "TradeScore/pkg/http"
	pkgkafka "TradeScore/pkg/kafka"
	applogger "TradeScore/pkg/logger"
	"TradeScore/pkg/metrics"
	"TradeScore/pkg/server"
)

// ProvideLogger builds the root logger. The Kafka log collector is attached later, once the
// producer exists.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.CandleSchema(cfg.ClickHouse.Database, cfg.ClickHouse.CandleTable)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse: connected", applogger.String("database", cfg.ClickHouse.Database))

	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideKafkaProducer builds the producer shared by the score publisher, the ingest gate and the log
// collector. The writer dials lazily, so a down broker surfaces as publish errors, not here.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Logging.CollectorTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval: cfg.Logging.CollectorInterval,
			Topic:        cfg.Logging.CollectorTopic,
			Publisher:    producer,
		})
	}

	cleanup := func() {
		l.RemoveCollector()
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideCache returns nil when caching is off. A Redis that cannot be reached degrades to the
// in-process cache instead of failing startup.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	if !cfg.Cache.Enabled {
		return nil, func() {}, nil
	}
	var svc cache.Service = cache.NewMemoryCache(
		cache.WithMemoryMaxSize(cfg.Cache.MaxEntries),
		cache.WithMemoryTTL(cfg.Cache.TTL),
	)
	if cfg.Cache.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix("tradescore:"),
		)
		if err != nil {
			l.Warn("redis unavailable, using memory cache only", applogger.Error(err))
		} else {
			_ = svc.Close()
			svc = cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MaxEntries))
		}
	}
	cleanup := func() { _ = svc.Close() }
	return svc, cleanup, nil
}

func ProvideRollingStore(cfg *config.Config) *internalrepo.RollingCandleStore {
	return internalrepo.NewRollingCandleStore(cfg.Candles.StreamBuffer)
}

// ProvideIndicatorProvider selects the candle source. Remote sources sit behind the read-through
// cache; the synthetic generator is never cached because its bars depend on the price hint.
func ProvideIndicatorProvider(
	cfg *config.Config,
	ch *pkgch.Client,
	rolling *internalrepo.RollingCandleStore,
	c cache.Service,
	l *applogger.Logger,
) domrepo.IndicatorProvider {
	var (
		p         domrepo.IndicatorProvider
		cacheable bool
	)
	switch cfg.Candles.Provider {
	case "clickhouse":
		p, cacheable = internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.CandleTable, cfg.Candles.Lookback, l), true
	case "binance":
		client := xhttp.NewClient(
			xhttp.WithBaseURL(cfg.Binance.RestURL),
			xhttp.WithTimeout(cfg.Binance.RequestTimeout),
			xhttp.WithRetry(2, 200*time.Millisecond),
		)
		p, cacheable = internalrepo.NewBinanceCandles(client, l), true
	case "stream":
		p = rolling
	default:
		p = internalrepo.NewSyntheticCandles(models.DefaultMaxLookback)
	}
	l.Info("candle provider selected", applogger.String("provider", cfg.Candles.Provider))
	if cacheable && c != nil {
		return internalrepo.NewCachedCandleProvider(p, c, cfg.Cache.TTL, l)
	}
	return p
}

func ProvideTradeStore(cfg *config.Config, ch *pkgch.Client) (domrepo.TradeStore, func(), error) {
	var store domrepo.TradeStore
	if cfg.Journal.Store == "clickhouse" {
		store = internalrepo.NewCHTradeStore(ch, cfg.ClickHouse.TradeTable)
	} else {
		store = internalrepo.NewMemoryTradeStore(cfg.Journal.MemoryCap)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, nil, fmt.Errorf("trade store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) *internalrepo.KafkaPublisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.InTopic, cfg.Kafka.OutTopic)
}

func ProvideScorers() *scoring.Registry {
	return scoring.DefaultRegistry()
}

func ProvidePenaltyEvaluator(cfg *config.Config) *forbidden.Evaluator {
	fc := forbidden.DefaultConfig()
	fc.MaxPositionRatio = cfg.Forbidden.MaxPositionRatio
	fc.RevengeWindow = cfg.Forbidden.RevengeWindow
	fc.MaxDailyTrades = cfg.Forbidden.MaxDailyTrades
	fc.ChaseThreshold = cfg.Forbidden.ChaseThreshold
	fc.ChaseLookback = cfg.Forbidden.ChaseLookback
	return forbidden.NewEvaluator(fc)
}

func ProvideHistoryConfig(cfg *config.Config) usecase.HistoryConfig {
	return usecase.HistoryConfig{
		Limit:         cfg.Scoring.HistoryLimit,
		Window:        cfg.Scoring.HistoryWindow,
		AccountEquity: cfg.Scoring.AccountEquity,
	}
}

func ProvideScorePipeline(
	cfg *config.Config,
	provider domrepo.IndicatorProvider,
	scorers *scoring.Registry,
	penalty *forbidden.Evaluator,
	journal domrepo.TradeStore,
	pub *internalrepo.KafkaPublisher,
	m domrepo.Metrics,
	history usecase.HistoryConfig,
	l *applogger.Logger,
) *usecase.ScorePipeline {
	return usecase.NewScorePipeline(usecase.PipelineConfig{
		Topic:             cfg.Kafka.InTopic,
		Timeframe:         models.NormalizeTimeframe(cfg.Candles.Timeframe),
		Lookback:          cfg.Candles.Lookback,
		FetchTimeout:      cfg.Candles.FetchTimeout,
		DefaultStrategy:   cfg.Scoring.DefaultStrategy,
		IncludeIndicators: cfg.Scoring.IncludeDetails,
		History:           history,
	}, provider, scorers, penalty, journal, pub, m, l)
}

func ProvideScoreFacade(
	cfg *config.Config,
	provider domrepo.IndicatorProvider,
	scorers *scoring.Registry,
	penalty *forbidden.Evaluator,
	journal domrepo.TradeStore,
	pub *internalrepo.KafkaPublisher,
	m domrepo.Metrics,
	history usecase.HistoryConfig,
	l *applogger.Logger,
) *usecase.ScoreFacade {
	return usecase.NewScoreFacade(usecase.FacadeConfig{
		Lookback:        cfg.Candles.Lookback,
		FetchTimeout:    cfg.Candles.FetchTimeout,
		DefaultStrategy: cfg.Scoring.DefaultStrategy,
		PublishScores:   cfg.Scoring.PublishScores,
		History:         history,
	}, provider, scorers, penalty, journal, pub, m, l)
}

func ProvideScoreService(
	cfg *config.Config,
	provider domrepo.IndicatorProvider,
	scorers *scoring.Registry,
	penalty *forbidden.Evaluator,
	journal domrepo.TradeStore,
	m domrepo.Metrics,
	history usecase.HistoryConfig,
	l *applogger.Logger,
) *usecase.ScoreService {
	return usecase.NewScoreService(provider, scorers, penalty, journal, history,
		cfg.Candles.Lookback, cfg.Candles.FetchTimeout, m, l)
}

func ProvideCandlesUseCase(provider domrepo.IndicatorProvider) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(provider)
}

func ProvideIngestGate(cfg *config.Config, pub *internalrepo.KafkaPublisher, m domrepo.Metrics, l *applogger.Logger) *mid.IngestGate {
	return mid.NewIngestGate(pub, m,
		mid.WithPerPairInterval(cfg.Ingest.PerPairInterval),
		mid.WithBufferSize(cfg.Ingest.BufferSize),
		mid.WithGateLogger(l),
	)
}

// ProvideCandleCollector is nil unless the stream provider is selected. Closed bars are also
// written to ClickHouse when it is enabled, which keeps the clickhouse provider warm for later runs.
func ProvideCandleCollector(
	cfg *config.Config,
	rolling *internalrepo.RollingCandleStore,
	ch *pkgch.Client,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.CandleCollector {
	if cfg.Candles.Provider != "stream" {
		return nil
	}
	stream := binance.NewKlineStream(
		cfg.Binance.WebSocketURL,
		cfg.Binance.Symbols,
		models.NormalizeTimeframe(cfg.Candles.Timeframe),
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
		l,
	)
	var writer usecase.CandleWriter
	if ch != nil {
		writer = internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.CandleTable, cfg.Candles.Lookback, l)
	}
	return usecase.NewCandleCollector(stream, rolling, writer, m, l)
}

// ProvideKafkaConsumer returns nil when Kafka consumption is disabled. Retries default to zero so a
// failed event is logged and skipped, never redelivered.
func ProvideKafkaConsumer(cfg *config.Config, pipeline *usecase.ScorePipeline, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerStartOffset(cfg.Kafka.Consumer.StartOffset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes, cfg.Kafka.Consumer.MaxWait),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.RejectEmptyHook(), pkgkafka.TraceHook()))
	consumer.RegisterHandler(pipeline)
	return consumer, nil
}

func ProvideStatusBoard(
	journal domrepo.TradeStore,
	ch *pkgch.Client,
	collector *usecase.CandleCollector,
) *api.StatusBoard {
	board := api.NewStatusBoard()
	board.Add("journal", journal.Health)
	if ch != nil {
		board.Add("clickhouse", ch.Health)
	}
	if collector != nil {
		board.Add("candle_stream", func(context.Context) error {
			if !collector.IsConnected() {
				return fmt.Errorf("kline stream disconnected")
			}
			return nil
		})
	}
	return board
}

func ProvideScoreHandler(
	l *applogger.Logger,
	svc *usecase.ScoreService,
	facade *usecase.ScoreFacade,
	candles *usecase.CandlesUseCase,
	gate *mid.IngestGate,
	status *api.StatusBoard,
) *api.ScoreHandler {
	return api.NewScoreHandler(l, svc, facade, candles, gate, status)
}

func ProvideHTTPServer(cfg *config.Config, h *api.ScoreHandler, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	if cfg.Server.RateLimit > 0 {
		rps := float64(cfg.Server.RateLimit)
		opts = append(opts, xhttp.WithRateLimiter(ratelimit.New(rps, rps)))
	}
	return xhttp.NewServer(h, l, opts...)
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	collector *usecase.CandleCollector,
	gate *mid.IngestGate,
) *server.App {
	return server.New(cfg, l, httpServer, consumer, collector, gate)
}
