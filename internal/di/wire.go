//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"TradeScore/pkg/config"
	"TradeScore/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideKafkaProducer,
	ProvideCache,
)

var repositorySet = wire.NewSet(
	ProvideRollingStore,
	ProvideIndicatorProvider,
	ProvideTradeStore,
	ProvidePublisher,
)

var usecaseSet = wire.NewSet(
	ProvideScorers,
	ProvidePenaltyEvaluator,
	ProvideHistoryConfig,
	ProvideScorePipeline,
	ProvideScoreFacade,
	ProvideScoreService,
	ProvideCandlesUseCase,
	ProvideIngestGate,
	ProvideCandleCollector,
)

// InitializeApp wires up all dependencies. The returned cleanup closes infrastructure clients in
// reverse construction order.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		repositorySet,
		usecaseSet,
		ProvideKafkaConsumer,
		ProvideStatusBoard,
		ProvideScoreHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
