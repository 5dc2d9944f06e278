//go:build wireinject
// +build wireinject

package di

import (
	"heliowatch/pkg/config"
	"heliowatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideReadingStorage,
		ProvideReadingPublisher,
		ProvideGroundlinkStream,

		// Domain services
		ProvideDetectorConfig,
		ProvideModelRegistry,
		ProvideForecaster,
		ProvideResultCache,

		// Use cases
		ProvideSnapshot,
		ProvideEventTracker,
		ProvideReadingProcessor,
		ProvideReadingCollector,
		ProvideRiskSampler,
		ProvideAnalysisUseCase,
		ProvideStatusUseCase,
		ProvideReadingsQuery,
		ProvideKafkaReadingsHandler,

		// HTTP
		ProvideDashboardHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
