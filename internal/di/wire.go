//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"ChartCrime/pkg/config"
	"ChartCrime/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Data API and caching
		ProvideFredClient,
		ProvideCache,
		ProvideSeriesSource,

		// Storage and sinks
		ProvideFileStore,
		ProvideArchive,
		ProvideHub,
		ProvidePublisher,

		// Use cases
		ProvideExclusionFilter,
		ProvideCorrelator,
		ProvideCurationUseCase,
		ProvidePipeline,
		ProvideDiscoverer,

		// Application server
		ProvideHandler,
		ProvideServerOptions,
		ProvideApp,
	)
	return nil, nil, nil
}
