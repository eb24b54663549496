//go:build wireinject
// +build wireinject

package di

import (
	"github.com/erpesh/forex-server/pkg/config"
	"github.com/erpesh/forex-server/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Storage
		ProvideReferenceStore,
		ProvidePredictionStore,
		ProvideArtifactLoader,
		ProvideScoreStore,

		// Sentiment pipeline
		ProvideScoreHandler,
		ProvideSentimentFeed,

		// Use cases and HTTP surface
		ProvideForecaster,
		ProvideForecastHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
