//go:build wireinject
// +build wireinject

package di

import (
	"AstroOverlay/internal/usecase"
	"AstroOverlay/pkg/config"
	"AstroOverlay/pkg/server"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,

	// Infrastructure clients
	ProvideRedis,
	ProvideDatasetStore,
	ProvideHistoryCache,
	ProvideHTTPClient,
	ProvidePublisher,
	ProvideArchive,

	// Repositories
	ProvideMarketHistory,
	ProvidePlanetaryLoader,

	// Use cases
	ProvideDatasetRegistry,
	ProvideRangeDefaults,
	ProvideOverlayUseCase,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,
		ProvideCatalog,
		ProvideWarmer,
		ProvideLimiter,
		ProvideOverlayHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeOverlay wires the render pipeline alone, for one-shot exports.
func InitializeOverlay(cfg *config.Config) (*usecase.OverlayUseCase, func(), error) {
	wire.Build(coreSet)
	return nil, nil, nil
}
