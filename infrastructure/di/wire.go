//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/zhaizeyu/smart-mind/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSClients,
	ProvideForestRepository,
	ProvideEventPublisher,
	ProvideCache,
	ProvideLayoutHolder,
	ProvideWorkspace,
	ProvideObservability,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideAnswerer,
	ProvideAskLimiter,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. cleanup releases
// storage, watchers and background flushers in reverse order.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
