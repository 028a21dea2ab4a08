// Package di assembles the server from configuration. wire.go declares the
// provider graph; wire_gen.go is generated from it.
package di

import (
	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	"github.com/zhaizeyu/smart-mind/application/ports"
	querybus "github.com/zhaizeyu/smart-mind/application/queries/bus"
	"github.com/zhaizeyu/smart-mind/application/services"
	"github.com/zhaizeyu/smart-mind/infrastructure/ai"
	"github.com/zhaizeyu/smart-mind/infrastructure/cache"
	"github.com/zhaizeyu/smart-mind/infrastructure/config"
	"github.com/zhaizeyu/smart-mind/interfaces/http/rest"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Repository    ports.ForestRepository
	Publisher     ports.EventPublisher
	Cache         *cache.InMemoryCache
	Layout        *config.LayoutHolder
	Workspace     *services.Workspace
	CommandBus    *bus.CommandBus
	QueryBus      *querybus.QueryBus
	Answerer      *ai.Dispatcher
	Observability *Observability
	Router        *rest.Router
}
