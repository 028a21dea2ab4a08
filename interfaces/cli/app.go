// Package cli is the smartmind command line client. Every invocation loads
// the local store, applies its commands and saves.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	commandhandlers "github.com/zhaizeyu/smart-mind/application/commands/handlers"
	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/application/queries"
	querybus "github.com/zhaizeyu/smart-mind/application/queries/bus"
	queryhandlers "github.com/zhaizeyu/smart-mind/application/queries/handlers"
	"github.com/zhaizeyu/smart-mind/application/services"
	domainconfig "github.com/zhaizeyu/smart-mind/domain/config"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/infrastructure/ai"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/badger"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/file"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/sqlite"
	"github.com/zhaizeyu/smart-mind/infrastructure/remote"
)

// MapID is the single mind map the CLI works on
const MapID = "graph"

// Local store kinds
const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

var (
	errNoServer = errors.New("no server configured, pass --server")
	errNoAI     = errors.New("no AI backend configured, pass --ai")
)

// Options are the persistent flags shared by every command
type Options struct {
	Store   string
	DataDir string
	Server  string
	AI      string
	Verbose bool
}

// DefaultDataDir is ~/.smartmind, or .smartmind when there is no home
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".smartmind"
	}
	return filepath.Join(home, ".smartmind")
}

// App is one opened local workspace
type App struct {
	out       io.Writer
	logger    *zap.Logger
	local     ports.LocalStore
	closeRepo func() error
	workspace *services.Workspace
	commands  *bus.CommandBus
	queries   *querybus.QueryBus
	remote    ports.RemoteStore
	assistant *services.Assistant
}

// Open opens the local store named by opts. A store with nothing in it is
// seeded with the default root so node ids stay stable across invocations.
func Open(ctx context.Context, opts Options, out io.Writer) (*App, error) {
	logger := zap.NewNop()
	if opts.Verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = l
	}

	repo, closeRepo, err := openStore(opts, logger)
	if err != nil {
		return nil, err
	}

	domainCfg := domainconfig.DefaultDomainConfig()
	domainCfg.DefaultMapID = MapID
	workspace := services.NewWorkspace(repo, domainCfg, logger)

	commandBus := bus.NewCommandBus()
	if err := commandhandlers.NewMindMapHandler(workspace, logger).Register(commandBus); err != nil {
		closeRepo()
		return nil, err
	}
	queryBus := querybus.NewQueryBus()
	if err := queryhandlers.NewMindMapQueryHandler(workspace, logger).Register(queryBus); err != nil {
		closeRepo()
		return nil, err
	}

	app := &App{
		out:       out,
		logger:    logger,
		local:     persistence.Bind(repo, MapID),
		closeRepo: closeRepo,
		workspace: workspace,
		commands:  commandBus,
		queries:   queryBus,
	}
	if opts.Server != "" {
		app.remote = remote.NewClient(opts.Server, logger)
	}
	if opts.AI != "" {
		app.assistant = services.NewAssistant(ai.NewClient(opts.AI, logger), commandBus, workspace, logger)
	}

	if err := app.seed(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func openStore(opts Options, logger *zap.Logger) (ports.ForestRepository, func() error, error) {
	dir := opts.DataDir
	if dir == "" {
		dir = DefaultDataDir()
	}

	switch opts.Store {
	case StoreBadger, "":
		cfg := badger.DefaultConfig(filepath.Join(dir, "badger"))
		cfg.Logger = logger
		store, err := badger.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case StoreSQLite:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		store, err := sqlite.Open(filepath.Join(dir, "smartmind.db"))
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case StoreFile:
		repo, err := file.NewRepository(afero.NewOsFs(), dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q, want badger, sqlite or file", opts.Store)
	}
}

// seed persists the synthesized root of a missing or empty forest so the
// root id stays stable across runs. An unreadable store is cleared and
// starts over from an empty forest.
func (a *App) seed(ctx context.Context) error {
	forest, err := a.local.Load(ctx)
	if err != nil {
		a.logger.Warn("Local store unreadable, starting empty", zap.Error(err))
		if err := a.local.Clear(ctx); err != nil {
			return err
		}
	}
	if len(forest) > 0 {
		return nil
	}
	return a.workspace.Mutate(ctx, MapID, func(*aggregates.MindMap) (bool, error) {
		return true, nil
	})
}

// Close releases the local store
func (a *App) Close() error {
	_ = a.logger.Sync()
	return a.closeRepo()
}

// Send applies one command to the local map
func (a *App) Send(ctx context.Context, cmd bus.Command) error {
	return a.commands.Send(ctx, cmd)
}

// MindMap returns the current forest
func (a *App) MindMap(ctx context.Context) (*queries.MindMapView, error) {
	res, err := a.queries.Ask(ctx, queries.GetMindMapQuery{MapID: MapID})
	if err != nil {
		return nil, err
	}
	view, ok := res.(*queries.MindMapView)
	if !ok {
		return nil, fmt.Errorf("unexpected result %T", res)
	}
	return view, nil
}

// Clear empties the local store. The next load synthesizes a fresh root.
func (a *App) Clear(ctx context.Context) error {
	if err := a.local.Clear(ctx); err != nil {
		return err
	}
	a.workspace.Forget(MapID)
	return nil
}
