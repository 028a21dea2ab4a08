package di

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	commandhandlers "github.com/zhaizeyu/smart-mind/application/commands/handlers"
	"github.com/zhaizeyu/smart-mind/application/ports"
	querybus "github.com/zhaizeyu/smart-mind/application/queries/bus"
	queryhandlers "github.com/zhaizeyu/smart-mind/application/queries/handlers"
	"github.com/zhaizeyu/smart-mind/application/services"
	domainconfig "github.com/zhaizeyu/smart-mind/domain/config"
	"github.com/zhaizeyu/smart-mind/infrastructure/ai"
	"github.com/zhaizeyu/smart-mind/infrastructure/cache"
	"github.com/zhaizeyu/smart-mind/infrastructure/config"
	"github.com/zhaizeyu/smart-mind/infrastructure/messaging/eventbridge"
	"github.com/zhaizeyu/smart-mind/infrastructure/messaging/logging"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/badger"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/dynamodb"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/file"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/sqlite"
	"github.com/zhaizeyu/smart-mind/interfaces/http/rest"
	"github.com/zhaizeyu/smart-mind/pkg/auth"
	"github.com/zhaizeyu/smart-mind/pkg/observability"
)

const (
	serviceName = "smartmind"

	// queryCacheTTL is in seconds
	queryCacheTTL      = 30
	cacheSweepInterval = time.Minute
	metricsFlushEvery  = 30 * time.Second
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	var zcfg zap.Config
	if cfg.IsProduction() || cfg.IsLambda {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideDomainConfig returns the domain defaults with the configured map id
// and layout
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	dc := domainconfig.DefaultDomainConfig()
	dc.DefaultMapID = cfg.MapID
	dc.Layout = cfg.Layout
	if err := dc.Validate(); err != nil {
		return nil, err
	}
	return dc, nil
}

// AWSClients holds the AWS SDK clients the configuration asks for. A nil
// field means the feature that needs it is off.
type AWSClients struct {
	DynamoDB    *awsdynamodb.Client
	EventBridge *awseventbridge.Client
	CloudWatch  *awscloudwatch.Client
}

func needsAWS(cfg *config.Config) bool {
	return cfg.StorageDriver == config.DriverDynamoDB ||
		cfg.EventBusName != "" ||
		(cfg.EnableMetrics && cfg.IsLambda)
}

// ProvideAWSClients loads the default AWS configuration when any AWS
// backed feature is enabled
func ProvideAWSClients(ctx context.Context, cfg *config.Config) (*AWSClients, error) {
	clients := &AWSClients{}
	if !needsAWS(cfg) {
		return clients, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.StorageDriver == config.DriverDynamoDB {
		clients.DynamoDB = awsdynamodb.NewFromConfig(awsCfg)
	}
	if cfg.EventBusName != "" {
		clients.EventBridge = awseventbridge.NewFromConfig(awsCfg)
	}
	if cfg.EnableMetrics && cfg.IsLambda {
		clients.CloudWatch = awscloudwatch.NewFromConfig(awsCfg, func(o *awscloudwatch.Options) {
			o.RetryMaxAttempts = 2
		})
	}
	return clients, nil
}

// ProvideForestRepository opens the storage backend named by STORAGE_DRIVER
func ProvideForestRepository(cfg *config.Config, clients *AWSClients, logger *zap.Logger) (ports.ForestRepository, func(), error) {
	noop := func() {}

	switch cfg.StorageDriver {
	case config.DriverBadger:
		bcfg := badger.DefaultConfig(filepath.Join(cfg.DataDir, "badger"))
		bcfg.Logger = logger
		store, err := badger.Open(bcfg)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close badger store", zap.Error(err))
			}
		}, nil

	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		store, err := sqlite.Open(filepath.Join(cfg.DataDir, "smartmind.db"))
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}, nil

	case config.DriverDynamoDB:
		lock := dynamodb.NewMapLock(clients.DynamoDB, cfg.DynamoDBTable, logger)
		return dynamodb.NewForestRepository(clients.DynamoDB, cfg.DynamoDBTable, logger, dynamodb.WithLock(lock)), noop, nil

	default:
		repo, err := file.NewRepository(afero.NewOsFs(), cfg.DataDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, noop, nil
	}
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured
// and to the log otherwise
func ProvideEventPublisher(cfg *config.Config, clients *AWSClients, logger *zap.Logger) ports.EventPublisher {
	if clients.EventBridge != nil {
		return eventbridge.NewPublisher(clients.EventBridge, cfg.EventBusName, logger)
	}
	return logging.NewPublisher(logger)
}

// ProvideCache creates the query cache
func ProvideCache() (*cache.InMemoryCache, func()) {
	c := cache.NewInMemoryCache(cacheSweepInterval)
	return c, c.Close
}

// ProvideLayoutHolder starts watching the config file for layout changes
func ProvideLayoutHolder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*config.LayoutHolder, func()) {
	holder := config.NewLayoutHolder(cfg.Layout)
	if cfg.ConfigFile == "" || cfg.IsLambda {
		return holder, func() {}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := holder.Watch(watchCtx, cfg.ConfigFile, logger); err != nil {
			logger.Warn("Layout watcher stopped", zap.String("path", cfg.ConfigFile), zap.Error(err))
		}
	}()
	return holder, cancel
}

// ProvideWorkspace creates the mind map workspace
func ProvideWorkspace(
	repo ports.ForestRepository,
	publisher ports.EventPublisher,
	layout *config.LayoutHolder,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *services.Workspace {
	return services.NewWorkspace(repo, domainCfg, logger,
		services.WithEventPublisher(publisher),
		services.WithLayoutSource(layout),
	)
}

// Observability bundles the metric and trace sinks
type Observability struct {
	Registry   *prometheus.Registry
	Prometheus *observability.PrometheusMetrics
	CloudWatch *observability.CloudWatchMetrics
	Tracer     *observability.Tracer
	Recorder   observability.Recorder
}

// ProvideObservability creates the metric sinks enabled by the config. The
// CloudWatch buffer is flushed in the background until cleanup.
func ProvideObservability(ctx context.Context, cfg *config.Config, clients *AWSClients, logger *zap.Logger) (*Observability, func()) {
	obs := &Observability{}
	cleanup := func() {}

	if cfg.EnableTracing {
		obs.Tracer = observability.NewTracer(serviceName)
	}
	if !cfg.EnableMetrics {
		return obs, cleanup
	}

	obs.Registry = prometheus.NewRegistry()
	obs.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs.Prometheus = observability.NewPrometheusMetrics(obs.Registry, serviceName)
	fanout := observability.Fanout{obs.Prometheus}

	if clients.CloudWatch != nil {
		obs.CloudWatch = observability.NewCloudWatchMetrics(fmt.Sprintf("SmartMind/%s", cfg.Environment), clients.CloudWatch)
		fanout = append(fanout, obs.CloudWatch)

		runCtx, cancel := context.WithCancel(ctx)
		go obs.CloudWatch.Run(runCtx, metricsFlushEvery, func(err error) {
			logger.Warn("Failed to flush metrics", zap.Error(err))
		})
		cleanup = func() {
			cancel()
			flushCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := obs.CloudWatch.Flush(flushCtx); err != nil {
				logger.Warn("Failed to flush metrics", zap.Error(err))
			}
		}
	}

	obs.Recorder = fanout
	return obs, cleanup
}

// ProvideCommandBus creates the command bus with every command handler
// registered
func ProvideCommandBus(
	workspace *services.Workspace,
	queryCache *cache.InMemoryCache,
	obs *Observability,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	middlewares := []bus.Middleware{bus.LoggingMiddleware(&zapLoggerAdapter{logger})}
	if obs.Recorder != nil {
		middlewares = append(middlewares, bus.MetricsMiddleware(commandMetrics{obs.Recorder}))
	}
	if obs.Tracer != nil {
		middlewares = append(middlewares, bus.TracingMiddleware(obs.Tracer))
	}
	middlewares = append(middlewares, bus.InvalidationMiddleware(queryCache, querybus.ScopePrefix))

	commandBus := bus.NewCommandBus(middlewares...)
	if err := commandhandlers.NewMindMapHandler(workspace, logger).Register(commandBus); err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates the query bus with every query handler registered
func ProvideQueryBus(
	workspace *services.Workspace,
	queryCache *cache.InMemoryCache,
	obs *Observability,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	var wrappers []querybus.Wrapper
	if obs.Recorder != nil {
		wrappers = append(wrappers, querybus.NewMetricsMiddleware(queryMetrics{obs.Recorder}))
	}
	wrappers = append(wrappers, querybus.NewCachingMiddleware(queryCache, queryCacheTTL))

	queryBus := querybus.NewQueryBus(wrappers...)
	if err := queryhandlers.NewMindMapQueryHandler(workspace, logger).Register(queryBus); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideAnswerer creates the model dispatcher behind /api/ask
func ProvideAnswerer(cfg *config.Config, logger *zap.Logger) (*ai.Dispatcher, error) {
	history, err := ai.NewHistory(afero.NewOsFs(), cfg.HistoryPath)
	if err != nil {
		return nil, err
	}
	d := ai.NewDispatcher(cfg.AI, history, logger)
	logger.Info("Model provider selected", zap.String("provider", d.Provider()))
	return d, nil
}

// ProvideAskLimiter limits /api/ask per caller. Lambda instances share a
// DynamoDB counter; everything else keeps buckets in memory.
func ProvideAskLimiter(cfg *config.Config, clients *AWSClients) auth.RateLimiter {
	if cfg.AskRateLimit <= 0 {
		return nil
	}
	if cfg.IsLambda && clients.DynamoDB != nil {
		return auth.NewDistributedRateLimiter(clients.DynamoDB, cfg.DynamoDBTable, cfg.AskRateLimit, time.Minute, "ASK")
	}
	return auth.NewTokenBucketLimiter(cfg.AskRateLimit)
}

// ProvideRouter assembles the HTTP router from the enabled features
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	answerer *ai.Dispatcher,
	limiter auth.RateLimiter,
	repo ports.ForestRepository,
	obs *Observability,
	logger *zap.Logger,
) (*rest.Router, error) {
	opts := []rest.Option{
		rest.WithDebugErrors(cfg.IsDevelopment()),
		rest.WithReadiness(func(ctx context.Context) error {
			_, err := repo.Load(ctx, cfg.MapID)
			return err
		}),
	}
	if cfg.EnableCORS {
		opts = append(opts, rest.WithCORS("*"))
	}
	if cfg.EnableAuth {
		validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
		if err != nil {
			return nil, err
		}
		opts = append(opts, rest.WithAuth(validator))
	}
	if limiter != nil {
		opts = append(opts, rest.WithAskLimiter(limiter))
	}
	if obs.Prometheus != nil {
		opts = append(opts, rest.WithMetrics(obs.Prometheus, obs.Registry))
	}
	if obs.Tracer != nil {
		opts = append(opts, rest.WithTracing(obs.Tracer))
	}

	return rest.NewRouter(commandBus, queryBus, answerer, cfg.MapID, logger, opts...), nil
}

// commandMetrics adapts a Recorder to the command bus Metrics interface
type commandMetrics struct {
	rec observability.Recorder
}

func (m commandMetrics) StartTimer(metric, label string) bus.Timer {
	return observability.StartTimer(m.rec, metric, label)
}

func (m commandMetrics) Increment(metric, label string) { m.rec.Increment(metric, label) }

// queryMetrics adapts a Recorder to the query bus Metrics interface
type queryMetrics struct {
	rec observability.Recorder
}

func (m queryMetrics) StartTimer(metric, label string) querybus.Timer {
	return observability.StartTimer(m.rec, metric, label)
}

func (m queryMetrics) Increment(metric, label string) { m.rec.Increment(metric, label) }

// zapLoggerAdapter adapts zap.Logger to the bus Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Debug(msg string, fields ...interface{}) {
	a.logger.Debug(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Error(msg string, fields ...interface{}) {
	a.logger.Error(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) fieldsToZap(fields ...interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i+1 < len(fields); i += 2 {
		key, _ := fields[i].(string)
		zapFields = append(zapFields, zap.Any(key, fields[i+1]))
	}
	return zapFields
}
