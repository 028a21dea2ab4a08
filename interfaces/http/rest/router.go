package rest

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	"github.com/zhaizeyu/smart-mind/application/ports"
	querybus "github.com/zhaizeyu/smart-mind/application/queries/bus"
	"github.com/zhaizeyu/smart-mind/interfaces/http/rest/handlers"
	"github.com/zhaizeyu/smart-mind/interfaces/http/rest/middleware"
	"github.com/zhaizeyu/smart-mind/pkg/auth"
	"github.com/zhaizeyu/smart-mind/pkg/common"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
	"github.com/zhaizeyu/smart-mind/pkg/observability"
)

// ReadinessCheck reports whether the service can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	answerer   ports.Answerer
	defaultMap string
	logger     *zap.Logger

	corsOrigins []string
	validator   *auth.JWTValidator
	askLimiter  auth.RateLimiter
	metrics     *observability.PrometheusMetrics
	gatherer    prometheus.Gatherer
	tracer      *observability.Tracer
	ready       ReadinessCheck
	debug       bool
}

// Option configures a Router
type Option func(*Router)

// WithCORS allows cross-origin requests from origins
func WithCORS(origins ...string) Option {
	return func(rt *Router) { rt.corsOrigins = origins }
}

// WithAuth requires a valid bearer token on /api routes
func WithAuth(v *auth.JWTValidator) Option {
	return func(rt *Router) { rt.validator = v }
}

// WithAskLimiter rate limits POST /api/ask
func WithAskLimiter(l auth.RateLimiter) Option {
	return func(rt *Router) { rt.askLimiter = l }
}

// WithMetrics records HTTP metrics and serves g on /metrics
func WithMetrics(m *observability.PrometheusMetrics, g prometheus.Gatherer) Option {
	return func(rt *Router) {
		rt.metrics = m
		rt.gatherer = g
	}
}

// WithTracing opens an X-Ray segment per request
func WithTracing(t *observability.Tracer) Option {
	return func(rt *Router) { rt.tracer = t }
}

// WithReadiness sets the check behind /ready
func WithReadiness(check ReadinessCheck) Option {
	return func(rt *Router) { rt.ready = check }
}

// WithDebugErrors exposes internal error messages in responses
func WithDebugErrors(debug bool) Option {
	return func(rt *Router) { rt.debug = debug }
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	answerer ports.Answerer,
	defaultMap string,
	logger *zap.Logger,
	opts ...Option,
) *Router {
	rt := &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		answerer:   answerer,
		defaultMap: defaultMap,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()
	errs := pkgerrors.NewErrorHandler(rt.logger, rt.debug)

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errs.Middleware)
	if rt.tracer != nil {
		router.Use(rt.tracer.Middleware)
	}
	var observer middleware.HTTPObserver
	if rt.metrics != nil {
		observer = rt.metrics
	}
	router.Use(middleware.Logger(rt.logger, observer))

	if len(rt.corsOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errs.Handle(w, r, pkgerrors.NewNotFoundError("route "+r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errs.HandleStatus(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}

	mapOf := handlers.QueryOrDefault(rt.defaultMap)
	mindmapHandler := handlers.NewMindMapHandler(rt.commandBus, rt.queryBus, mapOf, errs, rt.logger)
	nodeHandler := handlers.NewNodeHandler(rt.commandBus, rt.queryBus, mapOf, errs, rt.logger)
	askHandler := handlers.NewAskHandler(rt.answerer, errs, rt.logger)

	router.Route("/api", func(r chi.Router) {
		if rt.validator != nil {
			r.Use(middleware.Authenticate(rt.validator, errs, rt.logger))
		}

		r.Route("/mindmap", func(r chi.Router) {
			r.Get("/", mindmapHandler.GetMindMap)
			r.Post("/", mindmapHandler.SaveMindMap)
			r.Get("/layout", mindmapHandler.GetLayout)
			r.Post("/arrange", mindmapHandler.Arrange)
		})
		r.Delete("/selection", mindmapHandler.ClearSelection)

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", nodeHandler.CreateNode)
			r.Get("/{nodeID}", nodeHandler.GetNode)
			r.Patch("/{nodeID}", nodeHandler.UpdateNode)
			r.Delete("/{nodeID}", nodeHandler.DeleteNode)
			r.Put("/{nodeID}/position", nodeHandler.MoveNode)
			r.Post("/{nodeID}/reparent", nodeHandler.ReparentNode)
			r.Post("/{nodeID}/select", nodeHandler.SelectNode)
			r.Get("/{nodeID}/summary-request", nodeHandler.GetSummaryRequest)
		})

		r.Group(func(r chi.Router) {
			if rt.askLimiter != nil {
				r.Use(middleware.RateLimit(rt.askLimiter, errs, rt.logger))
			}
			r.Post("/ask", askHandler.Ask)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, common.StatusResponse{Status: "healthy"})
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.ready != nil {
		if err := rt.ready(req.Context()); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			common.RespondJSON(w, http.StatusServiceUnavailable, common.StatusResponse{Status: "unavailable"})
			return
		}
	}
	common.RespondJSON(w, http.StatusOK, common.StatusResponse{Status: "ready"})
}
