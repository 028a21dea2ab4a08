package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Command represents a command that changes state
type Command interface {
	Validate() error
}

// CommandHandler handles a specific command type
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandBus dispatches commands to their handlers
type CommandBus struct {
	handlers map[reflect.Type]CommandHandler
	pipeline *pipeline
	mu       sync.RWMutex
}

// NewCommandBus creates a new command bus. Middlewares wrap every
// registered handler, outermost first.
func NewCommandBus(middlewares ...Middleware) *CommandBus {
	return &CommandBus{
		handlers: make(map[reflect.Type]CommandHandler),
		pipeline: newPipeline(middlewares...),
	}
}

// Register registers a handler for a command type
func (b *CommandBus) Register(cmdType Command, handler CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", t.Name())
	}

	b.handlers[t] = b.pipeline.Execute(handler)
	return nil
}

// Send dispatches a command to its handler
func (b *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("command validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %T", ErrHandlerNotFound, cmd)
	}

	if err := handler.Handle(ctx, cmd); err != nil {
		return fmt.Errorf("command handler failed: %w", err)
	}

	return nil
}

// Middleware defines command middleware
type Middleware func(next CommandHandler) CommandHandler

// CommandHandlerFunc is an adapter to allow functions to be used as handlers
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// LoggingMiddleware logs command execution
func LoggingMiddleware(logger Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			cmdType := reflect.TypeOf(cmd).Name()
			start := time.Now()
			logger.Debug("Executing command", "type", cmdType)

			err := next.Handle(ctx, cmd)
			if err != nil {
				logger.Error("Command failed", "type", cmdType, "error", err)
			} else {
				logger.Info("Command succeeded", "type", cmdType, "duration", time.Since(start))
			}

			return err
		})
	}
}

// MetricsMiddleware counts and times command execution
func MetricsMiddleware(metrics Metrics) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			cmdType := reflect.TypeOf(cmd).Name()

			timer := metrics.StartTimer("command_duration", cmdType)
			defer timer.Stop()

			metrics.Increment("command_count", cmdType)
			err := next.Handle(ctx, cmd)
			if err != nil {
				metrics.Increment("command_errors", cmdType)
				return err
			}
			metrics.Increment("command_success", cmdType)
			return nil
		})
	}
}

// Tracer runs a function inside a named trace span
type Tracer interface {
	TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error
}

// TracingMiddleware wraps each command in a span named after its type
func TracingMiddleware(tracer Tracer) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			return tracer.TraceFunction(ctx, reflect.TypeOf(cmd).Name(), func(ctx context.Context) error {
				return next.Handle(ctx, cmd)
			})
		})
	}
}

// Targeted commands address one scope, usually a mind map id
type Targeted interface {
	TargetMap() string
}

// CacheInvalidator drops every cached entry whose key has a prefix
type CacheInvalidator interface {
	DeletePrefix(ctx context.Context, prefix string)
}

// InvalidationMiddleware drops cached reads of a command's scope once the
// command ran. prefix maps a scope to the key prefix of its cached reads.
func InvalidationMiddleware(cache CacheInvalidator, prefix func(scope string) string) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			err := next.Handle(ctx, cmd)
			if t, ok := cmd.(Targeted); ok {
				cache.DeletePrefix(ctx, prefix(t.TargetMap()))
			}
			return err
		})
	}
}

// Logger interface for logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Metrics interface
type Metrics interface {
	StartTimer(metric, label string) Timer
	Increment(metric, label string)
}

// Timer interface
type Timer interface {
	Stop()
}

// pipeline chains multiple middleware together
type pipeline struct {
	middlewares []Middleware
}

func newPipeline(middlewares ...Middleware) *pipeline {
	return &pipeline{
		middlewares: middlewares,
	}
}

// Execute wraps handler with the pipeline's middleware
func (p *pipeline) Execute(handler CommandHandler) CommandHandler {
	// Apply middleware in reverse order
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		handler = p.middlewares[i](handler)
	}
	return handler
}

// Errors
var (
	ErrHandlerNotFound = errors.New("command handler not found")
)
