package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zhaizeyu/smart-mind/application/ports"
)

var _ ports.Answerer = (*Dispatcher)(nil)

// Settings selects and configures the answering provider
type Settings struct {
	Provider string            `yaml:"provider"`
	BaseURL  string            `yaml:"base_url"`
	APIKey   string            `yaml:"api_key"`
	Model    string            `yaml:"model"`
	Headers  map[string]string `yaml:"headers"`
	Timeout  time.Duration     `yaml:"timeout"`

	// RatePerSecond bounds provider calls. Zero means unlimited.
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// DefaultSettings answers in echo mode
func DefaultSettings() Settings {
	return Settings{
		Provider: ProviderEcho,
		Model:    "gpt-4o-mini",
		Timeout:  30 * time.Second,
	}
}

// EchoAnswer is the local answer given when no provider is usable. A
// non-nil cause is appended.
func EchoAnswer(question string, cause error) string {
	answer := "(本地回声模式) 您的问题是：" + question + "\n" +
		"编辑 backend/config.toml 并设置 provider/base_url 以连接真实模型。"
	if cause != nil {
		answer += "\n远程调用失败：" + cause.Error()
	}
	return answer
}

// Dispatcher answers questions with the configured provider and never
// fails: any provider error degrades to the echo answer.
type Dispatcher struct {
	provider Provider
	setupErr error
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	history  *History
	logger   *zap.Logger
}

// NewDispatcher builds the provider named in settings. Unknown providers and
// http without a base URL answer in echo mode. history may be nil.
func NewDispatcher(s Settings, history *History, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultSettings().Timeout
	}
	if s.Model == "" {
		s.Model = DefaultSettings().Model
	}

	d := &Dispatcher{history: history, logger: logger.Named("ai")}

	switch s.Provider {
	case ProviderHTTP:
		if s.BaseURL != "" {
			d.provider = newHTTPProvider(s)
		}
	case ProviderOpenAI, ProviderDocker:
		d.provider, d.setupErr = newChatProvider(s.Provider, s)
	}
	if d.provider == nil && d.setupErr == nil && s.Provider != ProviderEcho {
		d.logger.Warn("Unusable AI provider, answering in echo mode", zap.String("provider", s.Provider))
	}

	if d.provider != nil {
		d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ai-" + d.provider.Name(),
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				d.logger.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}

	d.limiter = rate.NewLimiter(rate.Inf, 0)
	if s.RatePerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(s.RatePerSecond), 1)
	}
	return d
}

// Provider returns the active provider name
func (d *Dispatcher) Provider() string {
	if d.provider == nil {
		return ProviderEcho
	}
	return d.provider.Name()
}

// Answer implements ports.Answerer
func (d *Dispatcher) Answer(ctx context.Context, question string) (string, error) {
	answer, err := d.dispatch(ctx, question)
	if err != nil {
		d.logger.Error("Provider failed, falling back to echo",
			zap.String("provider", d.Provider()), zap.Error(err))
		answer = EchoAnswer(question, err)
	}

	if d.history != nil {
		if herr := d.history.Append(question, answer); herr != nil {
			d.logger.Warn("Failed to record history", zap.Error(herr))
		}
	}
	return answer, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, question string) (string, error) {
	if d.setupErr != nil {
		return "", d.setupErr
	}
	if d.provider == nil {
		return EchoAnswer(question, nil), nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	d.logger.Info("Dispatching question", zap.String("provider", d.provider.Name()))
	out, err := d.breaker.Execute(func() (interface{}, error) {
		return d.provider.Answer(ctx, question)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
