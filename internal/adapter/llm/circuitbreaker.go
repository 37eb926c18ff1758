package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"wildrose/internal/domain"
	"wildrose/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 3
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerClient wraps a ModelClient with circuit breaker protection.
// Once the service fails repeatedly the circuit opens and consultations fail
// fast with ErrService instead of waiting out the request timeout.
type CircuitBreakerClient struct {
	inner   domain.ModelClient
	breaker *gobreaker.CircuitBreaker[*domain.Completion]
	logger  *slog.Logger
}

// NewCircuitBreakerClient wraps inner with a circuit breaker.
// Zero-valued settings fall back to defaults.
func NewCircuitBreakerClient(inner domain.ModelClient, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[*domain.Completion](gobreaker.Settings{
		Name:        "llm:" + inner.Name(),
		MaxRequests: 1, // one probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Host shutdown is not a service failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrCanceled)
		},
	})

	return &CircuitBreakerClient{inner: inner, breaker: cb, logger: logger}
}

// Complete implements domain.ModelClient.
func (c *CircuitBreakerClient) Complete(ctx context.Context, transcript []domain.Message, catalog []domain.ToolSchema, timeout time.Duration) (*domain.Completion, error) {
	completion, err := c.breaker.Execute(func() (*domain.Completion, error) {
		return c.inner.Complete(ctx, transcript, catalog, timeout)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: model %q circuit open: %w", domain.ErrService, c.inner.Name(), err)
		}
		return nil, err
	}
	return completion, nil
}

// Name implements domain.ModelClient.
func (c *CircuitBreakerClient) Name() string { return c.inner.Name() }

// State returns the current circuit breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

var _ domain.ModelClient = (*CircuitBreakerClient)(nil)
