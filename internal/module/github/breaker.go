package github

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig contains circuit breaker configuration.
type BreakerConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
	MaxHalfOpen      uint32
}

// DefaultBreakerConfig returns the default circuit breaker configuration.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
		MaxHalfOpen:      1,
	}
}

// BreakerClient wraps a Client with a circuit breaker. A tripped breaker
// short-circuits remote calls and reports them as unavailable. It never
// retries, so the underlying call contract is unchanged.
type BreakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBreakerClient creates a circuit-breaking wrapper around client.
func NewBreakerClient(client Client, cfg *BreakerConfig) *BreakerClient {
	if cfg == nil {
		cfg = DefaultBreakerConfig()
	}

	settings := gobreaker.Settings{
		Name:        "github-api",
		MaxRequests: cfg.MaxHalfOpen,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Auth rejections and caller cancellations are remote answers, not
		// availability signals; they must not trip the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if errors.Is(err, ErrAuthRejected) {
				return true
			}
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	}

	return &BreakerClient{
		inner:   client,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *BreakerClient) GetRepository(ctx context.Context, fullName, token string) (*Repo, error) {
	result, err := b.execute(func() (any, error) {
		return b.inner.GetRepository(ctx, fullName, token)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Repo), nil
}

func (b *BreakerClient) ListBranches(ctx context.Context, fullName, token string) ([]Branch, error) {
	result, err := b.execute(func() (any, error) {
		return b.inner.ListBranches(ctx, fullName, token)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Branch), nil
}

func (b *BreakerClient) GetLanguages(ctx context.Context, fullName, token string) (map[string]int64, error) {
	result, err := b.execute(func() (any, error) {
		return b.inner.GetLanguages(ctx, fullName, token)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]int64), nil
}

func (b *BreakerClient) ListUserRepositories(ctx context.Context, token string) ([]Repo, error) {
	result, err := b.execute(func() (any, error) {
		return b.inner.ListUserRepositories(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Repo), nil
}

func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := b.breaker.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return nil, err
	}
	return result, nil
}
