package github

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	repo *Repo
	err  error
}

func (s *stubClient) GetRepository(ctx context.Context, fullName, token string) (*Repo, error) {
	return s.repo, s.err
}

func (s *stubClient) ListBranches(ctx context.Context, fullName, token string) ([]Branch, error) {
	return nil, s.err
}

func (s *stubClient) GetLanguages(ctx context.Context, fullName, token string) (map[string]int64, error) {
	return nil, s.err
}

func (s *stubClient) ListUserRepositories(ctx context.Context, token string) ([]Repo, error) {
	return nil, s.err
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	stub := &stubClient{repo: &Repo{ID: 1, Name: "demo"}}
	client := NewBreakerClient(stub, nil)

	repo, err := client.GetRepository(context.Background(), "a/demo", "token")
	require.NoError(t, err)
	assert.Equal(t, int64(1), repo.ID)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubClient{err: ErrUnavailable}
	client := NewBreakerClient(stub, &BreakerConfig{
		FailureThreshold: 3,
		Timeout:          time.Minute,
		MaxHalfOpen:      1,
	})

	for i := 0; i < 3; i++ {
		_, err := client.GetRepository(context.Background(), "a/demo", "token")
		assert.ErrorIs(t, err, ErrUnavailable)
	}

	// Circuit is now open; the stub is no longer reached but callers still
	// observe the unavailable error.
	stub.err = nil
	stub.repo = &Repo{ID: 1}
	_, err := client.GetRepository(context.Background(), "a/demo", "token")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBreakerIgnoresAuthRejections(t *testing.T) {
	stub := &stubClient{err: ErrAuthRejected}
	client := NewBreakerClient(stub, &BreakerConfig{
		FailureThreshold: 2,
		Timeout:          time.Minute,
		MaxHalfOpen:      1,
	})

	for i := 0; i < 10; i++ {
		_, err := client.GetRepository(context.Background(), "a/demo", "token")
		assert.ErrorIs(t, err, ErrAuthRejected)
	}

	// Auth rejections never trip the breaker.
	stub.err = nil
	stub.repo = &Repo{ID: 1}
	repo, err := client.GetRepository(context.Background(), "a/demo", "token")
	require.NoError(t, err)
	assert.Equal(t, int64(1), repo.ID)
}
