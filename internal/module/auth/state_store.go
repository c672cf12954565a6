package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps short-lived OAuth state values between the login
// redirect and the callback.
type StateStore interface {
	Set(ctx context.Context, state, data string) error
	Get(ctx context.Context, state string) (string, error)
	Delete(ctx context.Context, state string) error
}

// MemoryStateStore is an in-memory StateStore for single-instance
// deployments. Multi-instance deployments should use RedisStateStore.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]*stateEntry
	ttl    time.Duration
}

type stateEntry struct {
	data      string
	expiresAt time.Time
}

// NewMemoryStateStore creates a new in-memory state store.
func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	store := &MemoryStateStore{
		states: make(map[string]*stateEntry),
		ttl:    ttl,
	}
	go store.cleanup()
	return store
}

// Set stores a state with data.
func (s *MemoryStateStore) Set(_ context.Context, state, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state] = &stateEntry{
		data:      data,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Get retrieves data for a state.
func (s *MemoryStateStore) Get(_ context.Context, state string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.states[state]
	if !ok {
		return "", ErrInvalidState
	}
	if time.Now().After(entry.expiresAt) {
		return "", ErrInvalidState
	}
	return entry.data, nil
}

// Delete removes a state.
func (s *MemoryStateStore) Delete(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, state)
	return nil
}

func (s *MemoryStateStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for key, entry := range s.states {
			if now.After(entry.expiresAt) {
				delete(s.states, key)
			}
		}
		s.mu.Unlock()
	}
}

// RedisStateStore keeps OAuth state in Redis so the callback can land on
// any instance.
type RedisStateStore struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewRedisStateStore creates a Redis-backed state store.
func NewRedisStateStore(client redis.UniversalClient, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStateStore{redis: client, ttl: ttl}
}

func stateKey(state string) string {
	return fmt.Sprintf("oauth:state:%s", state)
}

// Set stores a state with data.
func (s *RedisStateStore) Set(ctx context.Context, state, data string) error {
	if err := s.redis.Set(ctx, stateKey(state), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	return nil
}

// Get retrieves data for a state.
func (s *RedisStateStore) Get(ctx context.Context, state string) (string, error) {
	data, err := s.redis.Get(ctx, stateKey(state)).Result()
	if err == redis.Nil {
		return "", ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("read oauth state: %w", err)
	}
	return data, nil
}

// Delete removes a state.
func (s *RedisStateStore) Delete(ctx context.Context, state string) error {
	return s.redis.Del(ctx, stateKey(state)).Err()
}
