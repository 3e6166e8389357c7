// Package cache keeps short-lived authorization attempts between the
// redirect to a platform and its callback.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maheshrc27/crosspost/internal/models"
)

const (
	// AttemptTTL bounds how long a user may sit on the consent screen.
	AttemptTTL = 10 * time.Minute

	keyPrefix = "crosspost:oauth_attempt:"
)

var ErrEmptyState = errors.New("attempt has no state")

// AttemptStore persists pending attempts keyed by their state value.
// Take returns nil, nil for unknown or expired states and removes the attempt
// it returns, so each state can be redeemed once.
type AttemptStore interface {
	Save(ctx context.Context, attempt *models.Attempt) error
	Take(ctx context.Context, state string) (*models.Attempt, error)
}

type RedisAttemptStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ AttemptStore = (*RedisAttemptStore)(nil)

func NewRedisAttemptStore(client redis.UniversalClient, ttl time.Duration) *RedisAttemptStore {
	if ttl <= 0 {
		ttl = AttemptTTL
	}
	return &RedisAttemptStore{client: client, ttl: ttl}
}

func (s *RedisAttemptStore) Save(ctx context.Context, attempt *models.Attempt) error {
	if attempt.State == "" {
		return ErrEmptyState
	}
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+attempt.State, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("persist attempt: %w", err)
	}
	return nil
}

func (s *RedisAttemptStore) Take(ctx context.Context, state string) (*models.Attempt, error) {
	if state == "" {
		return nil, nil
	}
	bytes, err := s.client.GetDel(ctx, keyPrefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}

	var attempt models.Attempt
	if err := json.Unmarshal(bytes, &attempt); err != nil {
		return nil, fmt.Errorf("decode attempt: %w", err)
	}
	return &attempt, nil
}

// MemoryAttemptStore is used by the CLI and tests.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	attempts map[string]models.Attempt
}

var _ AttemptStore = (*MemoryAttemptStore)(nil)

func NewMemoryAttemptStore(ttl time.Duration) *MemoryAttemptStore {
	if ttl <= 0 {
		ttl = AttemptTTL
	}
	return &MemoryAttemptStore{
		ttl:      ttl,
		now:      time.Now,
		attempts: make(map[string]models.Attempt),
	}
}

func (s *MemoryAttemptStore) Save(ctx context.Context, attempt *models.Attempt) error {
	if attempt.State == "" {
		return ErrEmptyState
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evict()
	a := *attempt
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.attempts[a.State] = a
	return nil
}

func (s *MemoryAttemptStore) Take(ctx context.Context, state string) (*models.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evict()
	a, ok := s.attempts[state]
	if !ok {
		return nil, nil
	}
	delete(s.attempts, state)
	return &a, nil
}

func (s *MemoryAttemptStore) evict() {
	cutoff := s.now().Add(-s.ttl)
	for k, a := range s.attempts {
		if a.CreatedAt.Before(cutoff) {
			delete(s.attempts, k)
		}
	}
}
