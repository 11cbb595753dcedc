package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"pickup-kitchen/apperr"

	"github.com/redis/go-redis/v9"
)

// ResetTicket is what a password reset request leaves behind. Only a hash
// of the emailed token is kept.
type ResetTicket struct {
	UserID    uint   `json:"user_id"`
	TokenHash string `json:"token_hash"`
}

// ResetStore keeps tickets keyed by reset-request id. Take is one-shot.
type ResetStore interface {
	Put(ctx context.Context, requestID string, t ResetTicket, ttl time.Duration) error
	Take(ctx context.Context, requestID string) (*ResetTicket, error)
}

var (
	_ ResetStore = (*RedisResetStore)(nil)
	_ ResetStore = (*MemoryResetStore)(nil)
)

type RedisResetStore struct {
	client *redis.Client
}

func NewRedisResetStore(client *redis.Client) *RedisResetStore {
	return &RedisResetStore{client: client}
}

func resetKey(requestID string) string {
	return "pwreset:" + requestID
}

func (s *RedisResetStore) Put(ctx context.Context, requestID string, t ResetTicket, ttl time.Duration) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode reset ticket: %w", err)
	}
	if err := s.client.Set(ctx, resetKey(requestID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: store reset ticket: %w", apperr.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisResetStore) Take(ctx context.Context, requestID string) (*ResetTicket, error) {
	raw, err := s.client.GetDel(ctx, resetKey(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reset request %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load reset ticket: %w", apperr.ErrStorageUnavailable, err)
	}
	var t ResetTicket
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("%w: decode reset ticket: %w", apperr.ErrStorageUnavailable, err)
	}
	return &t, nil
}

type memoryTicket struct {
	ticket    ResetTicket
	expiresAt time.Time
}

// MemoryResetStore is used when no redis is configured.
type MemoryResetStore struct {
	mu      sync.Mutex
	tickets map[string]memoryTicket
	now     func() time.Time
}

func NewMemoryResetStore() *MemoryResetStore {
	return &MemoryResetStore{tickets: make(map[string]memoryTicket), now: time.Now}
}

func (s *MemoryResetStore) Put(_ context.Context, requestID string, t ResetTicket, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[requestID] = memoryTicket{ticket: t, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryResetStore) Take(_ context.Context, requestID string) (*ResetTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mt, ok := s.tickets[requestID]
	delete(s.tickets, requestID)
	if !ok || !s.now().Before(mt.expiresAt) {
		return nil, fmt.Errorf("reset request %w", apperr.ErrNotFound)
	}
	return &mt.ticket, nil
}
