package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"flyte-gateway/internal/domain/payment"
)

// RedisPaymentStatusStore keeps the latest observed status of each charge in Redis,
// so any gateway instance can answer a status query.
type RedisPaymentStatusStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisPaymentStatusStore creates a Redis-backed payment status store.
func NewRedisPaymentStatusStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisPaymentStatusStore {
	return &RedisPaymentStatusStore{client: client, ttl: ttl, log: log}
}

func (s *RedisPaymentStatusStore) key(chargeID string) string {
	return fmt.Sprintf("payment:%s", chargeID)
}

// Save records r as the latest status of its charge.
func (s *RedisPaymentStatusStore) Save(ctx context.Context, r payment.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(r.ChargeID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save payment status", zap.String("charge_id", r.ChargeID), zap.Error(err))
		return err
	}
	return nil
}

// Get returns the latest status of chargeID, or nil when none was recorded.
func (s *RedisPaymentStatusStore) Get(ctx context.Context, chargeID string) (*payment.Result, error) {
	data, err := s.client.Get(ctx, s.key(chargeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("failed to get payment status", zap.String("charge_id", chargeID), zap.Error(err))
		return nil, err
	}

	var r payment.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

type memoryEntry struct {
	result  payment.Result
	expires time.Time
}

// MemoryPaymentStatusStore is the single-instance fallback used when Redis is disabled.
type MemoryPaymentStatusStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryPaymentStatusStore creates an in-process status store. ttl <= 0 keeps entries forever.
func NewMemoryPaymentStatusStore(ttl time.Duration) *MemoryPaymentStatusStore {
	return &MemoryPaymentStatusStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Save records r and drops expired entries.
func (s *MemoryPaymentStatusStore) Save(_ context.Context, r payment.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(s.entries, id)
		}
	}

	var expires time.Time
	if s.ttl > 0 {
		expires = now.Add(s.ttl)
	}
	s.entries[r.ChargeID] = memoryEntry{result: r, expires: expires}
	return nil
}

// Get returns the latest status of chargeID, or nil.
func (s *MemoryPaymentStatusStore) Get(_ context.Context, chargeID string) (*payment.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[chargeID]
	if !ok || (!e.expires.IsZero() && s.now().After(e.expires)) {
		return nil, nil
	}
	r := e.result
	return &r, nil
}
