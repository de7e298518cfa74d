package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "flyte-gateway/internal/domain/user"
)

const userKeyPrefix = "user:"

// UserCache holds password-free account snapshots keyed by username.
type UserCache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, username string) (*domain.User, error)
	Set(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, usernames ...string) error
}

// RedisUserCache stores accounts as JSON strings with a fixed TTL.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisUserCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisUserCache {
	return &RedisUserCache{client: client, ttl: ttl, log: log.Named("user_cache")}
}

func (c *RedisUserCache) Get(ctx context.Context, username string) (*domain.User, error) {
	raw, err := c.client.Get(ctx, userKeyPrefix+username).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, err
	}

	u := new(domain.User)
	if err := json.Unmarshal(raw, u); err != nil {
		c.log.Warn("unreadable cache entry", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return u, nil
}

// Set caches a copy of user with the password cleared.
func (c *RedisUserCache) Set(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("cache: nil user")
	}

	entry := *user
	entry.Password = ""
	raw, err := json.Marshal(&entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userKeyPrefix+user.Username, raw, c.ttl).Err()
}

func (c *RedisUserCache) Delete(ctx context.Context, usernames ...string) error {
	if len(usernames) == 0 {
		return nil
	}
	keys := make([]string, 0, len(usernames))
	for _, name := range usernames {
		keys = append(keys, userKeyPrefix+name)
	}
	return c.client.Del(ctx, keys...).Err()
}
