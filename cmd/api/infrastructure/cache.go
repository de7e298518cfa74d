package infrastructure

import (
	"go.uber.org/zap"

	"flyte-gateway/internal/config"
	redisclient "flyte-gateway/pkg/redis"
)

// NewRedisClient connects to Redis when REDIS_ENABLED is set and
// returns nil, nil otherwise.
func NewRedisClient(cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	if !cfg.Redis.Enabled {
		l.Info("redis disabled, using in-process rate limiting and payment status")
		return nil, nil
	}

	r := cfg.Redis
	return redisclient.NewClient(redisclient.Config{
		Host:        r.Host,
		Port:        r.Port,
		Password:    r.Password,
		DB:          r.DB,
		MaxRetries:  r.MaxRetries,
		PoolSize:    r.PoolSize,
		MinIdleConn: r.MinIdleConn,
	}, l)
}
