package di

import (
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"flyte-gateway/cmd/api/infrastructure"
	"flyte-gateway/internal/adapter/backend"
	"flyte-gateway/internal/adapter/cache"
	ginhandler "flyte-gateway/internal/adapter/gin/handler"
	"flyte-gateway/internal/adapter/gin/middleware"
	"flyte-gateway/internal/adapter/markdown"
	"flyte-gateway/internal/adapter/repository/cached"
	"flyte-gateway/internal/config"
	"flyte-gateway/internal/usecase/payment"
	"flyte-gateway/internal/usecase/travel"
	"flyte-gateway/internal/usecase/user"
	"flyte-gateway/pkg/auth"
	redisclient "flyte-gateway/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	DB             *gorm.DB
	RedisClient    *redisclient.Client
	UserStore      io.Closer
	Tokens         *auth.TokenService
	AccountUC      user.AccountUsecase
	TravelUC       travel.TravelUsecase
	PaymentWatcher *payment.Watcher
	RateLimiter    *middleware.RateLimiter
	AccountHandler *ginhandler.AccountHandler
	TravelHandler  *ginhandler.TravelHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(cfg *config.Config, l *zap.Logger) (_ *Container, err error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}
	// Release whatever was opened when a later step fails
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	// Initialize database for the SQL stores
	if cfg.Store.Driver != config.StoreDriverJSON {
		c.DB, err = infrastructure.NewDatabase(cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	// Initialize Redis client (nil when disabled)
	c.RedisClient, err = infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	var rdb *redis.Client
	if c.RedisClient != nil {
		rdb = c.RedisClient.Client
	}

	// Initialize repository
	store, closer, err := infrastructure.NewUserStore(cfg, c.DB, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user store: %w", err)
	}
	c.UserStore = closer

	repo := store
	if rdb != nil {
		userCache := cache.NewRedisUserCache(rdb, time.Duration(cfg.Redis.CacheTTL)*time.Second, l)
		repo = cached.NewCachedUserRepository(store, userCache, l)
	}

	// Initialize session tokens (disabled without a secret)
	c.Tokens = auth.NewTokenService(
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
		cfg.Logger.ServiceName,
	)
	if !c.Tokens.Enabled() {
		l.Warn("AUTH_JWT_SECRET not set, session tokens disabled")
	}

	// Initialize use cases
	c.AccountUC = user.New(repo, c.Tokens, l, user.Options{HashPasswords: cfg.Auth.HashPasswords})

	client, err := backend.NewClient(backend.Config{
		BaseURL:        cfg.Backend.URL,
		ChatTimeout:    time.Duration(cfg.Backend.ChatTimeoutSeconds) * time.Second,
		RequestTimeout: time.Duration(cfg.Backend.RequestTimeoutSeconds) * time.Second,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend client: %w", err)
	}

	statusTTL := time.Duration(cfg.Payment.StatusTTLSeconds) * time.Second
	var statuses payment.StatusStore
	if rdb != nil {
		statuses = cache.NewRedisPaymentStatusStore(rdb, statusTTL, l)
	} else {
		statuses = cache.NewMemoryPaymentStatusStore(statusTTL)
	}

	c.PaymentWatcher = payment.NewWatcher(client, statuses, payment.Config{
		Interval: time.Duration(cfg.Payment.PollIntervalSeconds) * time.Second,
		MaxWatch: time.Duration(cfg.Payment.MaxWatchMinutes) * time.Minute,
	}, l)

	c.TravelUC = travel.New(client, markdown.NewRenderer(), c.PaymentWatcher, repo, l)

	// Initialize rate limiter
	c.RateLimiter = middleware.NewRateLimiter(
		rdb,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
			Enabled:           cfg.RateLimit.Enabled,
		},
		l,
	)

	// Initialize Gin handlers
	c.AccountHandler = ginhandler.NewAccountHandler(c.AccountUC, l)
	c.TravelHandler = ginhandler.NewTravelHandler(c.TravelUC, c.PaymentWatcher, l)

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Stop payment polls before their stores go away
	if c.PaymentWatcher != nil {
		c.PaymentWatcher.Close()
	}

	if c.UserStore != nil {
		if err := c.UserStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close user store: %w", err))
		}
	}

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
