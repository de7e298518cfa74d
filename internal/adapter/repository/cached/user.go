package cached

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"flyte-gateway/internal/adapter/cache"
	domain "flyte-gateway/internal/domain/user"
	"flyte-gateway/internal/usecase/user"
)

// CachedUserRepository puts a read-through cache in front of profile
// lookups. Signup, login and updates go straight to the store since they
// need the password hash.
type CachedUserRepository struct {
	user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	flight singleflight.Group
}

func NewCachedUserRepository(store user.Repository, c cache.UserCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{Repository: store, cache: c, log: log}
}

// GetByUsername serves from the cache when it can and collapses concurrent
// misses for the same username into one store read. Returned users carry
// no password.
func (r *CachedUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if u := r.cached(ctx, username); u != nil {
		return u, nil
	}

	// detached: the result is shared by every waiting caller
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := r.flight.Do(username, func() (any, error) {
		if u := r.cached(flightCtx, username); u != nil {
			return u, nil
		}
		u, err := r.Repository.GetByUsername(flightCtx, username)
		if err != nil || u == nil {
			return nil, err
		}
		if r.cache != nil {
			if err := r.cache.Set(flightCtx, u); err != nil {
				r.log.Warn("cache fill failed", zap.String("username", username), zap.Error(err))
			}
		}
		clean := *u
		clean.Password = ""
		return &clean, nil
	})
	if err != nil {
		return nil, err
	}
	shared, _ := v.(*domain.User)
	if shared == nil {
		return nil, nil
	}
	out := *shared
	return &out, nil
}

func (r *CachedUserRepository) cached(ctx context.Context, username string) *domain.User {
	if r.cache == nil {
		return nil
	}
	u, err := r.cache.Get(ctx, username)
	if err != nil {
		r.log.Warn("cache read failed, using store", zap.String("username", username), zap.Error(err))
		return nil
	}
	return u
}

// Update writes through to the store and drops the cache entries for both
// the old and the new username.
func (r *CachedUserRepository) Update(ctx context.Context, originalUsername string, mutate func(*domain.User) error) (*domain.User, error) {
	updated, err := r.Repository.Update(ctx, originalUsername, mutate)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Delete(ctx, originalUsername, updated.Username); err != nil {
			r.log.Warn("cache invalidation failed", zap.String("username", originalUsername), zap.Error(err))
		}
	}
	return updated, nil
}
