package infrastructure

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"flyte-gateway/internal/config"
	"flyte-gateway/pkg/logger"
)

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

func poolFor(cfg *config.Config) poolSettings {
	p := poolSettings{
		maxOpen:     cfg.DB.MaxOpenConns,
		maxIdle:     cfg.DB.MaxIdleConns,
		maxLifetime: time.Duration(cfg.DB.ConnMaxLifetime) * time.Second,
		maxIdleTime: time.Duration(cfg.DB.ConnMaxIdleTime) * time.Second,
	}
	if cfg.Store.Driver == config.StoreDriverSQLite {
		// sqlite allows a single writer
		p.maxOpen = 1
	}
	return p
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		return sqlite.Open(cfg.Store.SQLitePath), nil
	case config.StoreDriverPostgres:
		return pgdriver.Open(cfg.DB.DSN()), nil
	}
	return nil, fmt.Errorf("store driver %q has no database", cfg.Store.Driver)
}

// NewDatabase opens the SQL account store named by STORE_DRIVER.
func NewDatabase(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLoggerWithConfig(l, cfg.Logger.SlowQuerySeconds, cfg.Logger.Level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s connection pool: %w", cfg.Store.Driver, err)
	}

	pool := poolFor(cfg)
	sqlDB.SetMaxOpenConns(pool.maxOpen)
	sqlDB.SetMaxIdleConns(pool.maxIdle)
	sqlDB.SetConnMaxLifetime(pool.maxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.maxIdleTime)

	l.Info("account database open",
		zap.String("driver", cfg.Store.Driver),
		zap.Int("max_open", pool.maxOpen),
		zap.Int("max_idle", pool.maxIdle),
		zap.Duration("max_lifetime", pool.maxLifetime),
	)
	return db, nil
}

// CloseDatabase releases the pool behind db. A nil db is a no-op.
func CloseDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
