package infrastructure

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"flyte-gateway/internal/adapter/db/jsonfile"
	"flyte-gateway/internal/adapter/db/sqldb"
	"flyte-gateway/internal/config"
	"flyte-gateway/internal/usecase/user"
)

// NewUserStore builds the account store selected by STORE_DRIVER.
// db must be non-nil for the SQL drivers. The returned closer may be nil.
func NewUserStore(cfg *config.Config, db *gorm.DB, l *zap.Logger) (user.Repository, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverJSON:
		repo, err := jsonfile.NewUserRepoJSON(cfg.Store.JSONPath, l, jsonfile.Options{Watch: cfg.Store.WatchFile})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open user file: %w", err)
		}
		return repo, repo, nil

	case config.StoreDriverSQLite, config.StoreDriverPostgres:
		if db == nil {
			return nil, nil, fmt.Errorf("store driver %q needs a database", cfg.Store.Driver)
		}
		if err := sqldb.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate users table: %w", err)
		}
		return sqldb.NewUserRepoGorm(db, l), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
