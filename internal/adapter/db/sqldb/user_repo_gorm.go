package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "flyte-gateway/internal/domain/user"
	apperrors "flyte-gateway/pkg/errors"
	"flyte-gateway/pkg/security"
)

// UserRepoGorm implements the account Repository on any GORM dialect (sqlite, postgres).
type UserRepoGorm struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoGorm creates a new instance of UserRepoGorm.
func NewUserRepoGorm(db *gorm.DB, log *zap.Logger) *UserRepoGorm {
	return &UserRepoGorm{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Username       string `gorm:"size:30;not null;uniqueIndex"`
	Email          string `gorm:"size:100;not null;uniqueIndex"`
	EmailFold      string `gorm:"size:100;not null;index"` // lowercased email for login lookups
	FirstName      string `gorm:"size:50"`
	LastName       string `gorm:"size:50"`
	GivenName      string `gorm:"size:50"`
	FamilyName     string `gorm:"size:50"`
	Title          string `gorm:"size:20"`
	Gender         string `gorm:"size:20"`
	DOB            string `gorm:"size:10"`
	Phone          string `gorm:"size:16"`
	Password       string `gorm:"size:100"`
	Twitter        string `gorm:"size:16"`
	ProfilePicture string `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// AutoMigrate creates or updates the users table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{})
}

func toSchema(u *domain.User) UserSchema {
	return UserSchema{
		Username:       u.Username,
		Email:          u.Email,
		EmailFold:      security.NormalizeEmail(u.Email),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		GivenName:      u.GivenName,
		FamilyName:     u.FamilyName,
		Title:          u.Title,
		Gender:         u.Gender,
		DOB:            u.DOB,
		Phone:          u.Phone,
		Password:       u.Password,
		Twitter:        u.Twitter,
		ProfilePicture: u.ProfilePicture,
	}
}

func (m *UserSchema) toDomain() *domain.User {
	return &domain.User{
		Username:       m.Username,
		Email:          m.Email,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		GivenName:      m.GivenName,
		FamilyName:     m.FamilyName,
		Title:          m.Title,
		Gender:         m.Gender,
		DOB:            m.DOB,
		Phone:          m.Phone,
		Password:       m.Password,
		Twitter:        m.Twitter,
		ProfilePicture: m.ProfilePicture,
	}
}

func duplicateErr() error {
	return apperrors.NewAlreadyExistsError("user", "username or email already exists")
}

// Create inserts a new user; the unique indexes back up the explicit check.
func (r *UserRepoGorm) Create(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	model := toSchema(u)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserSchema{}).
			Where("username = ? OR email = ?", u.Username, u.Email).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return duplicateErr()
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		if apperrors.IsAlreadyExists(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate user", zap.String("username", u.Username))
			return duplicateErr()
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("username", u.Username))
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID), zap.String("username", u.Username))
	return nil
}

// GetByUsername retrieves a user by username, or nil when absent.
func (r *UserRepoGorm) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String("username", username))
			return nil, nil
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return model.toDomain(), nil
}

// FindByLogin matches the username exactly or the email case-insensitively.
func (r *UserRepoGorm) FindByLogin(ctx context.Context, identifier string) ([]domain.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).
		Where("username = ? OR email_fold = ?", identifier, security.NormalizeEmail(identifier)).
		Order("id").
		Find(&models).Error; err != nil {
		r.log.Error("failed to find user by login", zap.Error(err))
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	users := make([]domain.User, len(models))
	for i := range models {
		users[i] = *models[i].toDomain()
	}
	return users, nil
}

// Update applies mutate to the stored row inside a transaction.
func (r *UserRepoGorm) Update(ctx context.Context, originalUsername string, mutate func(*domain.User) error) (*domain.User, error) {
	var updated *domain.User

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("username = ?", originalUsername)
		// SQLite serialises writers already and has no row locks
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var model UserSchema
		if err := q.First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFoundError("user", "user not found")
			}
			return err
		}

		u := model.toDomain()
		if err := mutate(u); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&UserSchema{}).
			Where("(username = ? OR email = ?) AND id <> ?", u.Username, u.Email, model.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return duplicateErr()
		}

		next := toSchema(u)
		next.ID = model.ID
		next.CreatedAt = model.CreatedAt
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		switch {
		case apperrors.IsNotFound(err):
			r.log.Warn("user not found", zap.String("username", originalUsername))
			return nil, err
		case apperrors.IsAlreadyExists(err), errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, duplicateErr()
		}
		r.log.Error("failed to update user in db", zap.Error(err), zap.String("username", originalUsername))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	r.log.Info("user updated in db", zap.String("original_username", originalUsername), zap.String("username", updated.Username))
	return updated, nil
}
