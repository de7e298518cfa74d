package user

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "flyte-gateway/internal/domain/user"
	apperrors "flyte-gateway/pkg/errors"
	"flyte-gateway/pkg/logger"
	"flyte-gateway/pkg/security"
)

// Messages the front end matches on.
const (
	MsgUserCreated        = "User created successfully"
	MsgUserUpdated        = "User updated successfully"
	MsgInvalidCredentials = "Invalid credentials"
	MsgUserNotFound       = "User not found"
	MsgDuplicateAccount   = "Username or email already exists"
)

// Repository defines the interface for account storage.
// Implementations must make Create and Update atomic with respect to
// the username/email uniqueness check.
type Repository interface {
	// Create inserts u; AlreadyExists when the username or email is taken.
	Create(ctx context.Context, u *domain.User) error
	// GetByUsername returns nil, nil when absent.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByLogin matches the username exactly or the email ignoring case.
	FindByLogin(ctx context.Context, identifier string) ([]domain.User, error)
	// Update runs mutate on the stored record and saves the result.
	// NotFound when originalUsername is absent, AlreadyExists when the
	// mutated record collides with another account.
	Update(ctx context.Context, originalUsername string, mutate func(*domain.User) error) (*domain.User, error)
}

// Options tunes the account usecase.
type Options struct {
	HashPasswords bool
	Clock         security.Clock
}

var _ AccountUsecase = (*Usecase)(nil)

// Usecase implements the account business logic.
type Usecase struct {
	repo     Repository
	tokens   TokenIssuer
	log      *zap.Logger
	validate *validator.Validate
	hash     bool
}

// New creates the account usecase. tokens may be nil when session tokens are disabled.
func New(r Repository, tokens TokenIssuer, log *zap.Logger, opts Options) *Usecase {
	return &Usecase{
		repo:     r,
		tokens:   tokens,
		log:      log,
		validate: newValidator(opts.Clock),
		hash:     opts.HashPasswords,
	}
}

func newValidator(now security.Clock) *validator.Validate {
	v := validator.New()
	// Report wire names so messages match the form fields
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := security.RegisterUserRules(v, now); err != nil {
		panic(fmt.Sprintf("register validation rules: %v", err))
	}
	return v
}

// formatValidationError converts validator.ValidationErrors into a human-readable error.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		case "eqfield":
			messages = append(messages, "passwords do not match")
		case security.TagUsername:
			messages = append(messages, fmt.Sprintf("%s can only contain letters, numbers, underscores, and hyphens", e.Field()))
		case security.TagPersonName:
			messages = append(messages, fmt.Sprintf("%s can only contain letters, spaces, hyphens, and apostrophes", e.Field()))
		case security.TagPhone:
			messages = append(messages, fmt.Sprintf("%s must be a valid phone number", e.Field()))
		case security.TagTwitter:
			messages = append(messages, fmt.Sprintf("%s must be a valid Twitter handle", e.Field()))
		case security.TagMinAge:
			messages = append(messages, fmt.Sprintf("you must be at least %s years old", e.Param()))
		case security.TagDataImage:
			messages = append(messages, fmt.Sprintf("%s must be a PNG, JPEG, GIF or WebP image under 2MB", e.Field()))
		case security.TagPassword:
			messages = append(messages, fmt.Sprintf("%s must be at most %d bytes", e.Field(), security.MaxPasswordBytes))
		case security.TagSafeText:
			messages = append(messages, fmt.Sprintf("%s contains invalid characters", e.Field()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}

	field := ""
	if len(validationErrors) == 1 {
		field = validationErrors[0].Field()
	}
	return apperrors.NewValidationError(field, strings.Join(messages, ", "))
}

// Signup validates the form and stores a new account.
func (uc *Usecase) Signup(ctx context.Context, in SignupRequest) (*SignupResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("signing up user", zap.String("username", in.Username), zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	password, err := uc.storedPassword(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, apperrors.NewInternalError("Internal server error", err)
	}

	u := &domain.User{
		Username:       in.Username,
		Email:          in.Email,
		Title:          in.Title,
		Gender:         in.Gender,
		DOB:            in.BornOn,
		Phone:          in.PhoneNumber,
		Password:       password,
		Twitter:        in.TwitterHandle,
		ProfilePicture: in.ProfilePicture,
	}
	u.SetNames(in.GivenName, in.FamilyName)

	if err := uc.repo.Create(ctx, u); err != nil {
		if apperrors.IsAlreadyExists(err) {
			log.Warn("username or email already exists", zap.String("username", in.Username))
			return nil, apperrors.NewAlreadyExistsError("user", MsgDuplicateAccount)
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, apperrors.NewInternalError("Internal server error", err)
	}

	return &SignupResponse{Message: MsgUserCreated}, nil
}

// Login checks the credentials against every account the identifier names.
// Plaintext passwords left by older records are upgraded on success.
func (uc *Usecase) Login(ctx context.Context, in LoginRequest) (*LoginResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	candidates, err := uc.repo.FindByLogin(ctx, in.Username)
	if err != nil {
		log.Error("failed to look up user", zap.Error(err))
		return nil, apperrors.NewInternalError("Internal server error", err)
	}

	var (
		match  *domain.User
		legacy bool
	)
	for i := range candidates {
		if ok, plain := security.CheckPassword(candidates[i].Password, in.Password); ok {
			match, legacy = &candidates[i], plain
			break
		}
	}
	if match == nil {
		log.Warn("invalid credentials", zap.String("identifier", in.Username))
		return nil, apperrors.NewUnauthorizedError(MsgInvalidCredentials)
	}

	if legacy && uc.hash {
		uc.upgradePassword(ctx, log, match, in.Password)
	}

	resp := &LoginResponse{User: match.Profile()}
	if uc.tokens != nil && uc.tokens.Enabled() {
		token, err := uc.tokens.Issue(match.Username, match.Email)
		if err != nil {
			log.Error("failed to issue token", zap.String("username", match.Username), zap.Error(err))
			return nil, apperrors.NewInternalError("Internal server error", err)
		}
		resp.Token = token
	}

	log.Info("user logged in", zap.String("username", match.Username))
	return resp, nil
}

// upgradePassword replaces a plaintext password with its hash.
// Failure is logged only; the login itself already succeeded.
func (uc *Usecase) upgradePassword(ctx context.Context, log *zap.Logger, u *domain.User, plain string) {
	hashed, err := security.HashPassword(plain)
	if err != nil {
		log.Warn("failed to hash legacy password", zap.String("username", u.Username), zap.Error(err))
		return
	}

	stored := u.Password
	_, err = uc.repo.Update(ctx, u.Username, func(cur *domain.User) error {
		// Skip if the password changed since it was read
		if cur.Password == stored {
			cur.Password = hashed
		}
		return nil
	})
	if err != nil {
		log.Warn("failed to upgrade legacy password", zap.String("username", u.Username), zap.Error(err))
		return
	}
	log.Info("upgraded legacy password", zap.String("username", u.Username))
}

// UpdateUser applies the edit form to the account named by OriginalUsername.
func (uc *Usecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("updating user", zap.String("original_username", in.OriginalUsername), zap.String("username", in.Username))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	if !uc.owns(in.Actor, in.OriginalUsername) {
		log.Warn("token subject does not own account", zap.String("actor", in.Actor))
		return nil, apperrors.NewUnauthorizedError("Not allowed to edit this account")
	}

	// Hash outside the store lock
	var password string
	if in.Password != "" {
		var err error
		if password, err = uc.storedPassword(in.Password); err != nil {
			log.Error("failed to hash password", zap.Error(err))
			return nil, apperrors.NewInternalError("Internal server error", err)
		}
	}

	updated, err := uc.repo.Update(ctx, in.OriginalUsername, func(u *domain.User) error {
		applyUpdate(u, in, password)
		return nil
	})
	if err != nil {
		switch {
		case apperrors.IsNotFound(err):
			log.Warn("user not found", zap.String("original_username", in.OriginalUsername))
			return nil, apperrors.NewNotFoundError("user", MsgUserNotFound)
		case apperrors.IsAlreadyExists(err):
			log.Warn("username or email already exists", zap.String("username", in.Username))
			return nil, apperrors.NewAlreadyExistsError("user", MsgDuplicateAccount)
		default:
			log.Error("failed to update user", zap.Error(err))
			return nil, apperrors.NewInternalError("Internal server error", err)
		}
	}

	return &UpdateUserResponse{
		Message: MsgUserUpdated,
		User: UpdatedUser{
			Username:  updated.Username,
			Email:     updated.Email,
			FirstName: updated.FirstName,
			LastName:  updated.LastName,
			Title:     updated.Title,
			Gender:    updated.Gender,
			DOB:       updated.DOB,
			Phone:     updated.Phone,
		},
	}, nil
}

func applyUpdate(u *domain.User, in UpdateUserRequest, password string) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&u.Username, in.Username)
	set(&u.Email, in.Email)
	set(&u.Title, in.Title)
	set(&u.Gender, in.Gender)
	set(&u.DOB, in.BornOn)
	set(&u.Phone, in.PhoneNumber)
	set(&u.Password, password)
	if in.TwitterHandle != nil {
		u.Twitter = *in.TwitterHandle
	}
	if in.ProfilePicture != nil {
		u.ProfilePicture = *in.ProfilePicture
	}

	given, family := u.FirstName, u.LastName
	set(&given, in.GivenName)
	set(&family, in.FamilyName)
	u.SetNames(given, family)
}

// GetProfile returns the password-free view of one account.
func (uc *Usecase) GetProfile(ctx context.Context, in GetProfileRequest) (*domain.Profile, error) {
	if err := uc.validate.Struct(in); err != nil {
		return nil, formatValidationError(err)
	}
	if !uc.owns(in.Actor, in.Username) {
		logger.WithContext(ctx, uc.log).Warn("token subject does not own profile", zap.String("actor", in.Actor))
		return nil, apperrors.NewUnauthorizedError("Not allowed to view this account")
	}

	u, err := uc.repo.GetByUsername(ctx, in.Username)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to get user", zap.String("username", in.Username), zap.Error(err))
		return nil, apperrors.NewInternalError("Internal server error", err)
	}
	if u == nil {
		return nil, apperrors.NewNotFoundError("user", MsgUserNotFound)
	}

	p := u.Profile()
	return &p, nil
}

// owns reports whether actor may touch the account. Without session
// tokens there is no identity to check against.
func (uc *Usecase) owns(actor, username string) bool {
	if uc.tokens == nil || !uc.tokens.Enabled() {
		return true
	}
	return actor != "" && actor == username
}

func (uc *Usecase) storedPassword(plain string) (string, error) {
	if !uc.hash {
		return plain, nil
	}
	return security.HashPassword(plain)
}
