package user

import (
	"context"

	domain "flyte-gateway/internal/domain/user"
)

// AccountUsecase defines the account operations exposed to the transport layer.
type AccountUsecase interface {
	Signup(ctx context.Context, in SignupRequest) (*SignupResponse, error)
	Login(ctx context.Context, in LoginRequest) (*LoginResponse, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error)
	GetProfile(ctx context.Context, in GetProfileRequest) (*domain.Profile, error)
}

// TokenIssuer mints session tokens after a successful login.
type TokenIssuer interface {
	Enabled() bool
	Issue(username, email string) (string, error)
}
