package travel

import (
	"context"

	"flyte-gateway/internal/adapter/backend"
	"flyte-gateway/internal/domain/booking"
	"flyte-gateway/internal/domain/payment"
	domain "flyte-gateway/internal/domain/user"
)

// TravelUsecase defines the chat, booking and waitlist operations.
type TravelUsecase interface {
	Chat(ctx context.Context, in ChatRequest) (*ChatResponse, error)
	SwitchMode(ctx context.Context, in ModeRequest) (*ModeResponse, error)
	VerifyAccessCode(ctx context.Context, in AccessCodeRequest) (*backend.AccessCodeResult, error)
	JoinWaitlist(ctx context.Context, in WaitlistRequest) (*backend.WaitlistResult, error)
	UserBookings(ctx context.Context, in BookingsRequest) (*BookingsResponse, error)
	CheckPayment(ctx context.Context, in PaymentRequest) (*payment.Result, error)
}

// Backend is the travel backend as the usecase sees it.
type Backend interface {
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
	CheckPayment(ctx context.Context, chargeID, sessionID string) (*backend.PaymentStatus, error)
	SetDuffelMode(ctx context.Context, mode string) error
	UserBookings(ctx context.Context, username string) ([]booking.Record, error)
	VerifyAccessCode(ctx context.Context, code string) (*backend.AccessCodeResult, error)
	JoinWaitlist(ctx context.Context, email string) (*backend.WaitlistResult, error)
}

// Renderer turns assistant markdown into HTML.
type Renderer interface {
	Render(source string) (string, error)
}

// PaymentWatcher follows a charge in the background.
type PaymentWatcher interface {
	Watch(chargeID, sessionID string) bool
}

// ProfileLookup finds stored accounts for the booking passenger fallback.
type ProfileLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}
