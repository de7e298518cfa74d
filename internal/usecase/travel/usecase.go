package travel

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"flyte-gateway/internal/adapter/backend"
	"flyte-gateway/internal/domain/booking"
	"flyte-gateway/internal/domain/payment"
	domain "flyte-gateway/internal/domain/user"
	apperrors "flyte-gateway/pkg/errors"
	"flyte-gateway/pkg/logger"
)

const (
	maxMessages      = 200
	maxMessageLength = 8000
)

// DemoProfile is the traveller sent with demo-mode chats when nobody is signed in.
var DemoProfile = domain.Profile{
	Username:       "demo_user",
	Email:          "john.doe@example.com",
	FirstName:      "John",
	LastName:       "Doe",
	Title:          "mr",
	Gender:         "male",
	DOB:            "1990-01-01",
	Phone:          "+14155552671",
	ProfilePicture: "/defaultpfp.jpeg",
}

var _ TravelUsecase = (*Usecase)(nil)

// Usecase implements the travel business logic on top of the backend.
type Usecase struct {
	backend  Backend
	renderer Renderer
	watcher  PaymentWatcher
	profiles ProfileLookup
	log      *zap.Logger
	validate *validator.Validate
}

// New creates the travel usecase. watcher and profiles may be nil.
func New(b Backend, r Renderer, w PaymentWatcher, profiles ProfileLookup, log *zap.Logger) *Usecase {
	return &Usecase{
		backend:  b,
		renderer: r,
		watcher:  w,
		profiles: profiles,
		log:      log,
		validate: validator.New(),
	}
}

// Chat forwards the conversation and renders the assistant's reply.
func (uc *Usecase) Chat(ctx context.Context, in ChatRequest) (*ChatResponse, error) {
	if in.SessionID != "" {
		ctx = logger.WithSessionID(ctx, in.SessionID)
	}
	log := logger.WithContext(ctx, uc.log)

	messages, err := cleanMessages(in.Messages)
	if err != nil {
		log.Warn("invalid chat request", zap.Error(err))
		return nil, err
	}

	tab, err := normalizeTab(in.Mode)
	if err != nil {
		return nil, err
	}

	user := in.User
	if tab == TabDemo && user == nil {
		demo := DemoProfile
		user = &demo
	}

	resp, err := uc.backend.Chat(ctx, backend.ChatRequest{
		Messages:  messages,
		SessionID: in.SessionID,
		User:      user,
		Mode:      tab,
	})
	if err != nil {
		log.Error("chat failed", zap.Error(err))
		return nil, err
	}

	sessionID := resp.SessionID
	if sessionID == "" {
		sessionID = in.SessionID
	}
	role := resp.Message.Role
	if role == "" {
		role = "assistant"
	}

	out := &ChatResponse{
		SessionID: sessionID,
		Message:   ChatReply{Role: role, Content: resp.Message.Content},
		ChargeID:  payment.ExtractChargeID(resp.Message.Content),
	}

	if uc.renderer != nil {
		html, err := uc.renderer.Render(resp.Message.Content)
		if err != nil {
			log.Warn("failed to render reply", zap.Error(err))
		} else {
			out.Message.HTML = html
		}
	}

	if out.ChargeID != "" && sessionID != "" && uc.watcher != nil {
		if uc.watcher.Watch(out.ChargeID, sessionID) {
			log.Info("payment link issued", zap.String("charge_id", out.ChargeID))
		}
	}

	return out, nil
}

func cleanMessages(in []backend.ChatMessage) ([]backend.ChatMessage, error) {
	if len(in) == 0 {
		return nil, apperrors.NewValidationError("messages", "messages is required")
	}
	if len(in) > maxMessages {
		return nil, apperrors.NewValidationError("messages", "too many messages")
	}

	out := make([]backend.ChatMessage, 0, len(in))
	for _, m := range in {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "user" && role != "assistant" {
			return nil, apperrors.NewValidationError("messages", "message role must be user or assistant")
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			return nil, apperrors.NewValidationError("messages", "message content is required")
		}
		if len(content) > maxMessageLength {
			return nil, apperrors.NewValidationError("messages", "message is too long")
		}
		out = append(out, backend.ChatMessage{Role: role, Content: content})
	}
	return out, nil
}

func normalizeTab(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", TabDemo:
		return TabDemo, nil
	case TabLive:
		return TabLive, nil
	default:
		return "", apperrors.NewValidationError("mode", "mode must be demo or live")
	}
}

// SwitchMode points the backend at the flight provider behind the tab.
func (uc *Usecase) SwitchMode(ctx context.Context, in ModeRequest) (*ModeResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	var provider string
	tab := strings.ToLower(strings.TrimSpace(in.Mode))
	switch tab {
	case TabDemo:
		provider = ProviderMock
	case TabLive:
		provider = ProviderLive
	default:
		return nil, apperrors.NewValidationError("mode", "mode must be demo or live")
	}

	if err := uc.backend.SetDuffelMode(ctx, provider); err != nil {
		log.Error("failed to switch mode", zap.String("mode", provider), zap.Error(err))
		return nil, err
	}

	log.Info("flight provider switched", zap.String("tab", tab), zap.String("mode", provider))
	return &ModeResponse{Tab: tab, Mode: provider}, nil
}

// VerifyAccessCode asks the backend whether code unlocks the live tab.
func (uc *Usecase) VerifyAccessCode(ctx context.Context, in AccessCodeRequest) (*backend.AccessCodeResult, error) {
	code := strings.TrimSpace(in.AccessCode)
	if code == "" {
		return nil, apperrors.NewValidationError("access_code", "Please enter an access code")
	}

	result, err := uc.backend.VerifyAccessCode(ctx, code)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("access code check failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// JoinWaitlist signs email up for launch news.
func (uc *Usecase) JoinWaitlist(ctx context.Context, in WaitlistRequest) (*backend.WaitlistResult, error) {
	log := logger.WithContext(ctx, uc.log)

	email := strings.TrimSpace(in.Email)
	if err := uc.validate.Var(email, "required,email,max=254"); err != nil {
		return nil, apperrors.NewValidationError("email", "Please enter a valid email address")
	}

	result, err := uc.backend.JoinWaitlist(ctx, email)
	if err != nil {
		log.Error("waitlist signup failed", zap.Error(err))
		return nil, err
	}

	log.Info("waitlist signup", zap.Bool("already_signed_up", result.AlreadySignedUp))
	return result, nil
}

// UserBookings returns the user's demo or live bookings as tickets, newest first.
func (uc *Usecase) UserBookings(ctx context.Context, in BookingsRequest) (*BookingsResponse, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username", "username is required")
	}
	log := logger.WithContext(ctx, uc.log).With(zap.String("bookings_of", username))

	records, err := uc.backend.UserBookings(ctx, username)
	if err != nil {
		log.Error("failed to fetch bookings", zap.Error(err))
		return nil, err
	}

	selected := booking.Select(records, in.Live)
	profile := uc.profile(ctx, log, username)

	out := &BookingsResponse{
		Bookings: selected,
		Tickets:  make([]booking.Ticket, 0, len(selected)*2),
	}
	for _, r := range selected {
		out.Tickets = append(out.Tickets, booking.Tickets(r, profile)...)
	}
	out.DemoCount, out.LiveCount = booking.Count(records)

	log.Debug("bookings loaded",
		zap.Bool("live", in.Live),
		zap.Int("bookings", len(selected)),
		zap.Int("tickets", len(out.Tickets)),
	)
	return out, nil
}

// profile is the stored account used when a booking carries no passenger.
func (uc *Usecase) profile(ctx context.Context, log *zap.Logger, username string) *domain.Profile {
	if uc.profiles == nil {
		return nil
	}
	u, err := uc.profiles.GetByUsername(ctx, username)
	if err != nil {
		log.Warn("profile lookup failed", zap.Error(err))
		return nil
	}
	if u == nil {
		return nil
	}
	p := u.Profile()
	return &p
}

// CheckPayment asks the backend once for the state of a charge.
func (uc *Usecase) CheckPayment(ctx context.Context, in PaymentRequest) (*payment.Result, error) {
	chargeID := strings.TrimSpace(in.ChargeID)
	sessionID := strings.TrimSpace(in.SessionID)
	if chargeID == "" {
		return nil, apperrors.NewValidationError("charge_id", "charge_id is required")
	}
	if sessionID == "" {
		return nil, apperrors.NewValidationError("session_id", "session_id is required")
	}

	status, err := uc.backend.CheckPayment(ctx, chargeID, sessionID)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("payment check failed", zap.String("charge_id", chargeID), zap.Error(err))
		return nil, err
	}

	return &payment.Result{
		ChargeID:  chargeID,
		SessionID: sessionID,
		Status:    status.Status,
		Message:   status.Message,
	}, nil
}
