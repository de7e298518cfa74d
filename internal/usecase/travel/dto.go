package travel

import (
	"flyte-gateway/internal/adapter/backend"
	"flyte-gateway/internal/domain/booking"
	domain "flyte-gateway/internal/domain/user"
)

// Chat tab modes as the front end names them.
const (
	TabDemo = "demo"
	TabLive = "live"
)

// Flight provider modes understood by the backend.
const (
	ProviderMock = "mock"
	ProviderLive = "live"
)

// ChatRequest is one user turn plus the conversation so far.
type ChatRequest struct {
	Messages  []backend.ChatMessage `json:"messages"`
	SessionID string                `json:"session_id"`
	User      *domain.Profile       `json:"user"`
	Mode      string                `json:"mode"`
}

// ChatReply is the assistant message with a rendered HTML copy.
type ChatReply struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	HTML    string `json:"html,omitempty"`
}

// ChatResponse is returned to the chat view.
type ChatResponse struct {
	SessionID string    `json:"session_id"`
	Message   ChatReply `json:"message"`
	ChargeID  string    `json:"charge_id,omitempty"`
}

// ModeRequest switches the chat tab.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// ModeResponse reports the tab and the provider mode it maps to.
type ModeResponse struct {
	Tab  string `json:"tab"`
	Mode string `json:"mode"`
}

// AccessCodeRequest unlocks the live tab.
type AccessCodeRequest struct {
	AccessCode string `json:"access_code"`
}

// WaitlistRequest signs an email up for launch news.
type WaitlistRequest struct {
	Email string `json:"email"`
}

// BookingsRequest selects the demo or live bookings of one user.
type BookingsRequest struct {
	Username string `form:"username"`
	Live     bool   `form:"live"`
}

// BookingsResponse carries the selected bookings and their tickets.
type BookingsResponse struct {
	Bookings  []booking.Record `json:"bookings"`
	Tickets   []booking.Ticket `json:"tickets"`
	DemoCount int              `json:"demo_count"`
	LiveCount int              `json:"live_count"`
}

// PaymentRequest names a charge within a chat session.
type PaymentRequest struct {
	ChargeID  string `form:"charge_id"`
	SessionID string `form:"session_id"`
}
