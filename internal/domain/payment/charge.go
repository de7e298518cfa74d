package payment

import "regexp"

// Charge statuses reported by the backend's check-payment endpoint.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// DefaultConfirmation is shown when a completed charge carries no message.
const DefaultConfirmation = "🎟️ Booking confirmed!"

var chargeLink = regexp.MustCompile(`commerce\.coinbase\.com/(?:charges|pay)/([a-zA-Z0-9-]+)`)

// ExtractChargeID returns the Coinbase Commerce charge id from the first
// hosted charge or pay link in content, or "".
func ExtractChargeID(content string) string {
	m := chargeLink.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsTerminal reports whether polling should stop at status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}

// Result is one observation of a charge.
type Result struct {
	ChargeID  string `json:"charge_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// Summary is the chat line shown for a terminal result.
func (r Result) Summary() string {
	switch r.Status {
	case StatusCompleted:
		if r.Message != "" {
			return r.Message
		}
		return DefaultConfirmation
	case StatusError:
		return "❌ Payment error: " + r.Message
	default:
		return ""
	}
}
