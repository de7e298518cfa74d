package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractChargeID(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"charges link", "Pay here: https://commerce.coinbase.com/charges/ABCD-1234", "ABCD-1234"},
		{"pay link", "[Pay](https://commerce.coinbase.com/pay/9f8e7d6c-aaaa)", "9f8e7d6c-aaaa"},
		{"first link wins", "commerce.coinbase.com/pay/first and commerce.coinbase.com/pay/second", "first"},
		{"no link", "Your flight is on hold.", ""},
		{"other coinbase page", "https://commerce.coinbase.com/checkout/xyz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractChargeID(tt.content))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusError))
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal("unresolved"))
}

func TestResult_Summary(t *testing.T) {
	assert.Equal(t, DefaultConfirmation, Result{Status: StatusCompleted}.Summary())
	assert.Equal(t, "Seat 12A booked", Result{Status: StatusCompleted, Message: "Seat 12A booked"}.Summary())
	assert.Equal(t, "❌ Payment error: expired", Result{Status: StatusError, Message: "expired"}.Summary())
	assert.Empty(t, Result{Status: StatusPending}.Summary())
}
