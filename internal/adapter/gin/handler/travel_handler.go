package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flyte-gateway/internal/domain/payment"
	"flyte-gateway/internal/usecase/travel"
)

// PaymentStatusReader serves the latest recorded status of a watched charge.
type PaymentStatusReader interface {
	Status(ctx context.Context, chargeID string) (*payment.Result, error)
}

// TravelHandler handles chat, booking, payment and waitlist requests
type TravelHandler struct {
	uc       travel.TravelUsecase
	payments PaymentStatusReader
	log      *zap.Logger
}

// NewTravelHandler creates a new TravelHandler instance
func NewTravelHandler(uc travel.TravelUsecase, payments PaymentStatusReader, log *zap.Logger) *TravelHandler {
	return &TravelHandler{
		uc:       uc,
		payments: payments,
		log:      log,
	}
}

// PaymentResponse is a charge status plus the line shown in the chat.
type PaymentResponse struct {
	ChargeID  string `json:"charge_id"`
	SessionID string `json:"session_id,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

func newPaymentResponse(r *payment.Result) PaymentResponse {
	return PaymentResponse{
		ChargeID:  r.ChargeID,
		SessionID: r.SessionID,
		Status:    r.Status,
		Message:   r.Message,
		Summary:   r.Summary(),
	}
}

// Chat handles POST /api/chat
func (h *TravelHandler) Chat(c *gin.Context) {
	var req travel.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}

	resp, err := h.uc.Chat(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SwitchMode handles POST /api/duffel-mode
func (h *TravelHandler) SwitchMode(c *gin.Context) {
	var req travel.ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}

	resp, err := h.uc.SwitchMode(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyAccessCode handles POST /api/verify-access-code
func (h *TravelHandler) VerifyAccessCode(c *gin.Context) {
	var req travel.AccessCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}

	resp, err := h.uc.VerifyAccessCode(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// JoinWaitlist handles POST /api/join-waitlist
func (h *TravelHandler) JoinWaitlist(c *gin.Context) {
	var req travel.WaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}

	resp, err := h.uc.JoinWaitlist(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UserBookings handles GET /api/user-bookings?username=&live=
func (h *TravelHandler) UserBookings(c *gin.Context) {
	var req travel.BookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}

	resp, err := h.uc.UserBookings(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CheckPayment handles GET /api/check-payment?charge_id=&session_id=
func (h *TravelHandler) CheckPayment(c *gin.Context) {
	var req travel.PaymentRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}

	result, err := h.uc.CheckPayment(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, newPaymentResponse(result))
}

// PaymentStatus handles GET /api/payments/:charge_id
func (h *TravelHandler) PaymentStatus(c *gin.Context) {
	result, err := h.payments.Status(c.Request.Context(), c.Param("charge_id"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, newPaymentResponse(result))
}
