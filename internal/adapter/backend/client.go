package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"flyte-gateway/internal/domain/booking"
	domain "flyte-gateway/internal/domain/user"
	apperrors "flyte-gateway/pkg/errors"
	"flyte-gateway/pkg/logger"
)

// maxResponseBytes caps how much of a backend answer is read.
const maxResponseBytes = 8 << 20

// Config holds the backend location and timeouts.
type Config struct {
	BaseURL        string
	ChatTimeout    time.Duration
	RequestTimeout time.Duration
	// HTTPClient is used for all requests. If nil, a client without its own timeout is used.
	HTTPClient *http.Client
}

// Client talks JSON over HTTP to the travel backend (chat agent, flight
// bookings, Coinbase charges, waitlist).
type Client struct {
	baseURL        string
	chatTimeout    time.Duration
	requestTimeout time.Duration
	httpClient     *http.Client
	log            *zap.Logger
}

// NewClient validates cfg and creates a backend client.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// Per-call contexts carry the deadlines
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		chatTimeout:    cfg.ChatTimeout,
		requestTimeout: cfg.RequestTimeout,
		httpClient:     httpClient,
		log:            log.Named("backend"),
	}, nil
}

// ChatMessage is one turn of the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is forwarded to the agent.
type ChatRequest struct {
	Messages  []ChatMessage   `json:"messages"`
	SessionID string          `json:"session_id,omitempty"`
	User      *domain.Profile `json:"user"`
	Mode      string          `json:"mode"`
}

// ChatResponse is the agent's reply.
type ChatResponse struct {
	Message   ChatMessage `json:"message"`
	SessionID string      `json:"session_id"`
}

// PaymentStatus is the backend's view of a charge.
type PaymentStatus struct {
	Status  string
	Message string
}

// AccessCodeResult says whether a live-mode access code is accepted.
type AccessCodeResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// WaitlistResult reports a waitlist signup.
type WaitlistResult struct {
	AlreadySignedUp bool   `json:"already_signed_up"`
	Message         string `json:"message,omitempty"`
}

// Chat sends the conversation to the agent. Flight searches are slow, so it
// has its own, longer timeout.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.call(ctx, c.chatTimeout, "Get response from AI", http.MethodPost, "/api/chat", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckPayment asks for the status of a Coinbase charge.
func (c *Client) CheckPayment(ctx context.Context, chargeID, sessionID string) (*PaymentStatus, error) {
	q := url.Values{}
	q.Set("charge_id", chargeID)
	q.Set("session_id", sessionID)

	var raw struct {
		Status  string          `json:"status"`
		Message json.RawMessage `json:"message"`
	}
	if err := c.call(ctx, c.requestTimeout, "Check payment", http.MethodGet, "/api/check-payment", q, nil, &raw); err != nil {
		return nil, err
	}
	return &PaymentStatus{Status: raw.Status, Message: messageText(raw.Message)}, nil
}

// messageText accepts either a bare string or an object with a content field.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Content
	}
	return string(raw)
}

// SetDuffelMode switches the flight provider between "mock" and "live".
func (c *Client) SetDuffelMode(ctx context.Context, mode string) error {
	body := map[string]string{"mode": mode}
	return c.call(ctx, c.requestTimeout, "Switch backend mode", http.MethodPost, "/api/duffel-mode", nil, body, nil)
}

// UserBookings lists every booking recorded for username.
func (c *Client) UserBookings(ctx context.Context, username string) ([]booking.Record, error) {
	q := url.Values{}
	q.Set("username", username)

	var resp struct {
		Bookings []booking.Record `json:"bookings"`
	}
	if err := c.call(ctx, c.requestTimeout, "Fetch bookings", http.MethodGet, "/api/user-bookings", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Bookings, nil
}

// VerifyAccessCode checks a live-mode access code. A rejection may arrive
// with a non-2xx status and still carry a message; that is a result, not an error.
func (c *Client) VerifyAccessCode(ctx context.Context, code string) (*AccessCodeResult, error) {
	body := map[string]string{"access_code": code}

	var result AccessCodeResult
	err := c.call(ctx, c.requestTimeout, "Verify access code", http.MethodPost, "/api/verify-access-code", nil, body, &result)
	if err != nil {
		var upstream *apperrors.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500 && upstream.Detail != "" {
			return &AccessCodeResult{Valid: false, Message: upstream.Detail}, nil
		}
		return nil, err
	}
	return &result, nil
}

// JoinWaitlist adds email to the launch waitlist.
func (c *Client) JoinWaitlist(ctx context.Context, email string) (*WaitlistResult, error) {
	body := map[string]string{"email": email}

	var result WaitlistResult
	if err := c.call(ctx, c.requestTimeout, "Join waitlist", http.MethodPost, "/api/join-waitlist", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// call performs one JSON request. Non-2xx answers become an UpstreamError
// carrying the body's detail (or message) field when present.
func (c *Client) call(ctx context.Context, timeout time.Duration, operation, method, path string, query url.Values, in, out any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return fmt.Errorf("backend: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		req.Header.Set(logger.RequestIDHeader, requestID)
	}

	log := logger.WithContext(ctx, c.log)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return apperrors.NewUpstreamError(operation, 0, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.NewUpstreamError(operation, resp.StatusCode, "", fmt.Errorf("read response: %w", err))
	}

	log.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := errorDetail(data)
		log.Warn("backend returned error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		return apperrors.NewUpstreamError(operation, resp.StatusCode, detail, nil)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewUpstreamError(operation, resp.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorDetail pulls a human-readable reason out of an error body.
// FastAPI puts it under "detail", which is either a string or a list of
// validation errors.
func errorDetail(data []byte) string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}

	var s string
	if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &s) == nil && s != "" {
		return s
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &list) == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}

	return messageText(body.Message)
}
