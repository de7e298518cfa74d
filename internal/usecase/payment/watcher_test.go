package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"flyte-gateway/internal/adapter/backend"
	"flyte-gateway/internal/adapter/cache"
	"flyte-gateway/internal/domain/payment"
	apperrors "flyte-gateway/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedChecker replays a fixed sequence of answers, repeating the last one.
type scriptedChecker struct {
	mu      sync.Mutex
	answers []answer
	calls   int
}

type answer struct {
	status  string
	message string
	err     error
}

func (s *scriptedChecker) CheckPayment(ctx context.Context, chargeID, sessionID string) (*backend.PaymentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.answers[min(s.calls, len(s.answers)-1)]
	s.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &backend.PaymentStatus{Status: a.status, Message: a.message}, nil
}

func (s *scriptedChecker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newWatcher(t *testing.T, checker Checker, cfg Config) (*Watcher, *cache.MemoryPaymentStatusStore) {
	store := cache.NewMemoryPaymentStatusStore(0)
	w := NewWatcher(checker, store, cfg, zaptest.NewLogger(t))
	t.Cleanup(w.Close)
	return w, store
}

func TestPoll_CompletesAfterPending(t *testing.T) {
	checker := &scriptedChecker{answers: []answer{
		{status: payment.StatusPending},
		{status: "unresolved"},
		{err: errors.New("connection refused")},
		{status: payment.StatusCompleted, message: "Flight booked"},
	}}
	w, store := newWatcher(t, checker, Config{Interval: 5 * time.Millisecond})

	result, err := w.Poll(context.Background(), "ABC-123", "sess-1")

	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, result.Status)
	assert.Equal(t, "Flight booked", result.Summary())
	assert.Equal(t, 4, checker.Calls())

	saved, err := store.Get(context.Background(), "ABC-123")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, saved.Status)
}

func TestPoll_StopsOnError(t *testing.T) {
	checker := &scriptedChecker{answers: []answer{{status: payment.StatusError, message: "expired"}}}
	w, _ := newWatcher(t, checker, Config{Interval: time.Hour})

	result, err := w.Poll(context.Background(), "ABC-123", "sess-1")

	require.NoError(t, err)
	assert.Equal(t, "❌ Payment error: expired", result.Summary())
	assert.Equal(t, 1, checker.Calls(), "first check happens without waiting")
}

func TestPoll_Cancelled(t *testing.T) {
	checker := &scriptedChecker{answers: []answer{{status: payment.StatusPending}}}
	w, _ := newWatcher(t, checker, Config{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	_, err := w.Poll(ctx, "ABC-123", "sess-1")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, checker.Calls(), 1)
}

func TestPoll_MaxWatch(t *testing.T) {
	checker := &scriptedChecker{answers: []answer{{status: payment.StatusPending}}}
	w, _ := newWatcher(t, checker, Config{Interval: 5 * time.Millisecond, MaxWatch: 30 * time.Millisecond})

	_, err := w.Poll(context.Background(), "ABC-123", "sess-1")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatch_RecordsAndDedupes(t *testing.T) {
	checker := &scriptedChecker{answers: []answer{
		{status: payment.StatusPending},
		{status: payment.StatusPending},
		{status: payment.StatusCompleted},
	}}
	w, _ := newWatcher(t, checker, Config{Interval: 20 * time.Millisecond})
	ctx := context.Background()

	assert.True(t, w.Watch("ABC-123", "sess-1"))
	assert.False(t, w.Watch("ABC-123", "sess-1"), "duplicate watch ignored")

	initial, err := w.Status(ctx, "ABC-123")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", initial.SessionID)

	require.Eventually(t, func() bool {
		r, err := w.Status(ctx, "ABC-123")
		return err == nil && r.Status == payment.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return !w.Watching("ABC-123") }, time.Second, 5*time.Millisecond)
	final, err := w.Status(ctx, "ABC-123")
	require.NoError(t, err)
	assert.Equal(t, payment.DefaultConfirmation, final.Summary())
}

func TestWatch_SettledChargeNotReopened(t *testing.T) {
	checker := &scriptedChecker{answers: []answer{
		{status: payment.StatusCompleted, message: "Seat 4C confirmed"},
		{err: errors.New("connection refused")},
	}}
	w, _ := newWatcher(t, checker, Config{Interval: 5 * time.Millisecond})
	ctx := context.Background()

	require.True(t, w.Watch("ch1", "sess-1"))
	require.Eventually(t, func() bool { return !w.Watching("ch1") }, time.Second, 5*time.Millisecond)

	assert.False(t, w.Watch("ch1", "sess-1"), "settled charge is not polled again")
	assert.False(t, w.Watching("ch1"))

	r, err := w.Status(ctx, "ch1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, r.Status)
	assert.Equal(t, "Seat 4C confirmed", r.Summary())
	assert.Equal(t, 1, checker.Calls())
}

func TestStatus_Unknown(t *testing.T) {
	w, _ := newWatcher(t, &scriptedChecker{answers: []answer{{status: payment.StatusPending}}}, Config{})

	_, err := w.Status(context.Background(), "nope")

	assert.True(t, apperrors.IsNotFound(err))
}

func TestClose_StopsPolls(t *testing.T) {
	checker := &scriptedChecker{answers: []answer{{status: payment.StatusPending}}}
	store := cache.NewMemoryPaymentStatusStore(0)
	w := NewWatcher(checker, store, Config{Interval: 5 * time.Millisecond}, zaptest.NewLogger(t))

	require.True(t, w.Watch("A", "s"))
	require.True(t, w.Watch("B", "s"))
	require.Eventually(t, func() bool { return checker.Calls() >= 4 }, time.Second, 5*time.Millisecond)

	w.Close()

	assert.False(t, w.Watching("A"))
	assert.False(t, w.Watching("B"))
	assert.False(t, w.Watch("C", "s"), "closed watcher refuses new work")
}
