package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"flyte-gateway/internal/adapter/backend"
	"flyte-gateway/internal/domain/payment"
	apperrors "flyte-gateway/pkg/errors"
)

// Checker asks the backend for the state of a charge.
type Checker interface {
	CheckPayment(ctx context.Context, chargeID, sessionID string) (*backend.PaymentStatus, error)
}

// StatusStore keeps the latest observation per charge.
type StatusStore interface {
	Save(ctx context.Context, r payment.Result) error
	Get(ctx context.Context, chargeID string) (*payment.Result, error)
}

// Config tunes polling.
type Config struct {
	Interval time.Duration // between checks
	MaxWatch time.Duration // 0 = until a terminal status
}

// Watcher polls charges in the background until they settle.
type Watcher struct {
	checker Checker
	store   StatusStore
	cfg     Config
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[string]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewWatcher creates a payment watcher.
func NewWatcher(checker Checker, store StatusStore, cfg Config, log *zap.Logger) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		checker: checker,
		store:   store,
		cfg:     cfg,
		log:     log.Named("payment"),
		ctx:     ctx,
		cancel:  cancel,
		active:  make(map[string]struct{}),
	}
}

// Poll checks the charge immediately and then every interval until it is
// completed or failed. Check errors and unknown statuses keep it polling.
func (w *Watcher) Poll(ctx context.Context, chargeID, sessionID string) (payment.Result, error) {
	if w.cfg.MaxWatch > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.MaxWatch)
		defer cancel()
	}

	log := w.log.With(zap.String("charge_id", chargeID), zap.String("session_id", sessionID))
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return payment.Result{}, ctx.Err()
		case <-timer.C:
		}

		status, err := w.checker.CheckPayment(ctx, chargeID, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return payment.Result{}, ctx.Err()
			}
			log.Warn("payment check failed, retrying", zap.Error(err))
			timer.Reset(w.cfg.Interval)
			continue
		}

		result := payment.Result{
			ChargeID:  chargeID,
			SessionID: sessionID,
			Status:    status.Status,
			Message:   status.Message,
		}
		if err := w.store.Save(ctx, result); err != nil {
			log.Warn("failed to record payment status", zap.Error(err))
		}

		if payment.IsTerminal(result.Status) {
			log.Info("payment settled", zap.String("status", result.Status), zap.String("summary", result.Summary()))
			return result, nil
		}

		log.Debug("payment not settled", zap.String("status", result.Status))
		timer.Reset(w.cfg.Interval)
	}
}

// Watch starts a background poll for chargeID. It reports false when the
// charge is already being watched, has already settled, or the watcher is
// closed.
func (w *Watcher) Watch(chargeID, sessionID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false
	}
	if _, ok := w.active[chargeID]; ok {
		return false
	}
	// a settled charge keeps its final status when its link shows up again
	if prev, err := w.store.Get(w.ctx, chargeID); err != nil {
		w.log.Warn("failed to read payment status", zap.String("charge_id", chargeID), zap.Error(err))
	} else if prev != nil && payment.IsTerminal(prev.Status) {
		w.log.Debug("payment already settled", zap.String("charge_id", chargeID), zap.String("status", prev.Status))
		return false
	}
	w.active[chargeID] = struct{}{}

	pending := payment.Result{ChargeID: chargeID, SessionID: sessionID, Status: payment.StatusPending}
	if err := w.store.Save(w.ctx, pending); err != nil {
		w.log.Warn("failed to record pending payment", zap.String("charge_id", chargeID), zap.Error(err))
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.active, chargeID)
			w.mu.Unlock()
		}()

		if _, err := w.Poll(w.ctx, chargeID, sessionID); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				w.log.Warn("gave up watching payment", zap.String("charge_id", chargeID), zap.Duration("max_watch", w.cfg.MaxWatch))
				return
			}
			w.log.Debug("payment watch stopped", zap.String("charge_id", chargeID), zap.Error(err))
		}
	}()

	w.log.Info("watching payment", zap.String("charge_id", chargeID), zap.String("session_id", sessionID))
	return true
}

// Watching reports whether chargeID has a running poll.
func (w *Watcher) Watching(chargeID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.active[chargeID]
	return ok
}

// Status returns the latest recorded status of chargeID.
func (w *Watcher) Status(ctx context.Context, chargeID string) (*payment.Result, error) {
	r, err := w.store.Get(ctx, chargeID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read payment status", err)
	}
	if r == nil {
		return nil, apperrors.NewNotFoundError("payment", "Payment not found")
	}
	return r, nil
}

// Close cancels every running poll and waits for them to exit.
func (w *Watcher) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}
