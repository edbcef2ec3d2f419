// Package reconcile resolves payment attempts that never reached an order.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/gateway"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/repo"
)

const defaultBatchSize = 100

type Fetcher interface {
	FetchOrder(ctx context.Context, id string) (*gateway.Order, error)
}

type Worker struct {
	Repo      *repo.GormRepo
	Gateway   Fetcher
	Events    events.Publisher
	Interval  time.Duration
	After     time.Duration
	BatchSize int
	Logger    *slog.Logger
	Now       func() time.Time
}

type Result struct {
	Failed      int
	Expired     int
	Unfulfilled int
	Skipped     int
	Errors      int
}

// Run reconciles once immediately and then every Interval until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	l := w.logger()
	l.Info("reconciler_started", "interval", w.Interval, "after", w.After)

	t := time.NewTicker(w.Interval)
	defer t.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			l.Error("reconcile_batch_error", "error", err)
		}
		select {
		case <-ctx.Done():
			l.Info("reconciler_stopped")
			return
		case <-t.C:
		}
	}
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger.With("worker", "reconciler")
	}
	return slog.Default().With("worker", "reconciler")
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now().UTC()
}

// RunOnce pages through every stale attempt. Attempts it cannot settle are passed
// over so they never hold back the ones behind them.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	l := w.logger()

	batch := w.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	cutoff := w.now().Add(-w.After)

	var (
		cursor *repo.AttemptCursor
		seen   int
	)
	for {
		attempts, err := w.Repo.ListStaleAttempts(ctx, cutoff, cursor, batch)
		if err != nil {
			return res, err
		}
		for _, a := range attempts {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			w.settle(ctx, a, &res)
		}
		seen += len(attempts)
		if len(attempts) < batch {
			break
		}
		last := attempts[len(attempts)-1]
		cursor = &repo.AttemptCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	if seen > 0 {
		l.Info("reconcile_batch_done", "seen", seen, "failed", res.Failed,
			"expired", res.Expired, "unfulfilled", res.Unfulfilled, "skipped", res.Skipped, "errors", res.Errors)
	}
	return res, nil
}

func (w *Worker) settle(ctx context.Context, a models.PaymentAttempt, res *Result) {
	l := w.logger()

	to, reason, err := w.resolve(ctx, a)
	if err != nil {
		res.Errors++
		l.Warn("reconcile_attempt_error", "attempt_id", a.ID, "error", err)
		return
	}
	if to == "" {
		res.Skipped++
		return
	}

	moved, err := w.Repo.TransitionAttempt(ctx, a.ID, models.AttemptInitiated, to, reason)
	if err != nil {
		res.Errors++
		l.Warn("reconcile_attempt_error", "attempt_id", a.ID, "error", err)
		return
	}
	if !moved {
		res.Skipped++
		return
	}

	switch to {
	case models.AttemptFailed:
		res.Failed++
	case models.AttemptExpired:
		res.Expired++
	case models.AttemptUnfulfilled:
		res.Unfulfilled++
		events.Emit(ctx, w.Events, events.TopicPayment, a.ID.String(), events.Event{
			"type":             "payment_unfulfilled",
			"attempt_id":       a.ID,
			"user_id":          a.UserID,
			"gateway_order_id": *a.GatewayOrderID,
			"amount":           a.Amount,
			"currency":         a.Currency,
		})
	}
	l.Info("attempt_reconciled", "attempt_id", a.ID, "status", to, "reason", reason)
}

// resolve decides the terminal status of a stale attempt; an empty status leaves it alone.
func (w *Worker) resolve(ctx context.Context, a models.PaymentAttempt) (models.AttemptStatus, string, error) {
	if a.GatewayOrderID == nil || *a.GatewayOrderID == "" {
		return models.AttemptFailed, "gateway order never created", nil
	}

	o, err := w.Gateway.FetchOrder(ctx, *a.GatewayOrderID)
	if err != nil {
		return "", "", err
	}

	switch o.Status {
	case gateway.OrderPaid:
		return models.AttemptUnfulfilled, "paid but no order was written", nil
	case gateway.OrderCreated, gateway.OrderAttempted:
		return models.AttemptExpired, "payment not completed", nil
	default:
		return "", "", nil
	}
}
