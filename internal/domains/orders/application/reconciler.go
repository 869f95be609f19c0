package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
)

// Reconciler applies the gateway's asynchronous payment confirmations to the
// order store. Signature verification is the sole trust boundary between the
// gateway and the records; nothing is written before it passes.
type Reconciler struct {
	repo     ports.Repository
	payments ports.PaymentGateway
	logger   *slog.Logger
}

// NewReconciler wires the reconciler with its collaborators.
func NewReconciler(repo ports.Repository, payments ports.PaymentGateway, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{repo: repo, payments: payments, logger: logger}
}

// HandleGatewayEvent verifies the raw payload and, for a checkout-completed
// event, transitions the referenced order to Completed. The operation is
// idempotent: replaying the same completion is a no-op success. Event kinds
// outside this system's concern are acknowledged without a state change.
func (r *Reconciler) HandleGatewayEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := r.payments.VerifyEvent(payload, signature)
	if err != nil {
		r.logger.Warn("rejected gateway event", slog.String("error", err.Error()))
		if errors.Is(err, ports.ErrInvalidSignature) || errors.Is(err, ports.ErrMalformedEvent) {
			return err
		}
		return fmt.Errorf("%w: %w", ports.ErrMalformedEvent, err)
	}
	if !event.Completed {
		r.logger.Info("ignoring gateway event", slog.String("kind", event.Kind))
		return nil
	}
	if event.OrderID == "" {
		return fmt.Errorf("%w: completion event carries no order id", ErrOrderNotFound)
	}

	order, err := r.repo.GetByID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, event.OrderID)
		}
		return err
	}
	if order.PaymentStatus == domain.StatusCompleted {
		r.logger.Info("gateway event replayed, order already completed", slog.String("order.id", order.ID))
		return nil
	}
	if err := order.Complete(); err != nil {
		return fmt.Errorf("order %s cannot complete from %s: %w", order.ID, order.PaymentStatus, err)
	}
	if err := r.repo.UpdateStatus(ctx, order.ID, domain.StatusCompleted); err != nil {
		return err
	}
	r.logger.Info("order completed", slog.String("order.id", order.ID), slog.String("kind", event.Kind))
	return nil
}

var _ ports.Reconciler = (*Reconciler)(nil)
