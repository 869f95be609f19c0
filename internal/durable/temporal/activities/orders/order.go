package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	ordertypes "github.com/Apurer/photo-orders/internal/domains/orders/application/types"
	orderports "github.com/Apurer/photo-orders/internal/domains/orders/ports"
)

// CreateOrderActivityName runs the full intake saga as one activity. The saga
// defines its own partial-failure outcomes, so the activity must not be
// blindly retried; the workflow caps it at a single attempt.
const CreateOrderActivityName = "orders.activities.CreateOrder"

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	service orderports.Service
}

// NewActivities wires the orders service into the Temporal activities bundle.
func NewActivities(service orderports.Service) *Activities {
	return &Activities{service: service}
}

// CreateOrder executes the intake saga and returns its result.
func (a *Activities) CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*ordertypes.OrderResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("order create activity not initialized")
		return nil, errors.New("order create activity not initialized")
	}
	logger.Info("CreateOrder activity started", "package", input.Package, "files", len(input.Files))
	result, err := a.service.CreateOrder(ctx, input)
	if err != nil {
		logger.Error("CreateOrder activity failed", "package", input.Package, "error", err)
		return nil, err
	}
	if result != nil && result.Order != nil {
		logger.Info("CreateOrder activity completed", "orderId", result.Order.ID, "status", string(result.Order.PaymentStatus))
	}
	return result, nil
}
