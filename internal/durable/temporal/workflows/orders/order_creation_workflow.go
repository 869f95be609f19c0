package orders

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	ordertypes "github.com/Apurer/photo-orders/internal/domains/orders/application/types"
	orderactivities "github.com/Apurer/photo-orders/internal/durable/temporal/activities/orders"
)

const (
	// OrderCreationWorkflowName is the public identifier for registering the workflow.
	OrderCreationWorkflowName = "orders.workflows.Creation"
	// OrderCreationTaskQueue is the queue consumed by the worker processing order workflows.
	OrderCreationTaskQueue = "ORDER_CREATION"
)

// OrderCreationWorkflowInput captures the payload required to run the intake saga.
type OrderCreationWorkflowInput struct {
	Command ordertypes.CreateOrderInput
	TraceID string
}

// OrderCreationWorkflow runs the intake saga durably. The saga activity is
// capped at one attempt: its partial-failure states (upload failed, payment
// session failed) are customer-recoverable outcomes, not transient faults,
// and a retry would collide with the duplicate-pending guard.
func OrderCreationWorkflow(ctx workflow.Context, input OrderCreationWorkflowInput) (*ordertypes.OrderResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("OrderCreationWorkflow started", withTraceID(input.TraceID, "package", input.Command.Package)...)

	options := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var result ordertypes.OrderResult
	err := workflow.ExecuteActivity(ctx, orderactivities.CreateOrderActivityName, input.Command).Get(ctx, &result)
	if err != nil {
		logger.Error("OrderCreationWorkflow failed", withTraceID(input.TraceID, "package", input.Command.Package, "error", err)...)
		return nil, err
	}
	if result.Order != nil {
		logger.Info("OrderCreationWorkflow completed", withTraceID(input.TraceID, "orderId", result.Order.ID)...)
	} else {
		logger.Info("OrderCreationWorkflow completed", withTraceID(input.TraceID)...)
	}
	return &result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
