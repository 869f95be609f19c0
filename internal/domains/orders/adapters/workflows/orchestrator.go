package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/sdk/client"

	ordertypes "github.com/Apurer/photo-orders/internal/domains/orders/application/types"
	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
	orderworkflows "github.com/Apurer/photo-orders/internal/durable/temporal/workflows/orders"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalOrderWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineOrderWorkflows)(nil)
)

// TemporalOrderWorkflows starts order intake workflows on a Temporal cluster.
type TemporalOrderWorkflows struct {
	client    client.Client
	taskQueue string
}

// NewTemporalOrderWorkflows wires a Temporal client into the orchestrator.
func NewTemporalOrderWorkflows(c client.Client) *TemporalOrderWorkflows {
	return &TemporalOrderWorkflows{client: c, taskQueue: orderworkflows.OrderCreationTaskQueue}
}

// CreateOrder starts the durable intake workflow and waits for its result.
func (o *TemporalOrderWorkflows) CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*ordertypes.OrderResult, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal order workflows not configured")
	}
	traceComponent := workflowTraceComponent(ctx)
	options := client.StartWorkflowOptions{
		ID:        buildOrderCreationWorkflowID(input.Email, traceComponent),
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		orderworkflows.OrderCreationWorkflow,
		orderworkflows.OrderCreationWorkflowInput{Command: input, TraceID: traceComponent},
	)
	if err != nil {
		return nil, err
	}
	var result ordertypes.OrderResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InlineOrderWorkflows executes the service directly without Temporal, useful
// for tests or dev fallbacks.
type InlineOrderWorkflows struct {
	service ports.Service
}

// NewInlineOrderWorkflows wraps the orders service for synchronous execution.
func NewInlineOrderWorkflows(service ports.Service) *InlineOrderWorkflows {
	return &InlineOrderWorkflows{service: service}
}

// CreateOrder delegates to the application service without durable orchestration.
func (o *InlineOrderWorkflows) CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*ordertypes.OrderResult, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline order workflows not configured")
	}
	return o.service.CreateOrder(ctx, input)
}

// buildOrderCreationWorkflowID combines the hashed email with the request's
// trace component, so every submission gets its own execution that is
// traceable back to both the customer and the originating request. Duplicate
// submissions for the same customer are rejected by the store's
// pending-email guard, not by workflow identity.
func buildOrderCreationWorkflowID(email, traceComponent string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("order-intake-%s-%s", hex.EncodeToString(sum[:8]), traceComponent)
}

func workflowTraceComponent(ctx context.Context) string {
	if traceID := workflowTraceID(ctx); traceID != "" {
		return traceID
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	traceID := spanCtx.TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}
