package ports

import (
	"context"

	ordertypes "github.com/Apurer/photo-orders/internal/domains/orders/application/types"
)

// WorkflowOrchestrator exposes durable workflow operations required by the
// orders bounded context.
type WorkflowOrchestrator interface {
	CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*ordertypes.OrderResult, error)
}
