package ports

import (
	"context"

	ordertypes "github.com/Apurer/photo-orders/internal/domains/orders/application/types"
	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
)

// Service defines the order use cases exposed to adapters (inbound/driving port).
type Service interface {
	CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*ordertypes.OrderResult, error)
	ResumeUploads(ctx context.Context, input ordertypes.ResumeUploadsInput) (*ordertypes.OrderResult, error)
	RecreateSession(ctx context.Context, orderID string) (*ordertypes.OrderResult, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	Cancel(ctx context.Context, id string) error
}

// Reconciler applies verified gateway events to order records.
type Reconciler interface {
	HandleGatewayEvent(ctx context.Context, payload []byte, signature string) error
}
