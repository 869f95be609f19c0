package mapper

import (
	"time"

	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
)

// OrderResponse is the wire representation of an order. Field names match
// the legacy API consumed by the storefront.
type OrderResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Package       string    `json:"package"`
	Files         []string  `json:"files"`
	PaymentStatus string    `json:"paymentStatus"`
	OrderDate     time.Time `json:"orderDate"`
}

// CheckoutResponse carries the payment redirect URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// ToOrderResponse maps the aggregate to its wire shape.
func ToOrderResponse(order *domain.Order) OrderResponse {
	files := order.MediaRefs
	if files == nil {
		files = []string{}
	}
	return OrderResponse{
		ID:            order.ID,
		Email:         order.Email,
		Package:       string(order.Package),
		Files:         files,
		PaymentStatus: string(order.PaymentStatus),
		OrderDate:     order.CreatedAt,
	}
}

// ToOrderResponses maps a list of aggregates, preserving order.
func ToOrderResponses(orders []*domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, ToOrderResponse(order))
	}
	return out
}
