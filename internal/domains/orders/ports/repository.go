package ports

import (
	"context"
	"errors"

	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrDuplicatePending is returned by Insert when the store's uniqueness
	// constraint detects an open reservation for the same email.
	ErrDuplicatePending = errors.New("pending order already exists for email")
)

// Repository is the durable order store. Insert assigns the order ID; all
// other operations address an existing row.
type Repository interface {
	Insert(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateMedia(ctx context.Context, id string, mediaRefs []string) error
	// UpdateStatus applies a forward-only transition. Writing the current
	// status again must succeed without effect so webhook replays stay safe.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error
	// FindPendingByEmail returns the open AwaitingPayment reservation for the
	// email, or nil when there is none.
	FindPendingByEmail(ctx context.Context, email string) (*domain.Order, error)
	// ListAll returns every order, newest first.
	ListAll(ctx context.Context) ([]*domain.Order, error)
}
