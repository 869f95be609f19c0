package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order persistence adapter. The duplicate-pending
// guard runs under the same lock as the insert, so the check-then-insert race
// cannot occur here.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	seq    map[string]int
	nextID int
	now    func() time.Time
}

func NewRepository() *Repository {
	return &Repository{
		orders: map[string]*domain.Order{},
		seq:    map[string]int{},
		now:    time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (r *Repository) WithClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *Repository) Insert(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.Email == order.Email && existing.AwaitingPayment() {
			return nil, ports.ErrDuplicatePending
		}
	}
	clone := *order
	clone.ID = uuid.NewString()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = r.now().UTC()
	}
	r.nextID++
	r.orders[clone.ID] = &clone
	r.seq[clone.ID] = r.nextID
	saved := clone
	return &saved, nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *order
	clone.MediaRefs = append([]string{}, order.MediaRefs...)
	return &clone, nil
}

func (r *Repository) UpdateMedia(_ context.Context, id string, mediaRefs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return ports.ErrNotFound
	}
	order.MediaRefs = append([]string{}, mediaRefs...)
	return nil
}

func (r *Repository) UpdateStatus(_ context.Context, id string, status domain.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return ports.ErrNotFound
	}
	return order.Transition(status)
}

func (r *Repository) FindPendingByEmail(_ context.Context, email string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, order := range r.orders {
		if order.Email == email && order.AwaitingPayment() {
			clone := *order
			clone.MediaRefs = append([]string{}, order.MediaRefs...)
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *Repository) ListAll(_ context.Context) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		clone := *order
		clone.MediaRefs = append([]string{}, order.MediaRefs...)
		list = append(list, &clone)
	}
	// Newest first; insertion sequence breaks CreatedAt ties.
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return r.seq[list[i].ID] > r.seq[list[j].ID]
	})
	return list, nil
}
