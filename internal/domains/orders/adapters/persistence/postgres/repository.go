package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in PostgreSQL using GORM. A partial unique index
// on (email) WHERE payment_status = 'AwaitingPayment' backs the advisory
// duplicate-pending check, so concurrent identical requests cannot both
// reserve a row.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	repo := &Repository{db: db}
	if db != nil {
		_ = db.AutoMigrate(&orderRecord{})
	}
	return repo
}

// orderRecord maps the order aggregate to a relational table.
type orderRecord struct {
	ID        string         `gorm:"primaryKey;column:id;type:varchar(64)"`
	Email     string         `gorm:"column:email;index;uniqueIndex:idx_orders_pending_email,where:payment_status = 'AwaitingPayment'"`
	Package   string         `gorm:"column:package;type:varchar(32)"`
	MediaRefs pq.StringArray `gorm:"column:media_refs;type:text[]"`
	Status    string         `gorm:"column:payment_status;type:varchar(32);index"`
	CreatedAt time.Time      `gorm:"column:created_at;index"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// Insert reserves a new order row and assigns its identifier. A violation of
// the pending-email constraint surfaces as ports.ErrDuplicatePending.
func (r *Repository) Insert(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toRecord(order)
	record.ID = uuid.NewString()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ports.ErrDuplicatePending
		}
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID fetches an order by identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// UpdateMedia replaces the stored media addresses.
func (r *Repository) UpdateMedia(ctx context.Context, id string, mediaRefs []string) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"media_refs": pq.StringArray(mediaRefs),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// UpdateStatus applies a forward-only transition with a compare-and-swap on
// the status that was read, so a concurrent writer who commits first wins and
// the loser sees the conflict instead of overwriting a terminal state.
// Re-writing the current status is a no-op success.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order.PaymentStatus == status {
		return nil
	}
	prior := order.PaymentStatus
	if err := order.Transition(status); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND payment_status = ?", id, string(prior)).
		Updates(map[string]any{
			"payment_status": string(status),
			"updated_at":     gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// A concurrent writer finished first; idempotent only if it wrote
		// the same terminal state.
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.PaymentStatus != status {
			return domain.ErrInvalidTransition
		}
	}
	return nil
}

// FindPendingByEmail returns the open reservation for the email, or nil.
func (r *Repository) FindPendingByEmail(ctx context.Context, email string) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	err := r.db.WithContext(ctx).
		Where("email = ? AND payment_status = ?", email, string(domain.StatusAwaitingPayment)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// ListAll returns every order, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	return orderRecord{
		ID:        order.ID,
		Email:     order.Email,
		Package:   string(order.Package),
		MediaRefs: pq.StringArray(order.MediaRefs),
		Status:    string(order.PaymentStatus),
		CreatedAt: order.CreatedAt,
	}
}

func (r orderRecord) toDomain() *domain.Order {
	return &domain.Order{
		ID:            r.ID,
		Email:         r.Email,
		Package:       domain.Package(r.Package),
		MediaRefs:     append([]string{}, r.MediaRefs...),
		PaymentStatus: domain.PaymentStatus(r.Status),
		CreatedAt:     r.CreatedAt,
	}
}
