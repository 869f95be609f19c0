package migrations

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run applies the schema for the orders bounded context. Intended to replace
// adapter-level automigrate in deployments that run migrations separately.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(&orderRecord{})
}

// Order schema mirrors the orders Postgres adapter. The partial unique index
// on email admits at most one AwaitingPayment order per customer.
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
