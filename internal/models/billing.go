package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invoice states.
const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusFailed  = "failed"
	InvoiceStatusExpired = "expired"
)

// Invoice tracks a paid enrollment checkout.
type Invoice struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LmsID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"lms_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	OrderID     string     `gorm:"size:64;not null;uniqueIndex" json:"order_id"`
	AmountIDR   int64      `gorm:"column:amount_idr;not null" json:"amount_idr"`
	Status      string     `gorm:"size:16;not null;default:'pending'" json:"status"`
	SnapToken   string     `gorm:"size:255" json:"snap_token"`
	RedirectURL string     `gorm:"size:1024" json:"redirect_url"`
	PaidAt      *time.Time `json:"paid_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a UUID when missing.
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// IsSettled reports whether the invoice reached a terminal state.
func (i Invoice) IsSettled() bool {
	return i.Status != InvoiceStatusPending
}
