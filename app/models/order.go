package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusRefunded  = "refunded"
	OrderStatusFailed    = "failed"
)

// Order records one completed checkout. It is created exactly once by the
// fulfillment pipeline (already in status completed) and mutated at most once
// more, to refunded, by the reversal pipeline. Rows are never deleted.
type Order struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UUID     string `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"uuid"`
	UserID   *uint  `gorm:"index" json:"user_id,omitempty"`
	Status   string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Total    int64  `gorm:"not null;default:0" json:"total"`
	Currency string `gorm:"type:varchar(3);not null" json:"currency"`
	// Secondary idempotency key: a second fulfillment attempt for the same
	// checkout session finds this row and returns without writing.
	ProviderSessionID string          `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_session_id"`
	ProviderPaymentID *string         `gorm:"type:varchar(191);uniqueIndex" json:"provider_payment_id,omitempty"`
	CustomerEmail     string          `gorm:"type:varchar(200);not null" json:"customer_email"`
	CustomerName      string          `gorm:"type:varchar(200);default:''" json:"customer_name"`
	FulfilledAt       *time.Time      `gorm:"type:timestamp;default:null" json:"fulfilled_at,omitempty"`
	RefundedAt        *time.Time      `gorm:"type:timestamp;default:null" json:"refunded_at,omitempty"`
	LineItems         []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
	Entitlements      []Entitlement   `gorm:"foreignKey:OrderID" json:"entitlements,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the public UUID when none was set.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == "" {
		o.UUID = uuid.New().String()
	}
	return nil
}

// IsRefunded reports whether the order already reached its terminal refunded state.
func (o *Order) IsRefunded() bool {
	return o.Status == OrderStatusRefunded
}

// FindOrderByProviderSessionID looks an order up by the provider checkout session id.
func FindOrderByProviderSessionID(db *gorm.DB, sessionID string) (*Order, error) {
	var order Order
	if err := db.Where("provider_session_id = ?", sessionID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderByProviderPaymentID looks an order up by the provider payment/charge id.
func FindOrderByProviderPaymentID(db *gorm.DB, paymentID string) (*Order, error) {
	var order Order
	if err := db.Where("provider_payment_id = ?", paymentID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
