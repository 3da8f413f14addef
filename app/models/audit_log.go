package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AuditActionRefund             = "order_refunded"
	AuditActionEntitlementGranted = "entitlement_granted"
	AuditActionEntitlementRevoked = "entitlement_revoked"
)

// AuditLog keeps a permanent record of state transitions that money or
// access depend on: refunds and manual entitlement corrections.
type AuditLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Actor         string    `gorm:"type:varchar(100);not null" json:"actor"`
	Action        string    `gorm:"type:varchar(50);not null;index" json:"action"`
	OrderID       *uint     `gorm:"index" json:"order_id,omitempty"`
	EntitlementID *uint     `gorm:"index" json:"entitlement_id,omitempty"`
	Detail        string    `gorm:"type:text" json:"detail"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// CreateAuditLog persists a single audit entry.
func CreateAuditLog(db *gorm.DB, entry *AuditLog) error {
	return db.Create(entry).Error
}
