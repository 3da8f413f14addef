package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Revocation reasons stamped on deactivated entitlements.
const (
	RevokeReasonRefund  = "refund"
	RevokeReasonExpired = "expired"
	RevokeReasonManual  = "manual"
)

// Entitlement is the durable record that a user may access a product. There
// is at most one row per (user_id, product_id) pair, ever: a repurchase
// reactivates the existing row, a revocation deactivates it but never deletes
// it. The row is the permanent audit trail of the user/product relationship.
type Entitlement struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	UserID    uint    `gorm:"not null;index:ux_entitlements_user_product,unique,priority:1" json:"user_id"`
	ProductID uint    `gorm:"not null;index:ux_entitlements_user_product,unique,priority:2" json:"product_id"`
	Product   Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	// OrderID points at the order that currently justifies the grant. It is
	// nil for manual admin grants.
	OrderID      *uint      `gorm:"index" json:"order_id,omitempty"`
	Active       bool       `gorm:"default:false;index" json:"active"`
	ExpiresAt    *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	RevokedAt    *time.Time `gorm:"type:timestamp;default:null" json:"revoked_at,omitempty"`
	RevokeReason string     `gorm:"type:varchar(100);default:''" json:"revoke_reason"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsExpired reports whether the entitlement carries an expiry in the past.
func (e *Entitlement) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// UpsertEntitlement grants or reactivates the single entitlement row for the
// (user, product) pair in one conditional write: on conflict the existing row
// is flipped back to active, attached to the new order and its revocation
// fields are cleared. Both the fulfillment pipeline and the admin grant path
// funnel through this helper so they cannot diverge in behavior.
func UpsertEntitlement(db *gorm.DB, e *Entitlement) error {
	e.Active = true
	e.RevokedAt = nil
	e.RevokeReason = ""

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "product_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"active":        true,
			"order_id":      e.OrderID,
			"expires_at":    e.ExpiresAt,
			"revoked_at":    nil,
			"revoke_reason": "",
			"updated_at":    time.Now(),
		}),
	}).Create(e).Error; err != nil {
		return err
	}

	// Ensure ID and timestamps are populated after upsert.
	return db.Where("user_id = ? AND product_id = ?", e.UserID, e.ProductID).
		First(e).Error
}

// DeactivateEntitlementsByOrder revokes every active entitlement granted by
// the given order. The order_id match is deliberate: if a later order already
// reactivated the pair row (and repointed order_id), a delayed refund of the
// earlier order must not destroy that access.
func DeactivateEntitlementsByOrder(db *gorm.DB, orderID uint, reason string, at time.Time) (int64, error) {
	tx := db.Model(&Entitlement{}).
		Where("order_id = ? AND active = ?", orderID, true).
		Updates(map[string]interface{}{
			"active":        false,
			"revoked_at":    at,
			"revoke_reason": reason,
		})
	return tx.RowsAffected, tx.Error
}

// DeactivateEntitlementByPair revokes the active entitlement for a
// (user, product) pair. Used by the admin revoke path.
func DeactivateEntitlementByPair(db *gorm.DB, userID, productID uint, reason string, at time.Time) (bool, error) {
	tx := db.Model(&Entitlement{}).
		Where("user_id = ? AND product_id = ? AND active = ?", userID, productID, true).
		Updates(map[string]interface{}{
			"active":        false,
			"revoked_at":    at,
			"revoke_reason": reason,
		})
	return tx.RowsAffected > 0, tx.Error
}

// RevokeEntitlementIfExpired flips an expired entitlement to inactive. The
// WHERE clause re-checks activity and expiry so two concurrent access checks
// cannot double-apply the revocation.
func RevokeEntitlementIfExpired(db *gorm.DB, entitlementID uint, at time.Time) (bool, error) {
	tx := db.Model(&Entitlement{}).
		Where("id = ? AND active = ? AND expires_at IS NOT NULL AND expires_at <= ?", entitlementID, true, at).
		Updates(map[string]interface{}{
			"active":        false,
			"revoked_at":    at,
			"revoke_reason": RevokeReasonExpired,
		})
	return tx.RowsAffected > 0, tx.Error
}
