package models

import "time"

const (
	NotificationKindPurchaseConfirmation = "purchase_confirmation"
	NotificationKindRefundConfirmation   = "refund_confirmation"

	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)

// NotificationLog records every outbound confirmation email attempt.
// Delivery failures land here instead of surfacing to the payment flow:
// access is the guarantee, the email is a convenience.
type NotificationLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Recipient string    `gorm:"type:varchar(200);not null" json:"recipient"`
	Kind      string    `gorm:"type:varchar(40);not null;index" json:"kind"`
	OrderID   *uint     `gorm:"index" json:"order_id,omitempty"`
	Status    string    `gorm:"type:varchar(20);not null;index" json:"status"`
	Error     string    `gorm:"type:text" json:"error"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
