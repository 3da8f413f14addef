package models

import "time"

// OrderLineItem snapshots a purchased product at checkout time. ProductName
// and Amount are copied on creation and never re-read from the live product,
// so historical orders stay accurate when the catalog changes.
type OrderLineItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	ProductName string    `gorm:"type:varchar(200);not null" json:"product_name"`
	Amount      int64     `gorm:"not null;default:0" json:"amount"`
	Currency    string    `gorm:"type:varchar(3);not null" json:"currency"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
