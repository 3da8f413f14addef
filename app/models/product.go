package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Product is a purchasable catalog entry. Price is stored in minor currency
// units exactly as the payment provider reports it.
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Slug        string         `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug" validate:"required,min=2,max=200"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null;default:0" json:"price" validate:"gte=0"`
	Currency    string         `gorm:"type:varchar(3);not null;default:'AUD'" json:"currency" validate:"len=3"`
	Active      bool           `gorm:"default:true;index" json:"active"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Product) Validate() error {
	v := validator.New()

	return v.Struct(p)
}
