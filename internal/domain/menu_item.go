package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID          uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description *string         `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Category    string          `json:"category" gorm:"size:100;not null;index"`
	ImageURL    *string         `json:"imageUrl" gorm:"size:500"`
	Available   bool            `json:"available" gorm:"not null;default:true"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"autoCreateTime"`
}

type CartItem struct {
	ID         uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     uint64    `json:"userId" gorm:"not null;uniqueIndex:idx_cart_user_item"`
	MenuItemID uint64    `json:"menuItemId" gorm:"not null;uniqueIndex:idx_cart_user_item"`
	Quantity   int64     `json:"quantity" gorm:"not null;default:1"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
