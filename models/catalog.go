package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description"`
	Products    []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Product struct {
	ID          uint                        `json:"id" gorm:"primaryKey"`
	Name        string                      `json:"name" gorm:"not null"`
	Description string                      `json:"description"`
	Price       decimal.Decimal             `json:"price" gorm:"type:decimal(10,2);not null"`
	CategoryID  uint                        `json:"category_id" gorm:"not null;index"`
	Category    *Category                   `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Image       string                      `json:"image"`
	Ingredients datatypes.JSONSlice[string] `json:"ingredients"`
	Allergens   datatypes.JSONSlice[string] `json:"allergens"`
	IsAvailable bool                        `json:"is_available" gorm:"not null;index"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}
