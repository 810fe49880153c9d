package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a restaurant order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

func (d DeliveryType) Valid() bool {
	return d == DeliveryTypeDelivery || d == DeliveryTypePickup
}

type Order struct {
	ID              uint                 `json:"id" gorm:"primaryKey"`
	UserID          uint                 `json:"user_id" gorm:"not null;index"`
	User            *User                `json:"user,omitempty" gorm:"foreignKey:UserID"`
	TotalPrice      decimal.Decimal      `json:"total_price" gorm:"type:decimal(10,2);not null"`
	DeliveryType    DeliveryType         `json:"delivery_type" gorm:"not null"`
	Status          OrderStatus          `json:"status" gorm:"not null;index;default:'pending'"`
	DeliveryAddress *string              `json:"delivery_address"`
	PaymentRef      string               `json:"payment_ref,omitempty" gorm:"index"`
	Items           []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory   []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	ProductID uint            `json:"product_id" gorm:"not null;index"`
	Product   *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Name      string          `json:"name"` // snapshot name
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"` // snapshot price at time of order
}

// LineTotal is unit price times quantity
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusHistory records every status change with who made it
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	Actor      string      `json:"actor" gorm:"not null"`
	ChangedBy  *uint       `json:"changed_by"` // nil when the payment gateway drove the change
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
