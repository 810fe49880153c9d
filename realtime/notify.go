package realtime

import (
	"time"

	"restaurant-api/models"

	"github.com/shopspring/decimal"
)

// OrderUpdate is the payload of order-updated
type OrderUpdate struct {
	OrderID   uint               `json:"order_id"`
	Status    models.OrderStatus `json:"status"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewOrderAlert is the payload of new-order
type NewOrderAlert struct {
	OrderID      uint                `json:"order_id"`
	UserID       uint                `json:"user_id"`
	TotalPrice   decimal.Decimal     `json:"total_price"`
	DeliveryType models.DeliveryType `json:"delivery_type"`
	ItemCount    int                 `json:"item_count"`
	CreatedAt    time.Time           `json:"created_at"`
}

// OrderUpdated tells the order's followers and every session of its owner about a status change
func (h *Hub) OrderUpdated(order *models.Order) {
	update := OrderUpdate{OrderID: order.ID, Status: order.Status, UpdatedAt: order.UpdatedAt}
	h.Publish(OrderRoom(order.ID), EventOrderUpdated, update)
	h.Publish(UserRoom(order.UserID), EventOrderUpdated, update)
}

// NewOrder alerts staff that a paid order is waiting
func (h *Hub) NewOrder(order *models.Order) {
	items := 0
	for _, item := range order.Items {
		items += item.Quantity
	}
	h.Publish(AdminRoom, EventNewOrder, NewOrderAlert{
		OrderID:      order.ID,
		UserID:       order.UserID,
		TotalPrice:   order.TotalPrice,
		DeliveryType: order.DeliveryType,
		ItemCount:    items,
		CreatedAt:    order.CreatedAt,
	})
}
