package handlers

import (
	"net/http"

	"restaurant-api/apperr"
	"restaurant-api/middleware"
	"restaurant-api/models"
	"restaurant-api/services"

	"github.com/gin-gonic/gin"
)

// PlaceOrderRequest has no price fields: totals are always computed from the catalog
type PlaceOrderRequest struct {
	Items []struct {
		ProductID uint `json:"product_id" binding:"required"`
		Quantity  int  `json:"quantity" binding:"required,min=1"`
	} `json:"items" binding:"required,min=1,dive"`
	DeliveryType    models.DeliveryType `json:"delivery_type" binding:"required,delivery_type"`
	DeliveryAddress string              `json:"delivery_address"`
	PaymentMethodID string              `json:"payment_method_id"`
}

// PlaceOrder creates a pending order and charges it when a payment method is supplied
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	in := services.PlaceOrderInput{
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethodID: req.PaymentMethodID,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, services.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.Orders.Place(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		if order != nil && apperr.KindOf(err) == apperr.KindPaymentFailed {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":    apperr.PublicMessage(err),
				"order_id": order.ID,
				"order":    order,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "order": order})
}

// GetMyOrders pages through the caller's orders
func (h *Handler) GetMyOrders(c *gin.Context) {
	q := services.ListOrdersQuery{
		Page:   queryInt(c, "page", 1, 1, 1<<20),
		Limit:  queryInt(c, "limit", 10, 1, 100),
		Status: models.OrderStatus(c.Query("status")),
	}
	orders, total, err := h.Orders.ListForUser(c.Request.Context(), middleware.GetUserID(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	pages := (total + int64(q.Limit) - 1) / int64(q.Limit)
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"pagination": gin.H{
			"page":  q.Page,
			"limit": q.Limit,
			"total": total,
			"pages": pages,
		},
	})
}

// GetOrderDetail returns a single order with lines and history; admins can read any order
func (h *Handler) GetOrderDetail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.Orders.GetForUser(c.Request.Context(), middleware.GetUserID(c), middleware.GetRole(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder lets the owner cancel any order that is not finished
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.Orders.Cancel(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order": order})
}
