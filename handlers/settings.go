package handlers

import (
	"net/http"
	"time"

	"restaurant-api/models"
	"restaurant-api/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type DayHoursRequest struct {
	Open  string `json:"open" binding:"required,hhmm"`
	Close string `json:"close" binding:"required,hhmm"`
}

type UpdateSettingsRequest struct {
	OpeningHours   map[string]*DayHoursRequest `json:"opening_hours" binding:"omitempty,dive"`
	ClosedDays     []string                    `json:"closed_days" binding:"omitempty,dive,datetime=2006-01-02"`
	DeliveryFee    *decimal.Decimal            `json:"delivery_fee"`
	MinOrderAmount *decimal.Decimal            `json:"min_order_amount"`
}

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// GetRestaurantStatus tells clients whether orders are being taken right now
func (h *Handler) GetRestaurantStatus(c *gin.Context) {
	status, err := h.Settings.Status(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	in := services.SettingsUpdate{
		ClosedDays:     req.ClosedDays,
		DeliveryFee:    req.DeliveryFee,
		MinOrderAmount: req.MinOrderAmount,
	}
	if req.OpeningHours != nil {
		hours := models.OpeningHours{}
		for day, w := range req.OpeningHours {
			if w == nil {
				hours[day] = nil
				continue
			}
			hours[day] = &models.DayHours{Open: w.Open, Close: w.Close}
		}
		in.OpeningHours = &hours
	}

	settings, err := h.Settings.Update(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated", "settings": settings})
}

func (h *Handler) ResetSettings(c *gin.Context) {
	settings, err := h.Settings.Reset(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings reset to defaults", "settings": settings})
}
