package handlers

import (
	"net/http"

	"restaurant-api/middleware"

	"github.com/gin-gonic/gin"
)

type RedeemRequest struct {
	Points int64 `json:"points" binding:"required,min=1"`
}

func (h *Handler) GetLoyaltyPoints(c *gin.Context) {
	balance, err := h.Loyalty.Balance(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *Handler) GetLoyaltyHistory(c *gin.Context) {
	entries, err := h.Loyalty.History(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "transactions": entries})
}

// RedeemPoints converts points into a discount amount
func (h *Handler) RedeemPoints(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Loyalty.Redeem(c.Request.Context(), middleware.GetUserID(c), req.Points)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
