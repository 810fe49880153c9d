package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) StatsOverview(c *gin.Context) {
	overview, err := h.Stats.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *Handler) SalesByDay(c *gin.Context) {
	days, err := h.Stats.SalesByDay(c.Request.Context(), queryInt(c, "days", 7, 1, 366))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

func (h *Handler) TopProducts(c *gin.Context) {
	products, err := h.Stats.TopProducts(c.Request.Context(), queryInt(c, "limit", 10, 1, 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) ActiveHours(c *gin.Context) {
	hours, err := h.Stats.ActiveHours(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hours": hours})
}

// SalesReport covers delivered orders between ?from and ?to, both YYYY-MM-DD and inclusive
func (h *Handler) SalesReport(c *gin.Context) {
	report, err := h.Stats.SalesReport(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
