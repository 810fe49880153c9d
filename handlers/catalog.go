package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"restaurant-api/apperr"
	"restaurant-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListProducts returns the available menu (public)
func (h *Handler) ListProducts(c *gin.Context) {
	query := h.DB.Preload("Category").Where("is_available = ?", true)

	if category := c.Query("category"); category != "" {
		id, err := strconv.ParseUint(category, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category must be a numeric id"})
			return
		}
		query = query.Where("category_id = ?", id)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var products []models.Product
	if err := query.Order("category_id, name").Find(&products).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(products), "products": products})
}

// GetProduct returns a single product. Hidden products are still readable so old orders resolve.
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var product models.Product
	if err := h.DB.Preload("Category").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperr.ErrProductNotFound)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// ListCategories returns categories ordered by name (public)
func (h *Handler) ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := h.DB.Order("name").Find(&categories).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(categories), "categories": categories})
}
