package handlers

import (
	"errors"
	"net/http"
	"strings"

	"restaurant-api/apperr"
	"restaurant-api/models"

	"github.com/gin-gonic/gin"
	"github.com/romana/rlog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ── Products ────────────────────────────────────────────────────────────────

type ProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  uint            `json:"category_id" binding:"required"`
	Image       string          `json:"image"`
	Ingredients []string        `json:"ingredients"`
	Allergens   []string        `json:"allergens"`
	IsAvailable *bool           `json:"is_available"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *uint            `json:"category_id"`
	Image       *string          `json:"image"`
	Ingredients []string         `json:"ingredients"`
	Allergens   []string         `json:"allergens"`
	IsAvailable *bool            `json:"is_available"`
}

func (h *Handler) categoryExists(id uint) (bool, error) {
	var count int64
	err := h.DB.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (h *Handler) findProduct(c *gin.Context) (*models.Product, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperr.ErrProductNotFound)
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return &product, true
}

// AdminListProducts includes hidden products
func (h *Handler) AdminListProducts(c *gin.Context) {
	var products []models.Product
	if err := h.DB.Preload("Category").Order("category_id, name").Find(&products).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(products), "products": products})
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !req.Price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be greater than 0"})
		return
	}
	exists, err := h.categoryExists(req.CategoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category does not exist"})
		return
	}

	product := models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price.Round(2),
		CategoryID:  req.CategoryID,
		Image:       req.Image,
		Ingredients: datatypes.JSONSlice[string](req.Ingredients),
		Allergens:   datatypes.JSONSlice[string](req.Allergens),
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		respondError(c, err)
		return
	}
	rlog.Infof("Product %d created", product.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "Product created", "product": product})
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	product, ok := h.findProduct(c)
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be greater than 0"})
			return
		}
		product.Price = req.Price.Round(2)
	}
	if req.CategoryID != nil {
		exists, err := h.categoryExists(*req.CategoryID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category does not exist"})
			return
		}
		product.CategoryID = *req.CategoryID
	}
	if req.Image != nil {
		product.Image = *req.Image
	}
	if req.Ingredients != nil {
		product.Ingredients = datatypes.JSONSlice[string](req.Ingredients)
	}
	if req.Allergens != nil {
		product.Allergens = datatypes.JSONSlice[string](req.Allergens)
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}

	if err := h.DB.Save(product).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated", "product": product})
}

// DeleteProduct removes a product, or hides it when past orders still point at it
func (h *Handler) DeleteProduct(c *gin.Context) {
	product, ok := h.findProduct(c)
	if !ok {
		return
	}
	var refs int64
	if err := h.DB.Model(&models.OrderItem{}).Where("product_id = ?", product.ID).Count(&refs).Error; err != nil {
		respondError(c, err)
		return
	}
	if refs > 0 {
		if err := h.DB.Model(product).Update("is_available", false).Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product is referenced by orders and was hidden instead", "hidden": true})
		return
	}
	if err := h.DB.Delete(product).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted", "hidden": false})
}

// ── Categories ──────────────────────────────────────────────────────────────

type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) nameTaken(name string, exceptID uint) (bool, error) {
	var count int64
	err := h.DB.Model(&models.Category{}).Where("name = ? AND id <> ?", name, exceptID).Count(&count).Error
	return count > 0, err
}

func (h *Handler) AdminListCategories(c *gin.Context) {
	var categories []models.Category
	if err := h.DB.Preload("Products").Order("name").Find(&categories).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(categories), "categories": categories})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	taken, err := h.nameTaken(name, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Category name already exists"})
		return
	}
	category := models.Category{Name: name, Description: req.Description}
	if err := h.DB.Create(&category).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Category created", "category": category})
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		respondError(c, apperr.ErrCategoryNotFound)
		return
	}
	name := strings.TrimSpace(req.Name)
	taken, err := h.nameTaken(name, category.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Category name already exists"})
		return
	}
	category.Name = name
	category.Description = req.Description
	if err := h.DB.Save(&category).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category updated", "category": category})
}

// DeleteCategory refuses while products still belong to the category
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		respondError(c, apperr.ErrCategoryNotFound)
		return
	}
	var products int64
	if err := h.DB.Model(&models.Product{}).Where("category_id = ?", category.ID).Count(&products).Error; err != nil {
		respondError(c, err)
		return
	}
	if products > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Category still has products", "products": products})
		return
	}
	if err := h.DB.Delete(&category).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}
