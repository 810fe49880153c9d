package handlers

import (
	"errors"
	"net/http"

	"restaurant-api/middleware"
	"restaurant-api/models"
	"restaurant-api/services"

	"github.com/gin-gonic/gin"
	"github.com/romana/rlog"
	"gorm.io/gorm"
)

// adminOrderView adds the customer contact details staff need at the counter
type adminOrderView struct {
	models.Order
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

// AdminGetAllOrders returns orders across customers with a per-status summary
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	q := services.AdminOrdersQuery{
		Status: models.OrderStatus(c.Query("status")),
		Limit:  queryInt(c, "limit", 50, 1, 100),
		Offset: queryInt(c, "offset", 0, 0, 1<<30),
	}
	orders, total, summary, err := h.Orders.ListAll(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]adminOrderView, 0, len(orders))
	for _, o := range orders {
		v := adminOrderView{Order: o}
		if o.User != nil {
			v.CustomerName = o.User.FullName()
			v.CustomerPhone = o.User.Phone
			v.Order.User = nil
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":  views,
		"total":   total,
		"summary": summary,
	})
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,order_status"`
	Note   string             `json:"note"`
}

// AdminUpdateOrderStatus moves an order along the kitchen flow
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := h.Orders.UpdateStatus(c.Request.Context(), middleware.GetUserID(c), id, req.Status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": order})
}

// AdminGetAllUsers lists accounts, optionally filtered by role or a name/email search
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	query := h.DB.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		if !models.UserRole(role).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be user or admin"})
			return
		}
		query = query.Where("role = ?", role)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like)
	}
	var users []models.User
	if err := query.Order("id").Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

func (h *Handler) findUser(c *gin.Context) (*models.User, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	if id == middleware.GetUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot change your own account here"})
		return nil, false
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return &user, true
}

type UpdateRoleRequest struct {
	Role models.UserRole `json:"role" binding:"required,user_role"`
}

func (h *Handler) AdminUpdateUserRole(c *gin.Context) {
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, ok := h.findUser(c)
	if !ok {
		return
	}
	if err := h.DB.Model(user).Update("role", req.Role).Error; err != nil {
		respondError(c, err)
		return
	}
	user.Role = req.Role
	rlog.Infof("Admin %d set role of user %d to %s", middleware.GetUserID(c), user.ID, req.Role)
	c.JSON(http.StatusOK, gin.H{"message": "Role updated", "user": user})
}

// AdminToggleUserStatus activates or deactivates an account
func (h *Handler) AdminToggleUserStatus(c *gin.Context) {
	user, ok := h.findUser(c)
	if !ok {
		return
	}
	active := !user.IsActive
	if err := h.DB.Model(user).Update("is_active", active).Error; err != nil {
		respondError(c, err)
		return
	}
	user.IsActive = active
	rlog.Infof("Admin %d set user %d active=%t", middleware.GetUserID(c), user.ID, user.IsActive)
	c.JSON(http.StatusOK, gin.H{"message": "User status updated", "user": user})
}
