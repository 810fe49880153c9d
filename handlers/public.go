package handlers

import (
	"net/http"

	"restaurant-api/models"
	"restaurant-api/statemachine"

	"github.com/gin-gonic/gin"
)

// GetStateMachineInfo publishes the order lifecycle so clients can render valid actions
func GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"states":          models.AllStatuses,
		"transitions":     statemachine.GetAllTransitions(),
		"terminal_states": []models.OrderStatus{models.StatusDelivered, models.StatusCancelled},
		"description":     "Restaurant Order Lifecycle State Machine",
	})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Restaurant Ordering API",
		"version": "1.0.0",
	})
}

func Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the Restaurant Ordering API",
		"docs":    "/api/state-machine",
		"health":  "/health",
		"ws":      "/ws",
		"roles":   []models.UserRole{models.RoleUser, models.RoleAdmin},
	})
}
