package handlers

import (
	"restaurant-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/romana/rlog"
)

// Websocket upgrades an authenticated request onto the notification hub
func (h *Handler) Websocket(c *gin.Context) {
	if err := h.Hub.Serve(c.Writer, c.Request, middleware.GetUserID(c), middleware.GetRole(c)); err != nil {
		// the upgrader has already written the error response
		rlog.Warnf("websocket upgrade for user %d: %v", middleware.GetUserID(c), err)
	}
}
