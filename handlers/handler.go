package handlers

import (
	"net/http"
	"strconv"

	"restaurant-api/apperr"
	"restaurant-api/config"
	"restaurant-api/payment"
	"restaurant-api/realtime"
	"restaurant-api/services"

	"github.com/gin-gonic/gin"
	"github.com/romana/rlog"
	"gorm.io/gorm"
)

// Handler carries the dependencies every endpoint needs
type Handler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Orders   *services.OrderService
	Loyalty  *services.LoyaltyService
	Settings *services.SettingsService
	Stats    *services.StatsService
	Payments payment.Gateway
	Hub      *realtime.Hub
}

func New(db *gorm.DB, cfg *config.Config, gateway payment.Gateway, hub *realtime.Hub) (*Handler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	loyalty := services.NewLoyaltyService(db)
	orders := services.NewOrderService(db, gateway, hub, loyalty, cfg.PaymentCurrency)
	hub.SetAuthorizer(orders.CanFollow)
	return &Handler{
		DB:       db,
		Cfg:      cfg,
		Orders:   orders,
		Loyalty:  loyalty,
		Settings: services.NewSettingsService(db, loc),
		Stats:    services.NewStatsService(db, loc),
		Payments: gateway,
		Hub:      hub,
	}, nil
}

// respondError maps a service error onto its HTTP status
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		rlog.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// paramID reads a positive numeric path parameter, answering 400 when it is not one
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// queryInt reads an integer query parameter clamped to [min, max]
func queryInt(c *gin.Context, key string, def, min, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
