package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"restaurant-api/config"
	"restaurant-api/handlers"
	"restaurant-api/middleware"
	"restaurant-api/models"
	"restaurant-api/payment"
	"restaurant-api/realtime"
	"restaurant-api/routes"
	"restaurant-api/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test_secret"

var registerOnce sync.Once

type server struct {
	t        *testing.T
	db       *gorm.DB
	cfg      *config.Config
	router   *gin.Engine
	customer *models.User
	admin    *models.User
	burger   *models.Product
	fries    *models.Product
}

func newServer(t *testing.T) *server {
	t.Helper()
	return newServerWithGateway(t, payment.NewSimulatedGateway(1000, webhookSecret))
}

func newServerWithGateway(t *testing.T, gateway payment.Gateway) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registerOnce.Do(func() { require.NoError(t, handlers.RegisterValidators()) })

	db := testutil.NewDB(t)
	cfg := config.Default()
	cfg.RestaurantTimezone = "UTC"

	h, err := handlers.New(db, cfg, gateway, realtime.NewHub(nil))
	require.NoError(t, err)
	r := gin.New()
	r.Use(middleware.Recovery())
	routes.SetupRoutes(r, h)

	s := &server{t: t, db: db, cfg: cfg, router: r}
	s.customer = testutil.CreateUser(t, db, "jane@example.com", models.RoleUser, 0)
	s.admin = testutil.CreateUser(t, db, "chef@example.com", models.RoleAdmin, 0)
	cat := testutil.CreateCategory(t, db, "Mains")
	s.burger = testutil.CreateProduct(t, db, cat.ID, "Burger", "5.00")
	s.fries = testutil.CreateProduct(t, db, cat.ID, "Fries", "3.50")
	return s
}

func (s *server) token(u *models.User) string {
	tok, err := middleware.GenerateToken(u, s.cfg.JWTSecret, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *server) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *server) basket() map[string]interface{} {
	return map[string]interface{}{
		"delivery_type": "pickup",
		"items": []map[string]interface{}{
			{"product_id": s.burger.ID, "quantity": 2, "price": 0.01},
			{"product_id": s.fries.ID, "quantity": 1},
		},
	}
}

func (s *server) placeOrder() uint {
	w := s.do(http.MethodPost, "/api/orders", s.token(s.customer), s.basket())
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(s.t, w)["order"].(map[string]interface{})
	return uint(order["id"].(float64))
}

func (s *server) webhook(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) createIntent(orderID uint) string {
	w := s.do(http.MethodPost, "/api/payments/intent", s.token(s.customer), map[string]uint{"order_id": orderID})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode(s.t, w)["payment_intent_id"].(string)
}

func succeededEvent(intentID string) []byte {
	return []byte(fmt.Sprintf(`{"type":"payment_intent.succeeded","intent_id":%q}`, intentID))
}

func (s *server) orderStatus(id uint) models.OrderStatus {
	var order models.Order
	require.NoError(s.t, s.db.First(&order, id).Error)
	return order.Status
}

func (s *server) points() int64 {
	var u models.User
	require.NoError(s.t, s.db.First(&u, s.customer.ID).Error)
	return u.LoyaltyPoints
}

func TestRegisterLoginAndProfile(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "New@Example.com", "password": "longenough", "first_name": "Ann", "last_name": "Lee",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "new@example.com", "password": "longenough", "first_name": "Ann", "last_name": "Lee",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "short@example.com", "password": "short", "first_name": "Ann", "last_name": "Lee",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "longenough"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPut, "/api/auth/me", token, map[string]string{"phone": "555-0101"})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "555-0101", decode(t, w)["user"].(map[string]interface{})["phone"])
}

func TestInactiveUserCannotLogin(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodPut, fmt.Sprintf("/api/admin/users/%d/toggle-status", s.customer.ID), s.token(s.admin), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": s.customer.Email, "password": testutil.Password})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/admin/users/%d/toggle-status", s.admin.ID), s.token(s.admin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "admins cannot deactivate themselves")
}

func TestPlaceOrderIgnoresClientPrices(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodPost, "/api/orders", s.token(s.customer), s.basket())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	order := decode(t, w)["order"].(map[string]interface{})
	assert.Equal(t, 13.5, order["total_price"])
	assert.Equal(t, "pending", order["status"])
	assert.Len(t, order["items"], 2)

	var stored models.Order
	require.NoError(t, s.db.First(&stored, uint(order["id"].(float64))).Error)
	assert.Equal(t, "13.50", stored.TotalPrice.StringFixed(2))
}

func TestPlaceOrderErrors(t *testing.T) {
	s := newServer(t)
	token := s.token(s.customer)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/orders", "", s.basket()).Code)

	bad := s.basket()
	bad["delivery_type"] = "teleport"
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/orders", token, bad).Code)

	delivery := s.basket()
	delivery["delivery_type"] = "delivery"
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/orders", token, delivery).Code)

	unknown := map[string]interface{}{
		"delivery_type": "pickup",
		"items":         []map[string]interface{}{{"product_id": 999, "quantity": 1}},
	}
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/orders", token, unknown).Code)

	declined := s.basket()
	declined["payment_method_id"] = payment.DeclinedPaymentMethod
	w := s.do(http.MethodPost, "/api/orders", token, declined)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decode(t, w)
	assert.NotZero(t, body["order_id"])
	assert.Equal(t, "pending", body["order"].(map[string]interface{})["status"])
}

func TestCancelAcrossStatuses(t *testing.T) {
	s := newServer(t)
	token := s.token(s.customer)

	for _, status := range models.AllStatuses {
		t.Run(string(status), func(t *testing.T) {
			order := testutil.CreateOrder(t, s.db, s.customer.ID, status, "10.00")
			w := s.do(http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", order.ID), token, nil)
			if status.Terminal() {
				assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			} else {
				assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
			}
		})
	}

	other := testutil.CreateUser(t, s.db, "other@example.com", models.RoleUser, 0)
	order := testutil.CreateOrder(t, s.db, s.customer.ID, models.StatusPending, "10.00")
	w := s.do(http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", order.ID), s.token(other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminDeliversThenCustomerCannotCancel(t *testing.T) {
	s := newServer(t)
	order := testutil.CreateOrder(t, s.db, s.customer.ID, models.StatusReady, "13.50")
	path := fmt.Sprintf("/api/admin/orders/%d/status", order.ID)

	w := s.do(http.MethodPut, path, s.token(s.customer), map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, path, s.token(s.admin), map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, path, s.token(s.admin), map[string]string{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "delivered", decode(t, w)["order"].(map[string]interface{})["status"])

	w = s.do(http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", order.ID), s.token(s.customer), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/admin/orders?status=delivered", s.token(s.admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	listed := body["orders"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Test User", listed["customer_name"])
	assert.Equal(t, float64(1), body["summary"].(map[string]interface{})["delivered"])
}

func TestOrderDetailIsStable(t *testing.T) {
	s := newServer(t)
	id := s.placeOrder()
	path := fmt.Sprintf("/api/orders/%d", id)

	first := s.do(http.MethodGet, path, s.token(s.customer), nil)
	second := s.do(http.MethodGet, path, s.token(s.customer), nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, path, s.token(s.admin), nil).Code)
	stranger := testutil.CreateUser(t, s.db, "stranger@example.com", models.RoleUser, 0)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, path, s.token(stranger), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/orders/9999", s.token(s.customer), nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/orders/abc", s.token(s.customer), nil).Code)
}

func TestListMyOrdersPaginates(t *testing.T) {
	s := newServer(t)
	for i := 0; i < 3; i++ {
		testutil.CreateOrder(t, s.db, s.customer.ID, models.StatusPending, "5.00")
	}
	w := s.do(http.MethodGet, "/api/orders?page=2&limit=2", s.token(s.customer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["orders"], 1)
	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["total"])
	assert.Equal(t, float64(2), pagination["pages"])
}

func TestIntentAndWebhookFlow(t *testing.T) {
	s := newServer(t)
	id := s.placeOrder()
	token := s.token(s.customer)

	w := s.do(http.MethodPost, "/api/payments/intent", token, map[string]uint{"order_id": id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	intent := decode(t, w)
	assert.Equal(t, 13.5, intent["amount"])
	intentID := intent["payment_intent_id"].(string)

	payload := succeededEvent(intentID)
	assert.Equal(t, http.StatusBadRequest, s.webhook(payload, "forged").Code)
	assert.Equal(t, int64(0), s.points())

	for i := 0; i < 2; i++ {
		rec := s.webhook(payload, payment.Sign(webhookSecret, payload))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	}
	assert.Equal(t, int64(13), s.points())

	var earned int64
	s.db.Model(&models.LoyaltyTransaction{}).Where("user_id = ? AND type = ?", s.customer.ID, models.LoyaltyEarned).Count(&earned)
	assert.Equal(t, int64(1), earned)

	w = s.do(http.MethodGet, "/api/payments/status/"+intentID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "succeeded", decode(t, w)["status"])

	w = s.do(http.MethodPost, "/api/payments/intent", token, map[string]uint{"order_id": id})
	assert.Equal(t, http.StatusBadRequest, w.Code, "confirmed orders take no new intents")

	// the client-side confirm is idempotent with the webhook
	w = s.do(http.MethodPost, "/api/payments/confirm", token, map[string]interface{}{"order_id": id, "payment_intent_id": intentID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(13), s.points())
}

func TestLoyaltyEndpoints(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.db.Model(s.customer).Update("loyalty_points", 150).Error)
	token := s.token(s.customer)

	w := s.do(http.MethodGet, "/api/loyalty/points", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"points":150,"redeemable_amount":10}`, w.Body.String())
	assert.Contains(t, w.Body.String(), `"redeemable_amount":10.00`)

	w = s.do(http.MethodPost, "/api/loyalty/redeem", token, map[string]int{"points": 100})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"points_redeemed":100,"remaining_points":50,"discount":10}`, w.Body.String())
	assert.Contains(t, w.Body.String(), `"discount":10.00`)

	w = s.do(http.MethodPost, "/api/loyalty/redeem", token, map[string]int{"points": 100})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "insufficient loyalty points", decode(t, w)["error"])

	w = s.do(http.MethodPost, "/api/loyalty/redeem", token, map[string]int{"points": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/loyalty/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode(t, w)["transactions"].([]interface{})
	require.Len(t, history, 1)
	assert.Equal(t, float64(-100), history[0].(map[string]interface{})["points"])
}

func TestCatalogAdministration(t *testing.T) {
	s := newServer(t)
	admin := s.token(s.admin)

	w := s.do(http.MethodPost, "/api/admin/products", admin, map[string]interface{}{
		"name": "Salad", "price": "0", "category_id": s.burger.CategoryID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/admin/products", admin, map[string]interface{}{
		"name": "Salad", "price": "7.25", "category_id": 999,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/admin/products", admin, map[string]interface{}{
		"name": "Salad", "price": "7.25", "category_id": s.burger.CategoryID, "allergens": []string{"nuts"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	salad := decode(t, w)["product"].(map[string]interface{})
	assert.Equal(t, 7.25, salad["price"])

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/categories/%d", s.burger.CategoryID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	s.placeOrder()
	w = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/products/%d", s.burger.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["hidden"])

	w = s.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"], "hidden products leave the public menu")

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/products/%d", uint(salad["id"].(float64))), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["hidden"])

	w = s.do(http.MethodGet, "/api/products/"+fmt.Sprint(s.burger.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/admin/categories", admin, map[string]string{"name": "Mains"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	s := newServer(t)
	admin := s.token(s.admin)

	w := s.do(http.MethodGet, "/api/public/settings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	settings := decode(t, w)["settings"].(map[string]interface{})
	assert.Equal(t, 2.5, settings["delivery_fee"])

	w = s.do(http.MethodPut, "/api/admin/settings", admin, map[string]interface{}{
		"opening_hours": map[string]interface{}{"monday": map[string]string{"open": "9am", "close": "22:00"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/admin/settings", admin, map[string]interface{}{
		"delivery_fee": "3.00",
		"closed_days":  []string{"2026-12-25"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3.0, decode(t, w)["settings"].(map[string]interface{})["delivery_fee"])

	w = s.do(http.MethodGet, "/api/public/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "is_open")

	w = s.do(http.MethodPost, "/api/admin/settings/reset", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.5, decode(t, w)["settings"].(map[string]interface{})["delivery_fee"])
}

func TestStatsEndpoints(t *testing.T) {
	s := newServer(t)
	admin := s.token(s.admin)
	testutil.CreateOrder(t, s.db, s.customer.ID, models.StatusDelivered, "20.00")

	w := s.do(http.MethodGet, "/api/admin/stats/overview", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(20), decode(t, w)["totalRevenue"])

	for _, path := range []string{"/api/admin/stats/sales-by-day?days=3", "/api/admin/stats/top-products", "/api/admin/stats/active-hours"} {
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, path, admin, nil).Code, path)
	}

	w = s.do(http.MethodGet, "/api/admin/reports/sales?from=2026-02-01&to=2026-01-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/stats/overview", s.token(s.customer), nil).Code)
}

func TestStateMachineAndHealth(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/api/state-machine", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["states"], 6)
	assert.NotEmpty(t, body["transitions"])

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
}

func TestWebhookIgnoresFailedIntent(t *testing.T) {
	s := newServerWithGateway(t, payment.NewSimulatedGateway(10, webhookSecret))
	id := s.placeOrder()
	intentID := s.createIntent(id)

	// 13.50 is over the gateway limit, so the intent settles as failed
	payload := succeededEvent(intentID)
	w := s.webhook(payload, payment.Sign(webhookSecret, payload))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, models.StatusPending, s.orderStatus(id))
	assert.Equal(t, int64(0), s.points())

	w = s.do(http.MethodGet, "/api/payments/status/"+intentID, s.token(s.customer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", decode(t, w)["status"])
}

func TestWebhookIgnoresAmountMismatch(t *testing.T) {
	s := newServer(t)
	id := s.placeOrder()
	intentID := s.createIntent(id)
	require.NoError(t, s.db.Model(&models.Order{}).Where("id = ?", id).Update("total_price", "20.00").Error)

	payload := succeededEvent(intentID)
	w := s.webhook(payload, payment.Sign(webhookSecret, payload))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, models.StatusPending, s.orderStatus(id))
	assert.Equal(t, int64(0), s.points())
}
