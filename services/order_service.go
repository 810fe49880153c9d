package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restaurant-api/apperr"
	"restaurant-api/models"
	"restaurant-api/payment"
	"restaurant-api/statemachine"

	"github.com/romana/rlog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Notifier receives order events after they are committed. Implementations must not block.
type Notifier interface {
	OrderUpdated(order *models.Order)
	NewOrder(order *models.Order)
}

type OrderService struct {
	DB       *gorm.DB
	Payments payment.Gateway
	Notifier Notifier
	Loyalty  *LoyaltyService
	Currency string
}

func NewOrderService(db *gorm.DB, payments payment.Gateway, notifier Notifier, loyalty *LoyaltyService, currency string) *OrderService {
	return &OrderService{DB: db, Payments: payments, Notifier: notifier, Loyalty: loyalty, Currency: currency}
}

type OrderLine struct {
	ProductID uint
	Quantity  int
}

type PlaceOrderInput struct {
	Items           []OrderLine
	DeliveryType    models.DeliveryType
	DeliveryAddress string
	PaymentMethodID string
}

// Place validates the lines against the catalog, prices them from the database and stores the
// order as pending. With a payment method the order is charged straight away; a decline
// returns the pending order together with a payment error.
func (s *OrderService) Place(ctx context.Context, userID uint, in PlaceOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("at least one item is required")
	}
	if !in.DeliveryType.Valid() {
		return nil, apperr.Validation("delivery_type must be delivery or pickup")
	}
	var address *string
	if in.DeliveryType == models.DeliveryTypeDelivery {
		trimmed := strings.TrimSpace(in.DeliveryAddress)
		if trimmed == "" {
			return nil, apperr.Validation("delivery_address is required for delivery orders")
		}
		address = &trimmed
	}

	ids := make([]uint, 0, len(in.Items))
	seen := map[uint]bool{}
	for _, line := range in.Items {
		if line.Quantity < 1 {
			return nil, apperr.Validation("quantity for product %d must be a positive integer", line.ProductID)
		}
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}

	var products []models.Product
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	order := models.Order{
		UserID:          userID,
		DeliveryType:    in.DeliveryType,
		Status:          models.StatusPending,
		DeliveryAddress: address,
	}
	total := decimal.Zero
	for _, line := range in.Items {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, apperr.NotFound("product %d not found", line.ProductID)
		}
		if !product.IsAvailable {
			return nil, apperr.Validation("product %q is not available", product.Name)
		}
		item := models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		}
		total = total.Add(item.LineTotal())
		order.Items = append(order.Items, item)
	}
	order.TotalPrice = total

	var placed *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			Actor:     string(statemachine.ActorCustomer),
			ChangedBy: &userID,
			Note:      "Order placed",
		}).Error; err != nil {
			return err
		}
		var err error
		placed, err = load(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	rlog.Infof("Order %d placed by user %d, total %s", order.ID, userID, total.StringFixed(2))

	if in.PaymentMethodID == "" {
		return placed, nil
	}

	intent, err := s.Payments.Charge(ctx, payment.ChargeRequest{
		Amount:          total,
		Currency:        s.Currency,
		PaymentMethodID: in.PaymentMethodID,
		OrderID:         order.ID,
		UserID:          userID,
		IdempotencyKey:  fmt.Sprintf("order-%d-charge", order.ID),
	})
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			rlog.Infof("Payment for order %d declined: %v", order.ID, err)
		} else {
			rlog.Errorf("Payment gateway error for order %d: %v", order.ID, err)
		}
		return placed, apperr.PaymentFailed(err, "payment failed, order %d stays pending", order.ID)
	}
	return s.ConfirmPayment(ctx, order.ID, intent.ID)
}

// ConfirmPayment moves a pending order to confirmed and credits loyalty points in one
// transaction. Repeating it with the same payment reference is a no-op, so webhook
// redeliveries never credit points twice.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uint, paymentRef string) (*models.Order, error) {
	var confirmed *models.Order
	changed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrOrderNotFound
			}
			return err
		}
		if order.Status != models.StatusPending {
			if paymentRef != "" && order.PaymentRef == paymentRef {
				var err error
				confirmed, err = load(tx, order.ID)
				return err
			}
			return apperr.Validation("order %d is %s and not awaiting payment", order.ID, order.Status)
		}
		if err := statemachine.CanTransition(order.Status, models.StatusConfirmed, statemachine.ActorSystem); err != nil {
			return apperr.Validation("%v", err)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.StatusPending).
			Updates(map[string]interface{}{"status": models.StatusConfirmed, "payment_ref": paymentRef})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrStatusChanged
		}
		if err := tx.Create(&models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: models.StatusPending,
			ToStatus:   models.StatusConfirmed,
			Actor:      string(statemachine.ActorSystem),
			Note:       "Payment " + paymentRef + " captured",
		}).Error; err != nil {
			return err
		}
		if err := s.Loyalty.accrue(tx, order.UserID, order.ID, order.TotalPrice); err != nil {
			return err
		}
		changed = true
		var err error
		confirmed, err = load(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		rlog.Infof("Order %d confirmed by payment %s", orderID, paymentRef)
		s.Notifier.OrderUpdated(confirmed)
		s.Notifier.NewOrder(confirmed)
	}
	return confirmed, nil
}

// Get loads an order with its lines and history in a stable order
func (s *OrderService) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	return load(s.DB.WithContext(ctx), orderID)
}

// load reads an order through db. Reloads after a write pass the open transaction so they
// hit the primary even when plain reads are routed to replicas.
func load(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Product").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("order_status_histories.id") }).
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetForUser returns the order if the caller owns it or is staff
func (s *OrderService) GetForUser(ctx context.Context, userID uint, role models.UserRole, orderID uint) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && order.UserID != userID {
		return nil, apperr.ErrNotOrderOwner
	}
	return order, nil
}

// CanFollow reports whether the user may subscribe to the order's live updates
func (s *OrderService) CanFollow(userID uint, role models.UserRole, orderID uint) bool {
	q := s.DB.Model(&models.Order{}).Where("id = ?", orderID)
	if role != models.RoleAdmin {
		q = q.Where("user_id = ?", userID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		rlog.Errorf("check order %d access: %v", orderID, err)
		return false
	}
	return count > 0
}

type ListOrdersQuery struct {
	Page   int
	Limit  int
	Status models.OrderStatus
}

// ListForUser pages through the caller's orders, newest first
func (s *OrderService) ListForUser(ctx context.Context, userID uint, q ListOrdersQuery) ([]models.Order, int64, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, apperr.Validation("unknown order status %q", q.Status)
	}
	query := s.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Order("created_at desc, id desc").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&orders).Error
	return orders, total, err
}

type AdminOrdersQuery struct {
	Status models.OrderStatus
	Limit  int
	Offset int
}

// ListAll returns orders across customers plus a per-status count of every order
func (s *OrderService) ListAll(ctx context.Context, q AdminOrdersQuery) ([]models.Order, int64, map[models.OrderStatus]int64, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, nil, apperr.Validation("unknown order status %q", q.Status)
	}
	db := s.DB.WithContext(ctx)

	query := db.Model(&models.Order{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, nil, err
	}

	var orders []models.Order
	err := query.
		Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Order("created_at desc, id desc").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, nil, err
	}

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.Order{}).Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, 0, nil, err
	}
	summary := make(map[models.OrderStatus]int64, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		summary[st] = 0
	}
	for _, r := range rows {
		summary[r.Status] = r.Count
	}
	return orders, total, summary, nil
}

// Cancel is the customer-initiated cancellation
func (s *OrderService) Cancel(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	return s.transition(ctx, orderID, models.StatusCancelled, statemachine.ActorCustomer, &userID, "Cancelled by customer")
}

// UpdateStatus is the staff-initiated transition
func (s *OrderService) UpdateStatus(ctx context.Context, adminID, orderID uint, to models.OrderStatus, note string) (*models.Order, error) {
	if note == "" {
		note = "Status set by staff"
	}
	return s.transition(ctx, orderID, to, statemachine.ActorAdmin, &adminID, note)
}

// transition reads the current status, applies the guarded update and reloads the order, all in
// one transaction. Customers may only move their own orders.
func (s *OrderService) transition(ctx context.Context, orderID uint, to models.OrderStatus, actor statemachine.Actor, changedBy *uint, note string) (*models.Order, error) {
	var from models.OrderStatus
	var updated *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrOrderNotFound
			}
			return err
		}
		if actor == statemachine.ActorCustomer && (changedBy == nil || order.UserID != *changedBy) {
			return apperr.ErrNotOrderOwner
		}
		from = order.Status
		if err := statemachine.CanTransition(from, to, actor); err != nil {
			return apperr.Validation("%v", err)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrStatusChanged
		}
		if err := tx.Create(&models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			Actor:      string(actor),
			ChangedBy:  changedBy,
			Note:       note,
		}).Error; err != nil {
			return err
		}
		var err error
		updated, err = load(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	rlog.Infof("Order %d: %s -> %s by %s", orderID, from, to, actor)
	s.Notifier.OrderUpdated(updated)
	if from == models.StatusPending && to == models.StatusConfirmed {
		s.Notifier.NewOrder(updated)
	}
	return updated, nil
}
