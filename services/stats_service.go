package services

import (
	"context"
	"sort"
	"time"

	"restaurant-api/apperr"
	"restaurant-api/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// revenueStatuses are the orders that have been paid and not cancelled
var revenueStatuses = []models.OrderStatus{
	models.StatusConfirmed,
	models.StatusPreparing,
	models.StatusReady,
	models.StatusDelivered,
}

// StatsService aggregates in Go rather than SQL so that money stays exact and day
// boundaries follow the restaurant's timezone on every database driver.
type StatsService struct {
	DB       *gorm.DB
	Location *time.Location
	Now      func() time.Time
}

func NewStatsService(db *gorm.DB, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.Local
	}
	return &StatsService{DB: db, Location: loc, Now: time.Now}
}

type Overview struct {
	TotalOrders       int64           `json:"totalOrders"`
	TotalUsers        int64           `json:"totalUsers"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}

type DaySales struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type ProductSales struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type HourActivity struct {
	Hour   int `json:"hour"`
	Orders int `json:"orders"`
}

type SalesReport struct {
	From              string          `json:"from"`
	To                string          `json:"to"`
	Orders            int             `json:"orders"`
	Revenue           decimal.Decimal `json:"revenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}

type orderFigure struct {
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

// dbTime matches how gorm stamps created_at, which keeps text comparisons on sqlite correct
func dbTime(t time.Time) time.Time {
	return t.In(time.Local)
}

func average(sum decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2)
}

func (s *StatsService) Overview(ctx context.Context) (*Overview, error) {
	db := s.DB.WithContext(ctx)
	var out Overview
	if err := db.Model(&models.Order{}).Count(&out.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Count(&out.TotalUsers).Error; err != nil {
		return nil, err
	}

	var totals []decimal.Decimal
	if err := db.Model(&models.Order{}).Where("status IN ?", revenueStatuses).Pluck("total_price", &totals).Error; err != nil {
		return nil, err
	}
	out.TotalRevenue = decimal.Sum(decimal.Zero, totals...).Round(2)
	out.AverageOrderValue = average(out.TotalRevenue, len(totals))
	return &out, nil
}

// SalesByDay returns one bucket per day for the last days days, today included, oldest first
func (s *StatsService) SalesByDay(ctx context.Context, days int) ([]DaySales, error) {
	if days < 1 || days > 366 {
		return nil, apperr.Validation("days must be between 1 and 366")
	}
	now := s.Now().In(s.Location)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Location).AddDate(0, 0, -(days - 1))

	var figures []orderFigure
	err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Select("total_price", "created_at").
		Where("status IN ? AND created_at >= ?", revenueStatuses, dbTime(start)).
		Scan(&figures).Error
	if err != nil {
		return nil, err
	}

	out := make([]DaySales, days)
	index := make(map[string]int, days)
	for i := range out {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		out[i] = DaySales{Date: date, Revenue: decimal.Zero}
		index[date] = i
	}
	for _, f := range figures {
		i, ok := index[f.CreatedAt.In(s.Location).Format("2006-01-02")]
		if !ok {
			continue
		}
		out[i].Orders++
		out[i].Revenue = out[i].Revenue.Add(f.TotalPrice)
	}
	return out, nil
}

// TopProducts ranks products by quantity sold across paid orders
func (s *StatsService) TopProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	if limit < 1 || limit > 100 {
		return nil, apperr.Validation("limit must be between 1 and 100")
	}
	var lines []struct {
		ProductID uint
		Name      string
		Quantity  int64
		UnitPrice decimal.Decimal
	}
	err := s.DB.WithContext(ctx).Model(&models.OrderItem{}).
		Select("order_items.product_id, order_items.name, order_items.quantity, order_items.unit_price").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status IN ?", revenueStatuses).
		Order("order_items.id").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}

	byProduct := map[uint]*ProductSales{}
	for _, l := range lines {
		p := byProduct[l.ProductID]
		if p == nil {
			p = &ProductSales{ProductID: l.ProductID, Revenue: decimal.Zero}
			byProduct[l.ProductID] = p
		}
		p.Name = l.Name // latest snapshot wins
		p.Quantity += l.Quantity
		p.Revenue = p.Revenue.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)))
	}

	out := make([]ProductSales, 0, len(byProduct))
	for _, p := range byProduct {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ActiveHours counts non-cancelled orders per local hour of the day
func (s *StatsService) ActiveHours(ctx context.Context) ([]HourActivity, error) {
	var stamps []time.Time
	err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("status <> ?", models.StatusCancelled).
		Pluck("created_at", &stamps).Error
	if err != nil {
		return nil, err
	}
	out := make([]HourActivity, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, ts := range stamps {
		out[ts.In(s.Location).Hour()].Orders++
	}
	return out, nil
}

// SalesReport sums delivered orders created between from and to, both inclusive YYYY-MM-DD dates
func (s *StatsService) SalesReport(ctx context.Context, from, to string) (*SalesReport, error) {
	start, err := time.ParseInLocation("2006-01-02", from, s.Location)
	if err != nil {
		return nil, apperr.Validation("from must be a YYYY-MM-DD date")
	}
	end, err := time.ParseInLocation("2006-01-02", to, s.Location)
	if err != nil {
		return nil, apperr.Validation("to must be a YYYY-MM-DD date")
	}
	if start.After(end) {
		return nil, apperr.Validation("from must not be after to")
	}

	var totals []decimal.Decimal
	err = s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("status = ? AND created_at >= ? AND created_at < ?",
			models.StatusDelivered, dbTime(start), dbTime(end.AddDate(0, 0, 1))).
		Pluck("total_price", &totals).Error
	if err != nil {
		return nil, err
	}
	revenue := decimal.Sum(decimal.Zero, totals...).Round(2)
	return &SalesReport{
		From:              from,
		To:                to,
		Orders:            len(totals),
		Revenue:           revenue,
		AverageOrderValue: average(revenue, len(totals)),
	}, nil
}
