package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"restaurant-api/apperr"
	"restaurant-api/config"
	"restaurant-api/models"
	"restaurant-api/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresSuite runs the order and loyalty flows against a real postgres.
// It needs docker and is enabled with INTEGRATION=1.
type PostgresSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	db        *gorm.DB
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() || os.Getenv("INTEGRATION") != "1" {
		t.Skip("set INTEGRATION=1 to run postgres integration tests")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	startCtx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.RunContainer(startCtx,
		testcontainers.WithImage("docker.io/postgres:16-alpine"),
		tcpostgres.WithDatabase("restaurant"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("example"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(s.T(), err)
	s.container = container

	dsn, err := container.ConnectionString(startCtx, "sslmode=disable")
	require.NoError(s.T(), err)
	s.db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(s.T(), err)
	require.NoError(s.T(), config.Migrate(s.db))
}

func (s *PostgresSuite) TearDownSuite() {
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(s.ctx))
	}
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.db.Exec(`TRUNCATE loyalty_transactions, order_status_histories, order_items, orders,
		products, categories, users, restaurant_settings RESTART IDENTITY CASCADE`).Error)
}

func (s *PostgresSuite) createUser(email string, points int64) *models.User {
	user := &models.User{Email: email, PasswordHash: "x", Role: models.RoleUser, LoyaltyPoints: points, IsActive: true}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *PostgresSuite) TestPaidOrderCreditsPoints() {
	user := s.createUser("pg@example.com", 0)
	cat := &models.Category{Name: "Mains"}
	s.Require().NoError(s.db.Create(cat).Error)
	burger := &models.Product{Name: "Burger", Price: decimal.RequireFromString("5.00"), CategoryID: cat.ID, IsAvailable: true}
	fries := &models.Product{Name: "Fries", Price: decimal.RequireFromString("3.50"), CategoryID: cat.ID, IsAvailable: true}
	s.Require().NoError(s.db.Create(burger).Error)
	s.Require().NoError(s.db.Create(fries).Error)

	svc := NewOrderService(s.db, payment.NewSimulatedGateway(1000, ""), &recordingNotifier{}, NewLoyaltyService(s.db), "eur")
	order, err := svc.Place(s.ctx, user.ID, PlaceOrderInput{
		Items:           []OrderLine{{ProductID: burger.ID, Quantity: 2}, {ProductID: fries.ID, Quantity: 1}},
		DeliveryType:    models.DeliveryTypePickup,
		PaymentMethodID: "pm_card_visa",
	})
	s.Require().NoError(err)
	s.Equal("13.50", order.TotalPrice.StringFixed(2))
	s.Equal(models.StatusConfirmed, order.Status)

	var reloaded models.User
	s.Require().NoError(s.db.First(&reloaded, user.ID).Error)
	s.Equal(int64(13), reloaded.LoyaltyPoints)
}

func (s *PostgresSuite) TestConcurrentRedeem() {
	user := s.createUser("race@example.com", 300)
	svc := NewLoyaltyService(s.db)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(s.ctx, user.ID, 100)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, insufficient := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.KindOf(err) == apperr.KindValidation:
			insufficient++
		}
	}
	s.Equal(3, ok)
	s.Equal(5, insufficient)

	balance, err := svc.Balance(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(int64(0), balance.Points)
}
