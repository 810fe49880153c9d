// Package testutil holds database and fixture helpers shared by the package tests.
package testutil

import (
	"database/sql"
	"testing"

	"restaurant-api/config"
	"restaurant-api/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/DATA-DOG/go-sqlmock.v1"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Password is the plain-text password of every fixture user
const Password = "password123"

// NewDB returns a migrated in-memory sqlite database private to the test
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openMemory(t, memoryDSN())
}

// NewReplicatedDB returns a primary with a read replica registered through dbresolver. The
// replica is a separate database that only holds what the test writes to it directly, which
// makes it behave like a replica that has not caught up yet.
func NewReplicatedDB(t *testing.T) (primary, replica *gorm.DB) {
	t.Helper()
	replicaDSN := memoryDSN()
	primary = openMemory(t, memoryDSN())
	replica = openMemory(t, replicaDSN)
	err := primary.Use(dbresolver.Register(dbresolver.Config{
		Replicas: []gorm.Dialector{sqlite.Open(replicaDSN)},
	}))
	if err != nil {
		t.Fatal(err)
	}
	return primary, replica
}

func memoryDSN() string {
	return "file:" + uuid.NewString() + "?mode=memory&cache=shared"
}

func openMemory(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatal(err)
	}
	return db
}

// NewMockDB wires go-sqlmock behind the postgres dialector for asserting exact SQL
func NewMockDB(t *testing.T) (*sql.DB, *gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	gormdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqldb,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqldb.Close() })
	return sqldb, gormdb, mock
}

var passwordHash = func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}()

// CreateUser inserts an active user with the given role and loyalty balance
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.UserRole, points int64) *models.User {
	t.Helper()
	user := &models.User{
		Email:         email,
		PasswordHash:  passwordHash,
		FirstName:     "Test",
		LastName:      "User",
		Role:          role,
		LoyaltyPoints: points,
		IsActive:      true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatal(err)
	}
	return user
}

func CreateCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	if err := db.Create(category).Error; err != nil {
		t.Fatal(err)
	}
	return category
}

// CreateProduct inserts an available product priced at price, e.g. "5.00"
func CreateProduct(t *testing.T, db *gorm.DB, categoryID uint, name, price string) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		CategoryID:  categoryID,
		IsAvailable: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatal(err)
	}
	return product
}

// CreateOrder inserts an order directly in the given status, bypassing intake
func CreateOrder(t *testing.T, db *gorm.DB, userID uint, status models.OrderStatus, total string) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:       userID,
		TotalPrice:   decimal.RequireFromString(total),
		DeliveryType: models.DeliveryTypePickup,
		Status:       status,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatal(err)
	}
	return order
}
