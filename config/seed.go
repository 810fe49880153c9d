package config

import (
	"errors"
	"fmt"

	"restaurant-api/models"

	"github.com/romana/rlog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type seedProduct struct {
	name, description, price, category string
	ingredients, allergens             []string
}

var seedCategories = []models.Category{
	{Name: "Burgers", Description: "Handmade burgers"},
	{Name: "Pizzas", Description: "Wood-fired pizzas"},
	{Name: "Sides", Description: "Fries, salads and more"},
	{Name: "Drinks", Description: "Soft drinks and juices"},
	{Name: "Desserts", Description: "Sweet endings"},
}

var seedProducts = []seedProduct{
	{"Classic Burger", "Beef patty, cheddar, lettuce, tomato", "9.90", "Burgers",
		[]string{"beef", "cheddar", "lettuce", "tomato", "bun"}, []string{"gluten", "milk"}},
	{"Veggie Burger", "Chickpea patty, avocado, red onion", "10.50", "Burgers",
		[]string{"chickpea", "avocado", "onion", "bun"}, []string{"gluten"}},
	{"Margherita", "Tomato, mozzarella, basil", "8.50", "Pizzas",
		[]string{"tomato", "mozzarella", "basil"}, []string{"gluten", "milk"}},
	{"Pepperoni", "Tomato, mozzarella, pepperoni", "11.00", "Pizzas",
		[]string{"tomato", "mozzarella", "pepperoni"}, []string{"gluten", "milk"}},
	{"Fries", "Crispy fries with sea salt", "3.50", "Sides",
		[]string{"potato", "salt"}, nil},
	{"Caesar Salad", "Romaine, parmesan, croutons", "6.90", "Sides",
		[]string{"romaine", "parmesan", "croutons"}, []string{"gluten", "milk", "egg"}},
	{"Lemonade", "Fresh lemonade", "3.00", "Drinks",
		[]string{"lemon", "sugar", "water"}, nil},
	{"Brownie", "Chocolate brownie", "5.00", "Desserts",
		[]string{"chocolate", "butter", "flour"}, []string{"gluten", "milk", "egg", "nuts"}},
}

// SeedDatabase creates the admin account, a starter menu and default settings.
// Running it twice changes nothing.
func SeedDatabase(db *gorm.DB, cfg *Config) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := seedAdmin(tx, cfg); err != nil {
			return err
		}

		categoryIDs := map[string]uint{}
		for _, c := range seedCategories {
			category := c
			if err := tx.Where(models.Category{Name: c.Name}).FirstOrCreate(&category).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
			categoryIDs[category.Name] = category.ID
		}

		for _, p := range seedProducts {
			product := models.Product{
				Name:        p.name,
				Description: p.description,
				Price:       decimal.RequireFromString(p.price),
				CategoryID:  categoryIDs[p.category],
				Ingredients: datatypes.JSONSlice[string](p.ingredients),
				Allergens:   datatypes.JSONSlice[string](p.allergens),
				IsAvailable: true,
			}
			if err := tx.Where("name = ?", p.name).FirstOrCreate(&product).Error; err != nil {
				return fmt.Errorf("seed product %s: %w", p.name, err)
			}
		}

		var count int64
		if err := tx.Model(&models.RestaurantSettings{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			settings := models.DefaultSettings()
			if err := tx.Create(&settings).Error; err != nil {
				return fmt.Errorf("seed settings: %w", err)
			}
		}

		rlog.Infof("Seeded %d categories and %d products", len(seedCategories), len(seedProducts))
		return nil
	})
}

func seedAdmin(tx *gorm.DB, cfg *Config) error {
	var existing models.User
	err := tx.Where("email = ?", cfg.AdminEmail).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		FirstName:    "Restaurant",
		LastName:     "Admin",
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := tx.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	rlog.Infof("Created admin account %s", admin.Email)
	return nil
}
