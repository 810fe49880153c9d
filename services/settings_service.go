package services

import (
	"context"
	"errors"
	"time"

	"restaurant-api/apperr"
	"restaurant-api/models"

	"github.com/romana/rlog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SettingsService struct {
	DB       *gorm.DB
	Location *time.Location
}

func NewSettingsService(db *gorm.DB, loc *time.Location) *SettingsService {
	if loc == nil {
		loc = time.Local
	}
	return &SettingsService{DB: db, Location: loc}
}

// SettingsUpdate carries the fields an admin wants to change; nil fields are left alone
type SettingsUpdate struct {
	OpeningHours   *models.OpeningHours
	ClosedDays     []string
	DeliveryFee    *decimal.Decimal
	MinOrderAmount *decimal.Decimal
}

// Get returns the single settings row, creating the defaults on first use
func (s *SettingsService) Get(ctx context.Context) (*models.RestaurantSettings, error) {
	return s.get(s.DB.WithContext(ctx))
}

func (s *SettingsService) get(db *gorm.DB) (*models.RestaurantSettings, error) {
	var settings models.RestaurantSettings
	err := db.Order("id").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	settings = models.DefaultSettings()
	if err := db.Create(&settings).Error; err != nil {
		return nil, err
	}
	rlog.Info("Created default restaurant settings")
	return &settings, nil
}

func (s *SettingsService) Update(ctx context.Context, in SettingsUpdate) (*models.RestaurantSettings, error) {
	if in.OpeningHours != nil {
		if err := in.OpeningHours.Validate(); err != nil {
			return nil, apperr.Validation("opening_hours: %v", err)
		}
	}
	for _, day := range in.ClosedDays {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			return nil, apperr.Validation("closed_days: %q is not a YYYY-MM-DD date", day)
		}
	}
	if in.DeliveryFee != nil && in.DeliveryFee.IsNegative() {
		return nil, apperr.Validation("delivery_fee must not be negative")
	}
	if in.MinOrderAmount != nil && in.MinOrderAmount.IsNegative() {
		return nil, apperr.Validation("min_order_amount must not be negative")
	}

	var out *models.RestaurantSettings
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := s.get(tx)
		if err != nil {
			return err
		}
		if in.OpeningHours != nil {
			settings.OpeningHours = datatypes.NewJSONType(*in.OpeningHours)
		}
		if in.ClosedDays != nil {
			settings.ClosedDays = datatypes.JSONSlice[string](in.ClosedDays)
		}
		if in.DeliveryFee != nil {
			settings.DeliveryFee = in.DeliveryFee.Round(2)
		}
		if in.MinOrderAmount != nil {
			settings.MinOrderAmount = in.MinOrderAmount.Round(2)
		}
		if err := tx.Save(settings).Error; err != nil {
			return err
		}
		out = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	rlog.Info("Restaurant settings updated")
	return out, nil
}

// Reset restores the default hours, fee and minimum order
func (s *SettingsService) Reset(ctx context.Context) (*models.RestaurantSettings, error) {
	var out *models.RestaurantSettings
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := s.get(tx)
		if err != nil {
			return err
		}
		defaults := models.DefaultSettings()
		defaults.ID = settings.ID
		defaults.CreatedAt = settings.CreatedAt
		if err := tx.Save(&defaults).Error; err != nil {
			return err
		}
		out = &defaults
		return nil
	})
	if err != nil {
		return nil, err
	}
	rlog.Info("Restaurant settings reset to defaults")
	return out, nil
}

// Status reports whether the restaurant is open at now in the restaurant's timezone
func (s *SettingsService) Status(ctx context.Context, now time.Time) (models.OpenStatus, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return models.OpenStatus{}, err
	}
	return settings.StatusAt(now.In(s.Location)), nil
}
