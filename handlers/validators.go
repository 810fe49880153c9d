package handlers

import (
	"restaurant-api/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the domain binding tags to gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	tags := map[string]validator.Func{
		"order_status": func(fl validator.FieldLevel) bool {
			return models.OrderStatus(fl.Field().String()).Valid()
		},
		"delivery_type": func(fl validator.FieldLevel) bool {
			return models.DeliveryType(fl.Field().String()).Valid()
		},
		"user_role": func(fl validator.FieldLevel) bool {
			return models.UserRole(fl.Field().String()).Valid()
		},
		"hhmm": func(fl validator.FieldLevel) bool {
			_, err := models.ParseClock(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
