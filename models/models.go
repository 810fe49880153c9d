package models

import "github.com/shopspring/decimal"

func init() {
	// prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// AllModels is the migration set, in dependency order
var AllModels = []interface{}{
	&User{},
	&Category{},
	&Product{},
	&Order{},
	&OrderItem{},
	&OrderStatusHistory{},
	&LoyaltyTransaction{},
	&RestaurantSettings{},
}
