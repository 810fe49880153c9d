package models

import "time"

type LoyaltyType string

const (
	LoyaltyEarned   LoyaltyType = "earned"
	LoyaltyRedeemed LoyaltyType = "redeemed"
)

// PointsPerRedemptionStep points buy RedemptionStepValue currency units of discount.
const (
	PointsPerRedemptionStep = 100
	RedemptionStepValue     = 10
)

// LoyaltyTransaction is an append-only ledger row. Points are negative for redemptions.
type LoyaltyTransaction struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	UserID      uint        `json:"user_id" gorm:"not null;index"`
	Points      int64       `json:"points" gorm:"not null"`
	Type        LoyaltyType `json:"type" gorm:"not null"`
	OrderID     *uint       `json:"order_id" gorm:"index"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
}
