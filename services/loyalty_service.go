package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"restaurant-api/apperr"
	"restaurant-api/models"

	"github.com/romana/rlog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const loyaltyHistoryLimit = 50

type LoyaltyService struct {
	DB *gorm.DB
}

func NewLoyaltyService(db *gorm.DB) *LoyaltyService {
	return &LoyaltyService{DB: db}
}

type Balance struct {
	Points           int64           `json:"points"`
	RedeemableAmount decimal.Decimal `json:"redeemable_amount"`
}

type Redemption struct {
	PointsRedeemed  int64           `json:"points_redeemed"`
	RemainingPoints int64           `json:"remaining_points"`
	Discount        decimal.Decimal `json:"discount"`
}

// currency renders an amount as a JSON number with exactly two decimals, e.g. 10.00
func currency(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func (b Balance) MarshalJSON() ([]byte, error) {
	type plain Balance
	return json.Marshal(struct {
		plain
		RedeemableAmount json.Number `json:"redeemable_amount"`
	}{plain(b), currency(b.RedeemableAmount)})
}

func (r Redemption) MarshalJSON() ([]byte, error) {
	type plain Redemption
	return json.Marshal(struct {
		plain
		Discount json.Number `json:"discount"`
	}{plain(r), currency(r.Discount)})
}

// PointsForTotal is one point per whole currency unit spent
func PointsForTotal(total decimal.Decimal) int64 {
	if total.IsNegative() {
		return 0
	}
	return total.Floor().IntPart()
}

// DiscountForPoints applies the fixed rate of 10 currency units per 100 points
func DiscountForPoints(points int64) decimal.Decimal {
	steps := points / models.PointsPerRedemptionStep
	return decimal.NewFromInt(steps * models.RedemptionStepValue).Round(2)
}

func (s *LoyaltyService) Balance(ctx context.Context, userID uint) (*Balance, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Select("id", "loyalty_points").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return &Balance{Points: user.LoyaltyPoints, RedeemableAmount: DiscountForPoints(user.LoyaltyPoints)}, nil
}

// History returns the most recent ledger rows, newest first
func (s *LoyaltyService) History(ctx context.Context, userID uint) ([]models.LoyaltyTransaction, error) {
	var entries []models.LoyaltyTransaction
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(loyaltyHistoryLimit).
		Find(&entries).Error
	return entries, err
}

// Redeem spends points. The balance check and the decrement are one conditional UPDATE, so
// concurrent redemptions for the same user are serialized by the database and the balance
// can never go below zero.
func (s *LoyaltyService) Redeem(ctx context.Context, userID uint, points int64) (*Redemption, error) {
	if points <= 0 {
		return nil, apperr.Validation("points must be a positive integer")
	}

	var out Redemption
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND loyalty_points >= ?", userID, points).
			UpdateColumn("loyalty_points", gorm.Expr("loyalty_points - ?", points))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperr.ErrUserNotFound
			}
			return apperr.ErrInsufficientPoints
		}

		discount := DiscountForPoints(points)
		if err := tx.Create(&models.LoyaltyTransaction{
			UserID:      userID,
			Points:      -points,
			Type:        models.LoyaltyRedeemed,
			Description: fmt.Sprintf("Redeemed %d points for a %s discount", points, discount.StringFixed(2)),
		}).Error; err != nil {
			return err
		}

		var user models.User
		if err := tx.Select("id", "loyalty_points").First(&user, userID).Error; err != nil {
			return err
		}
		out = Redemption{PointsRedeemed: points, RemainingPoints: user.LoyaltyPoints, Discount: discount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rlog.Infof("User %d redeemed %d loyalty points", userID, points)
	return &out, nil
}

// accrue runs inside the payment confirmation transaction
func (s *LoyaltyService) accrue(tx *gorm.DB, userID, orderID uint, total decimal.Decimal) error {
	points := PointsForTotal(total)
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"loyalty_points": gorm.Expr("loyalty_points + ?", points),
			"total_orders":   gorm.Expr("total_orders + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrUserNotFound
	}
	return tx.Create(&models.LoyaltyTransaction{
		UserID:      userID,
		Points:      points,
		Type:        models.LoyaltyEarned,
		OrderID:     &orderID,
		Description: fmt.Sprintf("Earned on order %d", orderID),
	}).Error
}
