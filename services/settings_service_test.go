package services

import (
	"context"
	"testing"
	"time"

	"restaurant-api/apperr"
	"restaurant-api/models"
	"restaurant-api/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSettingsService(db, time.UTC)
	ctx := context.Background()

	settings, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.50", settings.DeliveryFee.StringFixed(2))
	assert.Equal(t, "15.00", settings.MinOrderAmount.StringFixed(2))
	assert.Equal(t, "23:00", settings.OpeningHours.Data()["friday"].Close)

	again, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.ID, again.ID)

	fee := decimal.RequireFromString("3.00")
	hours := models.DefaultOpeningHours()
	hours["monday"] = nil
	updated, err := svc.Update(ctx, SettingsUpdate{
		OpeningHours: &hours,
		ClosedDays:   []string{"2026-12-25"},
		DeliveryFee:  &fee,
	})
	require.NoError(t, err)
	assert.Equal(t, "3.00", updated.DeliveryFee.StringFixed(2))
	assert.Equal(t, "15.00", updated.MinOrderAmount.StringFixed(2))

	stored, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored.OpeningHours.Data()["monday"])
	assert.Equal(t, []string{"2026-12-25"}, []string(stored.ClosedDays))

	reset, err := svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.ID, reset.ID)
	assert.Equal(t, "2.50", reset.DeliveryFee.StringFixed(2))
	assert.Empty(t, reset.ClosedDays)

	var count int64
	db.Model(&models.RestaurantSettings{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSettingsUpdateValidation(t *testing.T) {
	svc := NewSettingsService(testutil.NewDB(t), time.UTC)
	ctx := context.Background()

	bad := models.OpeningHours{"monday": {Open: "25:00", Close: "22:00"}}
	_, err := svc.Update(ctx, SettingsUpdate{OpeningHours: &bad})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	unknown := models.OpeningHours{"funday": {Open: "10:00", Close: "12:00"}}
	_, err = svc.Update(ctx, SettingsUpdate{OpeningHours: &unknown})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Update(ctx, SettingsUpdate{ClosedDays: []string{"25/12/2026"}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	negative := decimal.RequireFromString("-1")
	_, err = svc.Update(ctx, SettingsUpdate{MinOrderAmount: &negative})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSettingsStatus(t *testing.T) {
	svc := NewSettingsService(testutil.NewDB(t), time.UTC)
	ctx := context.Background()

	// 2026-10-16 is a Friday
	open, err := svc.Status(ctx, time.Date(2026, 10, 16, 22, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, open.IsOpen)
	assert.Equal(t, "friday", open.Today)
	assert.Equal(t, "23:00", open.ClosesAt)

	closed, err := svc.Status(ctx, time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, closed.IsOpen)
	assert.Equal(t, "11:00", closed.OpensAt)

	_, err = svc.Update(ctx, SettingsUpdate{ClosedDays: []string{"2026-10-16"}})
	require.NoError(t, err)
	holiday, err := svc.Status(ctx, time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, holiday.IsOpen)
	assert.Equal(t, "closed today", holiday.Reason)
}
