package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DayHours is one weekday's opening window in "HH:MM" local time
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// OpeningHours maps lowercase weekday names to their window. A nil entry means closed all day.
type OpeningHours map[string]*DayHours

type RestaurantSettings struct {
	ID             uint                             `json:"id" gorm:"primaryKey"`
	OpeningHours   datatypes.JSONType[OpeningHours] `json:"opening_hours"`
	ClosedDays     datatypes.JSONSlice[string]      `json:"closed_days"` // YYYY-MM-DD
	DeliveryFee    decimal.Decimal                  `json:"delivery_fee" gorm:"type:decimal(10,2);not null"`
	MinOrderAmount decimal.Decimal                  `json:"min_order_amount" gorm:"type:decimal(10,2);not null"`
	CreatedAt      time.Time                        `json:"created_at"`
	UpdatedAt      time.Time                        `json:"updated_at"`
}

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func DefaultOpeningHours() OpeningHours {
	return OpeningHours{
		"monday":    {Open: "11:00", Close: "22:00"},
		"tuesday":   {Open: "11:00", Close: "22:00"},
		"wednesday": {Open: "11:00", Close: "22:00"},
		"thursday":  {Open: "11:00", Close: "22:00"},
		"friday":    {Open: "11:00", Close: "23:00"},
		"saturday":  {Open: "12:00", Close: "23:00"},
		"sunday":    {Open: "12:00", Close: "22:00"},
	}
}

// DefaultSettings returns the values used on first boot and by a reset
func DefaultSettings() RestaurantSettings {
	return RestaurantSettings{
		OpeningHours:   datatypes.NewJSONType(DefaultOpeningHours()),
		ClosedDays:     datatypes.JSONSlice[string]{},
		DeliveryFee:    decimal.RequireFromString("2.50"),
		MinOrderAmount: decimal.RequireFromString("15.00"),
	}
}

// Validate checks weekday keys and time formats
func (h OpeningHours) Validate() error {
	for day, window := range h {
		if !isWeekday(day) {
			return fmt.Errorf("unknown weekday %q", day)
		}
		if window == nil {
			continue
		}
		if _, err := ParseClock(window.Open); err != nil {
			return fmt.Errorf("%s open: %w", day, err)
		}
		if _, err := ParseClock(window.Close); err != nil {
			return fmt.Errorf("%s close: %w", day, err)
		}
	}
	return nil
}

func isWeekday(day string) bool {
	for _, d := range weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// ParseClock converts "HH:MM" into minutes after midnight
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// OpenStatus describes whether the restaurant is open at a given instant
type OpenStatus struct {
	IsOpen   bool   `json:"is_open"`
	Today    string `json:"today"`
	OpensAt  string `json:"opens_at,omitempty"`
	ClosesAt string `json:"closes_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// StatusAt evaluates the opening hours at now, which should already be in the restaurant's timezone.
// A window whose close is earlier than its open runs past midnight, so the previous day's
// window is checked as well.
func (s RestaurantSettings) StatusAt(now time.Time) OpenStatus {
	today := weekdays[now.Weekday()]
	status := OpenStatus{Today: today}

	for _, d := range s.ClosedDays {
		if d == now.Format("2006-01-02") {
			status.Reason = "closed today"
			return status
		}
	}

	hours := s.OpeningHours.Data()
	minute := now.Hour()*60 + now.Minute()

	if w := hours[today]; w != nil {
		status.OpensAt, status.ClosesAt = w.Open, w.Close
		open, errOpen := ParseClock(w.Open)
		closeAt, errClose := ParseClock(w.Close)
		if errOpen == nil && errClose == nil {
			if closeAt > open && minute >= open && minute < closeAt {
				status.IsOpen = true
			}
			if closeAt <= open && minute >= open {
				status.IsOpen = true
			}
		}
	}

	yesterday := weekdays[(int(now.Weekday())+6)%7]
	if w := hours[yesterday]; !status.IsOpen && w != nil {
		open, errOpen := ParseClock(w.Open)
		closeAt, errClose := ParseClock(w.Close)
		if errOpen == nil && errClose == nil && closeAt <= open && minute < closeAt {
			status.IsOpen = true
			status.ClosesAt = w.Close
		}
	}

	if !status.IsOpen && status.Reason == "" {
		status.Reason = "outside opening hours"
	}
	return status
}
