package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a garage booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
)

// AllBookingStatuses lists every booking status.
var AllBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingCompleted}

// Booking is a scheduled garage visit. Read only in this service.
type Booking struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	GarageID    string          `db:"garage_id" json:"garage_id"`
	ScheduledAt time.Time       `db:"scheduled_at" json:"scheduled_at"`
	Status      BookingStatus   `db:"status" json:"status"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}
