package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

type BookingSource string

const (
	BookingSourceICal   BookingSource = "ical"
	BookingSourceEmail  BookingSource = "email"
	BookingSourceManual BookingSource = "manual"
)

// ErrInvalidStayRange is returned when checkin_date is not strictly before
// checkout_date.
var ErrInvalidStayRange = errors.New("checkin date must be before checkout date")

// bookings
//
// ICalUID carries the feed's event UID. The unique index is global, not
// scoped per property: feed UIDs are RFC 5545 identifiers and are expected
// to be globally unique. A cross-property collision is rejected by the
// constraint and surfaces in that property's sync cycle log.
type Booking struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey"`
	PropertyID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	ICalUID          *string          `gorm:"column:ical_uid;type:varchar(500);uniqueIndex"`
	ConfirmationCode *string          `gorm:"type:varchar(50);index"`
	GuestName        string           `gorm:"type:varchar(200)"`
	GuestEmail       string           `gorm:"type:varchar(200)"`
	GuestPhone       string           `gorm:"type:varchar(50)"`
	CheckinDate      time.Time        `gorm:"type:date;not null;index"`
	CheckoutDate     time.Time        `gorm:"type:date;not null;index"`
	NumGuests        *int             ``
	TotalPayout      *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Status           BookingStatus    `gorm:"type:varchar(50);not null;default:'confirmed';index"`
	Source           BookingSource    `gorm:"type:varchar(50);not null;default:'ical'"`
	Summary          string           `gorm:"type:text"`
	CreatedAt        time.Time        `gorm:"not null"`
	UpdatedAt        time.Time        `gorm:"not null"`

	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if !b.CheckinDate.Before(b.CheckoutDate) {
		return ErrInvalidStayRange
	}
	return nil
}

// Nights returns the length of the stay in nights.
func (b *Booking) Nights() int {
	return int(b.CheckoutDate.Sub(b.CheckinDate).Hours() / 24)
}
