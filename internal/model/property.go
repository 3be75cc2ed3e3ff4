package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// properties
type Property struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"type:varchar(200);not null;uniqueIndex"`
	Address      string    `gorm:"type:varchar(500);not null"`
	ICalURL      string    `gorm:"column:ical_url;type:text"`
	Bedrooms     int       `gorm:"not null;default:1"`
	MaxGuests    int       `gorm:"not null;default:4"`
	BasePrice    float64   `gorm:"not null;default:100"`
	CleaningFee  float64   `gorm:"not null;default:0"`
	WifiPassword string    `gorm:"type:varchar(200)"`
	LockboxCode  string    `gorm:"type:varchar(50)"`
	CheckinTime  string    `gorm:"type:varchar(10);not null;default:'15:00'"`
	CheckoutTime string    `gorm:"type:varchar(10);not null;default:'11:00'"`
	CleanerName  string    `gorm:"type:varchar(200)"`
	CleanerPhone string    `gorm:"type:varchar(50)"`
	CleanerEmail string    `gorm:"type:varchar(200)"`
	Notes        string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasFeed reports whether the property has an iCal feed configured.
func (p *Property) HasFeed() bool {
	return p.ICalURL != ""
}
