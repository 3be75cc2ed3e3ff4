package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PayoutSource string

const (
	PayoutSourceEmail  PayoutSource = "email"
	PayoutSourceManual PayoutSource = "manual"
)

// payouts
type Payout struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingID        *uuid.UUID      `gorm:"type:uuid;index"`
	PropertyID       *uuid.UUID      `gorm:"type:uuid;index"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PayoutDate       time.Time       `gorm:"type:date;not null;index"`
	ConfirmationCode string          `gorm:"type:varchar(50)"`
	Source           PayoutSource    `gorm:"type:varchar(50);not null;default:'email'"`
	Notes            string          `gorm:"type:text"`
	CreatedAt        time.Time       `gorm:"not null"`

	Booking *Booking `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type EmailLogStatus string

const (
	EmailLogStatusProcessed    EmailLogStatus = "processed"
	EmailLogStatusUnrecognized EmailLogStatus = "unrecognized"
	EmailLogStatusError        EmailLogStatus = "error"
)

// EmailLog stores one row per inbox message, keyed by the mailbox
// message id so a message is never handled twice.
type EmailLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	MessageID    string         `gorm:"type:varchar(500);not null;uniqueIndex"`
	Subject      string         `gorm:"type:varchar(500)"`
	Sender       string         `gorm:"type:varchar(200)"`
	ReceivedDate *time.Time     ``
	ParsedType   string         `gorm:"type:varchar(100)"`
	ParsedData   datatypes.JSON ``
	Status       EmailLogStatus `gorm:"type:varchar(50);not null;default:'processed'"`
	ErrorMessage string         `gorm:"type:text"`
	ProcessedAt  time.Time      `gorm:"not null"`
}

func (e *EmailLog) TableName() string { return "email_processing_log" }

func (e *EmailLog) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
