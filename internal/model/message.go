package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageStatus string

const (
	MessageStatusQueued MessageStatus = "queued"
	MessageStatusSent   MessageStatus = "sent"
	MessageStatusCopied MessageStatus = "copied"
	MessageStatusFailed MessageStatus = "failed"
)

type MessageChannel string

const (
	MessageChannelAirbnb MessageChannel = "airbnb"
	MessageChannelEmail  MessageChannel = "email"
	MessageChannelSMS    MessageChannel = "sms"
)

// MessageTemplate holds operator-editable bodies; active rows take
// precedence over the built-in file templates of the same name.
type MessageTemplate struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name     string         `gorm:"type:varchar(100);not null;uniqueIndex"`
	Subject  string         `gorm:"type:varchar(300)"`
	Body     string         `gorm:"type:text;not null"`
	Channel  MessageChannel `gorm:"type:varchar(50);not null;default:'airbnb'"`
	IsActive bool           `gorm:"not null;default:true"`
}

func (t *MessageTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// message_log
//
// At most one row per (booking_id, template_name) may be in a non-failed
// status; a failed attempt may be queued again.
type MessageLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	BookingID    *uuid.UUID     `gorm:"type:uuid;index:idx_message_log_booking_template"`
	TemplateName string         `gorm:"type:varchar(100);index:idx_message_log_booking_template"`
	Channel      MessageChannel `gorm:"type:varchar(50);not null"`
	Recipient    string         `gorm:"type:varchar(200)"`
	Subject      string         `gorm:"type:varchar(300)"`
	Body         string         `gorm:"type:text;not null"`
	Status       MessageStatus  `gorm:"type:varchar(50);not null;default:'queued';index"`
	ScheduledAt  *time.Time     ``
	SentAt       *time.Time     ``
	CreatedAt    time.Time      `gorm:"not null"`

	Booking *Booking `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (m *MessageLog) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
