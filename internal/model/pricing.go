package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PricingRuleType string

const (
	PricingRuleSeasonal  PricingRuleType = "seasonal"
	PricingRuleDayOfWeek PricingRuleType = "day_of_week"
	PricingRuleLeadTime  PricingRuleType = "lead_time"
	PricingRuleEvent     PricingRuleType = "event"
)

// pricing_rules
type PricingRule struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PropertyID uuid.UUID       `gorm:"type:uuid;not null;index"`
	RuleType   PricingRuleType `gorm:"type:varchar(50);not null"`
	Name       string          `gorm:"type:varchar(200);not null"`
	Multiplier float64         `gorm:"not null;default:1"`
	StartDate  *time.Time      `gorm:"type:date"`
	EndDate    *time.Time      `gorm:"type:date"`
	DaysOfWeek string          `gorm:"type:varchar(50)"` // comma-separated weekday numbers, e.g. "4,5"
	IsActive   bool            `gorm:"not null;default:true;index"`

	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (r *PricingRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// price_overrides
type PriceOverride struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Date       time.Time `gorm:"type:date;not null;index"`
	Price      float64   `gorm:"not null"`
	Reason     string    `gorm:"type:varchar(300)"`

	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (o *PriceOverride) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
