package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ScheduleECategories lists the IRS Schedule E expense categories an expense
// must fall into.
var ScheduleECategories = []string{
	"advertising",
	"auto_and_travel",
	"cleaning_and_maintenance",
	"commissions",
	"insurance",
	"legal_and_professional",
	"management_fees",
	"mortgage_interest",
	"other_interest",
	"repairs",
	"supplies",
	"taxes",
	"utilities",
	"depreciation",
	"other",
}

// ValidExpenseCategory reports whether category is a known Schedule E
// category.
func ValidExpenseCategory(category string) bool {
	for _, c := range ScheduleECategories {
		if c == category {
			return true
		}
	}
	return false
}

// expenses
type Expense struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PropertyID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Category         string          `gorm:"type:varchar(100);not null"`
	Description      string          `gorm:"type:varchar(500);not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Date             time.Time       `gorm:"type:date;not null;index"`
	Vendor           string          `gorm:"type:varchar(200)"`
	IsRecurring      bool            `gorm:"not null;default:false"`
	RecurrenceMonths *int            ``
	Notes            string          `gorm:"type:text"`
	CreatedAt        time.Time       `gorm:"not null"`

	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
