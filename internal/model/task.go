package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CleaningTaskStatus string

const (
	CleaningTaskStatusPending   CleaningTaskStatus = "pending"
	CleaningTaskStatusNotified  CleaningTaskStatus = "notified"
	CleaningTaskStatusCompleted CleaningTaskStatus = "completed"
	CleaningTaskStatusCancelled CleaningTaskStatus = "cancelled"
)

type TaskPriority string

const (
	TaskPriorityNormal TaskPriority = "normal"
	TaskPriorityHigh   TaskPriority = "high"
)

// cleaning_tasks
//
// At most one non-cancelled task may exist per booking; the operations
// service checks the invariant read-then-write inside one transaction.
type CleaningTask struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey"`
	PropertyID        uuid.UUID          `gorm:"type:uuid;not null;index"`
	BookingID         *uuid.UUID         `gorm:"type:uuid;index"`
	ScheduledDate     time.Time          `gorm:"type:date;not null;index"`
	Status            CleaningTaskStatus `gorm:"type:varchar(50);not null;default:'pending';index"`
	IsTurnover        bool               `gorm:"not null;default:false"`
	Priority          TaskPriority       `gorm:"type:varchar(20);not null;default:'normal'"`
	CleanerNotified   bool               `gorm:"not null;default:false"`
	CleanerNotifiedAt *time.Time         ``
	CompletedAt       *time.Time         ``
	Notes             string             `gorm:"type:text"`
	CreatedAt         time.Time          `gorm:"not null"`

	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Booking  *Booking  `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (t *CleaningTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type MaintenanceStatus string

const (
	MaintenanceStatusOpen       MaintenanceStatus = "open"
	MaintenanceStatusInProgress MaintenanceStatus = "in_progress"
	MaintenanceStatusCompleted  MaintenanceStatus = "completed"
)

// maintenance_tasks
type MaintenanceTask struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	PropertyID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	Title       string            `gorm:"type:varchar(300);not null"`
	Description string            `gorm:"type:text"`
	Status      MaintenanceStatus `gorm:"type:varchar(50);not null;default:'open';index"`
	Priority    string            `gorm:"type:varchar(20);not null;default:'normal'"`
	Cost        *float64          ``
	DueDate     *time.Time        `gorm:"type:date"`
	CompletedAt *time.Time        ``
	CreatedAt   time.Time         `gorm:"not null"`

	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (t *MaintenanceTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// inventory_items
type InventoryItem struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	PropertyID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Name             string    `gorm:"type:varchar(200);not null"`
	Quantity         int       `gorm:"not null;default:0"`
	ReorderThreshold int       `gorm:"not null;default:2"`
	UnitCost         *float64  ``
	Notes            string    `gorm:"type:text"`

	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// NeedsReorder reports whether the stocked quantity is at or below the
// reorder threshold.
func (i *InventoryItem) NeedsReorder() bool {
	return i.Quantity <= i.ReorderThreshold
}
