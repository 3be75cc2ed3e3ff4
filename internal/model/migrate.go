package model

import "gorm.io/gorm"

// AutoMigrate migrates every persisted entity of the rental core.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Property{},
		&Booking{},
		&CleaningTask{},
		&MaintenanceTask{},
		&InventoryItem{},
		&PricingRule{},
		&PriceOverride{},
		&MessageTemplate{},
		&MessageLog{},
		&Payout{},
		&Expense{},
		&EmailLog{},
	)
}
