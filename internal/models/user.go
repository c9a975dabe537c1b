package models

import "time"

// User works at exactly one (home) warehouse and may only act on transactions
// of that warehouse.
type User struct {
	ID          uint   `gorm:"primaryKey"`
	WarehouseID uint   `gorm:"index;not null"`
	FirstName   string `gorm:"size:100;not null"`
	LastName    string `gorm:"size:100;not null"`
	Email       string `gorm:"size:100;uniqueIndex;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
