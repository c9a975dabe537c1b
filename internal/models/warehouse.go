package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxBudget bounds Warehouse.Budget, stored as numeric(14,2).
var MaxBudget = decimal.New(1, 12)

// Warehouse.Budget is decreased by purchases and increased by sales; it must
// never go negative.
type Warehouse struct {
	ID        uint            `gorm:"primaryKey"`
	Name      string          `gorm:"size:100;not null"`
	City      string          `gorm:"size:100"`
	Budget    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0;check:chk_warehouses_budget,budget >= 0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}

type Rack struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	Capacity  int    `gorm:"not null;check:chk_racks_capacity,capacity > 0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
