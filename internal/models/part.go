package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Part struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	Color     string          `gorm:"size:50" json:"color"`
	Material  string          `gorm:"size:50" json:"material"`
	MSRP      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"msrp"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
