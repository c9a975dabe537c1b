package models

import "time"

// Supplies is the stock a supplier has available for a part. A row whose stock
// reaches zero is deleted.
type Supplies struct {
	PartID     uint `gorm:"primaryKey;autoIncrement:false"`
	SupplierID uint `gorm:"primaryKey;autoIncrement:false"`
	Stock      int  `gorm:"not null;check:chk_supplies_stock,stock >= 0"`
	UpdatedAt  time.Time
}

func (Supplies) TableName() string { return "supplies" }

// StoredIn is the on-hand quantity of a part on a warehouse rack. A rack holds
// at most one (warehouse, part) pair, enforced by the unique rack index.
type StoredIn struct {
	WarehouseID uint `gorm:"primaryKey;autoIncrement:false"`
	PartID      uint `gorm:"primaryKey;autoIncrement:false"`
	RackID      uint `gorm:"primaryKey;autoIncrement:false;uniqueIndex:uq_stored_in_rack"`
	Quantity    int  `gorm:"not null;check:chk_stored_in_quantity,quantity >= 0"`
	UpdatedAt   time.Time
}

func (StoredIn) TableName() string { return "stored_in" }
