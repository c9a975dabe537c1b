package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

// Unit prices are stored as numeric(12,2): at most 2 decimal places and
// strictly below MaxUnitPrice.
const PriceScale = 2

var MaxUnitPrice = decimal.New(1, 10)

const (
	KindIncoming TransactionKind = "INCOMING"
	KindOutgoing TransactionKind = "OUTGOING"
	KindTransfer TransactionKind = "TRANSFER"
	KindUnknown  TransactionKind = "NOT FOUND"
)

// Transaction is the base row shared by the three movement kinds. Exactly one
// of Incoming, Outgoing or Transfer exists for a given transaction id.
type Transaction struct {
	ID          uint      `gorm:"primaryKey"`
	Date        time.Time `gorm:"type:date;index;not null"`
	PartID      uint      `gorm:"index;not null"`
	PartAmount  int       `gorm:"not null"`
	UserID      uint      `gorm:"index;not null"`
	WarehouseID uint      `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Incoming *IncomingTransaction `gorm:"foreignKey:TransactionID"`
	Outgoing *OutgoingTransaction `gorm:"foreignKey:TransactionID"`
	Transfer *TransferTransaction `gorm:"foreignKey:TransactionID"`
}

// Kind derives the movement kind from whichever extension row is loaded.
func (t Transaction) Kind() TransactionKind {
	switch {
	case t.Incoming != nil:
		return KindIncoming
	case t.Outgoing != nil:
		return KindOutgoing
	case t.Transfer != nil:
		return KindTransfer
	default:
		return KindUnknown
	}
}

// IncomingTransaction: supplier -> warehouse rack.
type IncomingTransaction struct {
	ID            uint            `gorm:"primaryKey"`
	TransactionID uint            `gorm:"uniqueIndex;not null"`
	Transaction   Transaction     `gorm:"constraint:OnDelete:CASCADE"`
	UnitBuyPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	SupplierID    uint            `gorm:"index;not null"`
	RackID        uint            `gorm:"index;not null"`
}

// OutgoingTransaction: warehouse -> customer. The rack is derived from
// StoredIn at commit time and not stored.
type OutgoingTransaction struct {
	ID            uint            `gorm:"primaryKey"`
	TransactionID uint            `gorm:"uniqueIndex;not null"`
	Transaction   Transaction     `gorm:"constraint:OnDelete:CASCADE"`
	UnitSalePrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CustomerID    uint            `gorm:"index;not null"`
}

// TransferTransaction: source warehouse (Transaction.WarehouseID) -> destination.
type TransferTransaction struct {
	ID                     uint        `gorm:"primaryKey"`
	TransactionID          uint        `gorm:"uniqueIndex;not null"`
	Transaction            Transaction `gorm:"constraint:OnDelete:CASCADE"`
	DestinationWarehouseID uint        `gorm:"index;not null"`
	RequestingUserID       uint        `gorm:"index;not null"`
	DestinationRackID      uint        `gorm:"index;not null"`
}
