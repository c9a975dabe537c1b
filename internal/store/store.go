// Package store defines the Data Store the transaction workflow runs against.
//
// Reads return plain identifiers and scalars. Writes never validate business
// rules beyond the guards noted on each method; that is the caller's job. Every
// multi-step write sequence must run inside InTx so it commits or rolls back as
// one unit.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"warehouse-backend/internal/models"
)

var (
	ErrNotFound       = errors.New("store: record not found")
	ErrNoRowsAffected = errors.New("store: no rows affected")
	ErrConflict       = errors.New("store: conflicting row")
	ErrConstraint     = errors.New("store: constraint violated")
	ErrSerialization  = errors.New("store: concurrent update, retry")
	ErrNoTransaction  = errors.New("store: lock requested outside a transaction")
)

// Assignment is the (warehouse, part) pair a rack currently holds.
type Assignment struct {
	WarehouseID uint
	PartID      uint
}

type BudgetDirection int

const (
	BudgetIncrease BudgetDirection = iota + 1
	BudgetDecrease
)

func (d BudgetDirection) String() string {
	switch d {
	case BudgetIncrease:
		return "increase"
	case BudgetDecrease:
		return "decrease"
	default:
		return "unknown"
	}
}

type SuppliesKey struct {
	PartID     uint
	SupplierID uint
}

// LockSet names the rows a unit of work is about to read and write. Lock
// acquires them in a fixed order: warehouses, racks, supplies, each ascending.
type LockSet struct {
	Warehouses []uint
	Racks      []uint
	Supplies   []SuppliesKey
}

type Parts interface {
	PartExists(ctx context.Context, partID uint) (bool, error)
}

type Racks interface {
	// RackCapacity returns ErrNotFound for an unknown rack.
	RackCapacity(ctx context.Context, rackID uint) (int, error)
	// RackAssignment returns nil when the rack holds nothing.
	RackAssignment(ctx context.Context, rackID uint) (*Assignment, error)
}

type Warehouses interface {
	WarehouseExists(ctx context.Context, warehouseID uint) (bool, error)
	// WarehouseBudget returns ErrNotFound for an unknown warehouse.
	WarehouseBudget(ctx context.Context, warehouseID uint) (decimal.Decimal, error)
	// AdjustBudget returns ErrNoRowsAffected if a decrease would go negative.
	AdjustBudget(ctx context.Context, warehouseID uint, delta decimal.Decimal, dir BudgetDirection) error
	// HomeWarehouseOf returns ErrNotFound for an unknown user.
	HomeWarehouseOf(ctx context.Context, userID uint) (uint, error)
}

type Supplies interface {
	// SupplierStock returns ErrNotFound when the supplier does not carry the part.
	SupplierStock(ctx context.Context, partID, supplierID uint) (int, error)
	// DecrementStock returns ErrNoRowsAffected when stock < amount.
	DecrementStock(ctx context.Context, partID, supplierID uint, amount int) error
	DeleteSupplies(ctx context.Context, partID, supplierID uint) error
}

type StoredIn interface {
	// StoredQuantity is 0 when no row exists.
	StoredQuantity(ctx context.Context, warehouseID, partID, rackID uint) (int, error)
	UpsertQuantity(ctx context.Context, warehouseID, partID, rackID uint, quantity int) error
	// RackFor returns ErrNotFound when the part has no rack in the warehouse.
	RackFor(ctx context.Context, warehouseID, partID uint) (uint, error)
}

// TransactionFilter narrows ListTransactions. WarehouseID matches the source
// warehouse or a transfer's destination.
type TransactionFilter struct {
	WarehouseID *uint
}

type Transactions interface {
	InsertTransaction(ctx context.Context, t *models.Transaction) (uint, error)
	InsertIncoming(ctx context.Context, it *models.IncomingTransaction) (uint, error)
	InsertOutgoing(ctx context.Context, ot *models.OutgoingTransaction) (uint, error)
	InsertTransfer(ctx context.Context, tt *models.TransferTransaction) (uint, error)

	// Update* rewrite the base and extension rows of the record with the given
	// extension id. ErrNotFound when no such record exists.
	UpdateIncoming(ctx context.Context, id uint, base models.Transaction, ext models.IncomingTransaction) error
	UpdateOutgoing(ctx context.Context, id uint, base models.Transaction, ext models.OutgoingTransaction) error
	UpdateTransfer(ctx context.Context, id uint, base models.Transaction, ext models.TransferTransaction) error

	// Get* load the extension row with its base Transaction.
	GetIncoming(ctx context.Context, id uint) (*models.IncomingTransaction, error)
	GetOutgoing(ctx context.Context, id uint) (*models.OutgoingTransaction, error)
	GetTransfer(ctx context.Context, id uint) (*models.TransferTransaction, error)
	ListIncoming(ctx context.Context) ([]models.IncomingTransaction, error)
	ListOutgoing(ctx context.Context) ([]models.OutgoingTransaction, error)
	ListTransfers(ctx context.Context) ([]models.TransferTransaction, error)

	// GetTransaction and ListTransactions load the base row with whichever
	// extension exists, newest date first.
	GetTransaction(ctx context.Context, id uint) (*models.Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error)
}

type AuditFilter struct {
	EntityType  string
	EntityID    *uint
	UserID      *uint
	WarehouseID *uint
	Since       *time.Time
}

type AuditLogs interface {
	InsertAuditLog(ctx context.Context, l *models.AuditLog) error
	ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, error)
}

type Store interface {
	Parts
	Racks
	Warehouses
	Supplies
	StoredIn
	Transactions
	AuditLogs

	// Lock acquires row locks for the current transaction. It must be called
	// from within InTx.
	Lock(ctx context.Context, set LockSet) error

	// InTx runs fn in one atomic unit. If fn returns an error every write made
	// through tx is discarded. Nested calls reuse the outer unit.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
