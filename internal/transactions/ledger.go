package transactions

import (
	"context"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

// LedgerService reads the base transaction table across all three kinds.
type LedgerService struct {
	store store.Transactions
}

func NewLedgerService(s store.Transactions) *LedgerService {
	return &LedgerService{store: s}
}

// List returns transactions newest first. With a warehouse id it keeps those
// the warehouse sent plus transfers it received.
func (l *LedgerService) List(ctx context.Context, warehouseID *uint) ([]models.Transaction, error) {
	rows, err := l.store.ListTransactions(ctx, store.TransactionFilter{WarehouseID: warehouseID})
	if err != nil {
		return nil, internalError("list transactions", err)
	}
	return rows, nil
}

func (l *LedgerService) Get(ctx context.Context, id uint) (*models.Transaction, error) {
	t, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, lookup(err, "Transaction", id)
	}
	return t, nil
}
