// Package transactions validates and commits incoming, outgoing and transfer
// movements. Every create and modify runs in one store unit of work: rows are
// locked, checks run fail-fast, then the writes run in a fixed order. Any
// failure rolls the whole unit back.
package transactions

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

type service struct {
	store store.Store
	log   *zap.Logger
}

// unit runs fn atomically and logs the outcome. Untyped errors escaping InTx
// come from the final commit.
func (s service) unit(ctx context.Context, op string, fields []zap.Field, fn func(tx store.Store) error) error {
	err := s.store.InTx(ctx, fn)
	if err == nil {
		return nil
	}

	var e *Error
	switch {
	case errors.As(err, &e):
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e = internalError(op, err)
	default:
		e = commitError("commit", err)
	}

	logFields := make([]zap.Field, 0, len(fields)+5)
	logFields = append(logFields, fields...)
	logFields = append(logFields, zap.String("op", op), zap.String("error_kind", string(e.Kind)))

	switch e.Kind {
	case KindCommitFailed:
		s.log.Error("transaction commit failed",
			append(logFields, zap.Bool("alarm", true), zap.String("step", e.Step), zap.Error(e.Err))...)
	case KindInternal:
		s.log.Error("transaction failed", append(logFields, zap.Error(e.Err))...)
	default:
		s.log.Debug("transaction rejected", append(logFields, zap.String("reason", e.Message))...)
	}
	return e
}

func lockRows(ctx context.Context, tx store.Store, set store.LockSet) error {
	if err := tx.Lock(ctx, set); err != nil {
		return internalError("row lock", err)
	}
	return nil
}

func newTransaction(b BaseInput) models.Transaction {
	return models.Transaction{
		Date:        b.Date,
		PartID:      b.PartID,
		PartAmount:  b.PartAmount,
		UserID:      b.UserID,
		WarehouseID: b.WarehouseID,
	}
}

func baseFields(b BaseInput) []zap.Field {
	return []zap.Field{
		zap.Uint("warehouse_id", b.WarehouseID),
		zap.Uint("part_id", b.PartID),
		zap.Int("amount", b.PartAmount),
		zap.Uint("user_id", b.UserID),
	}
}

// lookup maps a get-by-id store error onto not_found or internal.
func lookup(err error, what string, id uint) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFoundError("%s (%d) not found", what, id)
	}
	return internalError(what+" lookup", err)
}
