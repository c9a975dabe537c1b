package transactions

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

// IncomingService moves parts from a supplier onto a warehouse rack.
type IncomingService struct {
	service
}

func NewIncomingService(s store.Store, logger *zap.Logger) *IncomingService {
	return &IncomingService{service{store: s, log: logger.Named("incoming")}}
}

type incomingState struct {
	tx       store.Store
	in       IncomingInput
	stock    int
	cost     decimal.Decimal
	capacity int
	current  int
	before   *models.IncomingTransaction
	record   models.IncomingTransaction
}

var incomingChecks = Pipeline[*incomingState]{
	{Name: "supplier_stock", Run: func(ctx context.Context, st *incomingState) (err error) {
		st.stock, err = CheckSupplierStock(ctx, st.tx, st.in.PartID, st.in.SupplierID, st.in.PartAmount)
		return err
	}},
	{Name: "warehouse_budget", Run: func(ctx context.Context, st *incomingState) (err error) {
		st.cost, err = CheckWarehouseBudget(ctx, st.tx, st.in.UnitBuyPrice, st.in.PartAmount, st.in.WarehouseID)
		return err
	}},
	{Name: "user_in_warehouse", Run: incomingUserInWarehouse},
	{Name: "rack_exists", Run: incomingRackExists},
	{Name: "rack_exclusivity", Run: incomingRackExclusivity},
	{Name: "rack_capacity", Run: func(ctx context.Context, st *incomingState) (err error) {
		st.current, err = CheckRackCapacity(ctx, st.tx, st.in.WarehouseID, st.in.PartID, st.in.RackID, st.capacity, st.in.PartAmount)
		return err
	}},
}

var incomingModifyChecks = Pipeline[*incomingState]{
	{Name: "user_in_warehouse", Run: incomingUserInWarehouse},
	{Name: "rack_exists", Run: incomingRackExists},
	{Name: "rack_exclusivity", Run: incomingRackExclusivity},
}

func incomingUserInWarehouse(ctx context.Context, st *incomingState) error {
	return CheckUserInWarehouse(ctx, st.tx, st.in.UserID, st.in.WarehouseID)
}

func incomingRackExists(ctx context.Context, st *incomingState) (err error) {
	st.capacity, err = CheckRackExists(ctx, st.tx, st.in.RackID)
	return err
}

func incomingRackExclusivity(ctx context.Context, st *incomingState) error {
	return CheckRackExclusivity(ctx, st.tx, st.in.RackID, st.in.WarehouseID, st.in.PartID)
}

var incomingCommit = Pipeline[*incomingState]{
	{Name: "insert_transaction", Run: func(ctx context.Context, st *incomingState) error {
		base := newTransaction(st.in.BaseInput)
		if _, err := st.tx.InsertTransaction(ctx, &base); err != nil {
			return err
		}
		st.record = models.IncomingTransaction{
			TransactionID: base.ID,
			UnitBuyPrice:  st.in.UnitBuyPrice,
			SupplierID:    st.in.SupplierID,
			RackID:        st.in.RackID,
		}
		if _, err := st.tx.InsertIncoming(ctx, &st.record); err != nil {
			return err
		}
		st.record.Transaction = base
		return nil
	}},
	{Name: "decrement_stock", Run: func(ctx context.Context, st *incomingState) error {
		if err := st.tx.DecrementStock(ctx, st.in.PartID, st.in.SupplierID, st.in.PartAmount); err != nil {
			return err
		}
		if st.stock == st.in.PartAmount {
			return st.tx.DeleteSupplies(ctx, st.in.PartID, st.in.SupplierID)
		}
		return nil
	}},
	{Name: "decrease_budget", Run: func(ctx context.Context, st *incomingState) error {
		return st.tx.AdjustBudget(ctx, st.in.WarehouseID, st.cost, store.BudgetDecrease)
	}},
	{Name: "upsert_stored_quantity", Run: func(ctx context.Context, st *incomingState) error {
		return st.tx.UpsertQuantity(ctx, st.in.WarehouseID, st.in.PartID, st.in.RackID, st.current+st.in.PartAmount)
	}},
	{Name: "audit_log", Run: func(ctx context.Context, st *incomingState) error {
		return audit.WriteLog(ctx, st.tx, audit.LogOptions{
			WarehouseID: &st.in.WarehouseID,
			UserID:      st.in.UserID,
			EntityType:  audit.EntityIncoming,
			EntityID:    st.record.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%d parts of part %d from supplier %d to rack %d", st.in.PartAmount, st.in.PartID, st.in.SupplierID, st.in.RackID),
			After:       NewIncomingView(st.record),
		})
	}},
}

var incomingModifyCommit = Pipeline[*incomingState]{
	{Name: "update_transaction", Run: func(ctx context.Context, st *incomingState) error {
		ext := models.IncomingTransaction{
			UnitBuyPrice: st.in.UnitBuyPrice,
			SupplierID:   st.in.SupplierID,
			RackID:       st.in.RackID,
		}
		if err := st.tx.UpdateIncoming(ctx, st.before.ID, newTransaction(st.in.BaseInput), ext); err != nil {
			return err
		}
		after, err := st.tx.GetIncoming(ctx, st.before.ID)
		if err != nil {
			return err
		}
		st.record = *after
		return nil
	}},
	{Name: "audit_log", Run: func(ctx context.Context, st *incomingState) error {
		return audit.WriteLog(ctx, st.tx, audit.LogOptions{
			WarehouseID: &st.in.WarehouseID,
			UserID:      st.in.UserID,
			EntityType:  audit.EntityIncoming,
			EntityID:    st.record.ID,
			Action:      models.AuditActionUpdate,
			Description: "incoming transaction modified, stock and budget not re-adjusted",
			Before:      NewIncomingView(*st.before),
			After:       NewIncomingView(st.record),
		})
	}},
}

// Create validates and commits a supplier to warehouse movement.
func (s *IncomingService) Create(ctx context.Context, in IncomingInput) (*models.IncomingTransaction, error) {
	st := &incomingState{in: in}
	fields := append(baseFields(in.BaseInput), zap.Uint("supplier_id", in.SupplierID), zap.Uint("rack_id", in.RackID))

	err := s.unit(ctx, "create", fields, func(tx store.Store) error {
		st.tx = tx
		err := lockRows(ctx, tx, store.LockSet{
			Warehouses: []uint{in.WarehouseID},
			Racks:      []uint{in.RackID},
			Supplies:   []store.SuppliesKey{{PartID: in.PartID, SupplierID: in.SupplierID}},
		})
		if err != nil {
			return err
		}
		if err := incomingChecks.Check(ctx, st); err != nil {
			return err
		}
		return incomingCommit.Commit(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("transaction committed", append(fields,
		zap.Uint("incoming_id", st.record.ID),
		zap.Uint("transaction_id", st.record.TransactionID),
		zap.String("cost", st.cost.StringFixed(2)))...)
	return &st.record, nil
}

// Modify rewrites the transaction rows only. Supplier stock, budget and stored
// quantity keep the values set at creation.
func (s *IncomingService) Modify(ctx context.Context, id uint, in IncomingInput) (*models.IncomingTransaction, error) {
	st := &incomingState{in: in}
	fields := append(baseFields(in.BaseInput), zap.Uint("incoming_id", id))

	err := s.unit(ctx, "modify", fields, func(tx store.Store) error {
		st.tx = tx
		err := lockRows(ctx, tx, store.LockSet{
			Warehouses: []uint{in.WarehouseID},
			Racks:      []uint{in.RackID},
		})
		if err != nil {
			return err
		}
		if st.before, err = tx.GetIncoming(ctx, id); err != nil {
			return lookup(err, "Incoming transaction", id)
		}
		if err := incomingModifyChecks.Check(ctx, st); err != nil {
			return err
		}
		return incomingModifyCommit.Commit(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("transaction modified", fields...)
	return &st.record, nil
}

func (s *IncomingService) Get(ctx context.Context, id uint) (*models.IncomingTransaction, error) {
	it, err := s.store.GetIncoming(ctx, id)
	if err != nil {
		return nil, lookup(err, "Incoming transaction", id)
	}
	return it, nil
}

func (s *IncomingService) List(ctx context.Context) ([]models.IncomingTransaction, error) {
	rows, err := s.store.ListIncoming(ctx)
	if err != nil {
		return nil, internalError("list incoming transactions", err)
	}
	return rows, nil
}
