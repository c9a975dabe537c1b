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

// OutgoingService moves parts from a warehouse rack to a customer. The rack is
// whichever one currently holds the part in that warehouse.
type OutgoingService struct {
	service
}

func NewOutgoingService(s store.Store, logger *zap.Logger) *OutgoingService {
	return &OutgoingService{service{store: s, log: logger.Named("outgoing")}}
}

type outgoingState struct {
	tx      store.Store
	in      OutgoingInput
	rackID  uint
	current int
	revenue decimal.Decimal
	before  *models.OutgoingTransaction
	record  models.OutgoingTransaction
}

var outgoingChecks = Pipeline[*outgoingState]{
	{Name: "user_in_warehouse", Run: outgoingUserInWarehouse},
	{Name: "resolve_rack", Run: outgoingResolveRack},
	{Name: "warehouse_quantity", Run: func(ctx context.Context, st *outgoingState) (err error) {
		st.current, err = CheckWarehouseQuantity(ctx, st.tx, st.in.WarehouseID, st.in.PartID, st.rackID, st.in.PartAmount)
		return err
	}},
	{Name: "budget_headroom", Run: func(ctx context.Context, st *outgoingState) (err error) {
		st.revenue, err = CheckBudgetHeadroom(ctx, st.tx, st.in.UnitSalePrice, st.in.PartAmount, st.in.WarehouseID)
		return err
	}},
}

var outgoingModifyChecks = Pipeline[*outgoingState]{
	{Name: "user_in_warehouse", Run: outgoingUserInWarehouse},
	{Name: "resolve_rack", Run: outgoingResolveRack},
}

func outgoingUserInWarehouse(ctx context.Context, st *outgoingState) error {
	return CheckUserInWarehouse(ctx, st.tx, st.in.UserID, st.in.WarehouseID)
}

func outgoingResolveRack(ctx context.Context, st *outgoingState) (err error) {
	if st.rackID, err = ResolveRack(ctx, st.tx, st.in.WarehouseID, st.in.PartID); err != nil {
		return err
	}
	return lockRows(ctx, st.tx, store.LockSet{Racks: []uint{st.rackID}})
}

var outgoingCommit = Pipeline[*outgoingState]{
	{Name: "insert_transaction", Run: func(ctx context.Context, st *outgoingState) error {
		base := newTransaction(st.in.BaseInput)
		if _, err := st.tx.InsertTransaction(ctx, &base); err != nil {
			return err
		}
		st.record = models.OutgoingTransaction{
			TransactionID: base.ID,
			UnitSalePrice: st.in.UnitSalePrice,
			CustomerID:    st.in.CustomerID,
		}
		if _, err := st.tx.InsertOutgoing(ctx, &st.record); err != nil {
			return err
		}
		st.record.Transaction = base
		return nil
	}},
	{Name: "increase_budget", Run: func(ctx context.Context, st *outgoingState) error {
		return st.tx.AdjustBudget(ctx, st.in.WarehouseID, st.revenue, store.BudgetIncrease)
	}},
	{Name: "update_stored_quantity", Run: func(ctx context.Context, st *outgoingState) error {
		// a rack emptied to zero keeps its row and stays assigned
		return st.tx.UpsertQuantity(ctx, st.in.WarehouseID, st.in.PartID, st.rackID, st.current-st.in.PartAmount)
	}},
	{Name: "audit_log", Run: func(ctx context.Context, st *outgoingState) error {
		return audit.WriteLog(ctx, st.tx, audit.LogOptions{
			WarehouseID: &st.in.WarehouseID,
			UserID:      st.in.UserID,
			EntityType:  audit.EntityOutgoing,
			EntityID:    st.record.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%d parts of part %d from rack %d to customer %d", st.in.PartAmount, st.in.PartID, st.rackID, st.in.CustomerID),
			After:       NewOutgoingView(st.record),
		})
	}},
}

var outgoingModifyCommit = Pipeline[*outgoingState]{
	{Name: "update_transaction", Run: func(ctx context.Context, st *outgoingState) error {
		ext := models.OutgoingTransaction{
			UnitSalePrice: st.in.UnitSalePrice,
			CustomerID:    st.in.CustomerID,
		}
		if err := st.tx.UpdateOutgoing(ctx, st.before.ID, newTransaction(st.in.BaseInput), ext); err != nil {
			return err
		}
		after, err := st.tx.GetOutgoing(ctx, st.before.ID)
		if err != nil {
			return err
		}
		st.record = *after
		return nil
	}},
	{Name: "audit_log", Run: func(ctx context.Context, st *outgoingState) error {
		return audit.WriteLog(ctx, st.tx, audit.LogOptions{
			WarehouseID: &st.in.WarehouseID,
			UserID:      st.in.UserID,
			EntityType:  audit.EntityOutgoing,
			EntityID:    st.record.ID,
			Action:      models.AuditActionUpdate,
			Description: "outgoing transaction modified, budget and stored quantity not re-adjusted",
			Before:      NewOutgoingView(*st.before),
			After:       NewOutgoingView(st.record),
		})
	}},
}

// Create validates and commits a warehouse to customer movement.
func (s *OutgoingService) Create(ctx context.Context, in OutgoingInput) (*models.OutgoingTransaction, error) {
	st := &outgoingState{in: in}
	fields := append(baseFields(in.BaseInput), zap.Uint("customer_id", in.CustomerID))

	err := s.unit(ctx, "create", fields, func(tx store.Store) error {
		st.tx = tx
		if err := lockRows(ctx, tx, store.LockSet{Warehouses: []uint{in.WarehouseID}}); err != nil {
			return err
		}
		if err := outgoingChecks.Check(ctx, st); err != nil {
			return err
		}
		return outgoingCommit.Commit(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("transaction committed", append(fields,
		zap.Uint("outgoing_id", st.record.ID),
		zap.Uint("transaction_id", st.record.TransactionID),
		zap.Uint("rack_id", st.rackID),
		zap.String("revenue", st.revenue.StringFixed(2)))...)
	return &st.record, nil
}

// Modify rewrites the transaction rows only.
func (s *OutgoingService) Modify(ctx context.Context, id uint, in OutgoingInput) (*models.OutgoingTransaction, error) {
	st := &outgoingState{in: in}
	fields := append(baseFields(in.BaseInput), zap.Uint("outgoing_id", id))

	err := s.unit(ctx, "modify", fields, func(tx store.Store) error {
		st.tx = tx
		err := lockRows(ctx, tx, store.LockSet{Warehouses: []uint{in.WarehouseID}})
		if err != nil {
			return err
		}
		if st.before, err = tx.GetOutgoing(ctx, id); err != nil {
			return lookup(err, "Outgoing transaction", id)
		}
		if err := outgoingModifyChecks.Check(ctx, st); err != nil {
			return err
		}
		return outgoingModifyCommit.Commit(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("transaction modified", fields...)
	return &st.record, nil
}

func (s *OutgoingService) Get(ctx context.Context, id uint) (*models.OutgoingTransaction, error) {
	ot, err := s.store.GetOutgoing(ctx, id)
	if err != nil {
		return nil, lookup(err, "Outgoing transaction", id)
	}
	return ot, nil
}

func (s *OutgoingService) List(ctx context.Context) ([]models.OutgoingTransaction, error) {
	rows, err := s.store.ListOutgoing(ctx)
	if err != nil {
		return nil, internalError("list outgoing transactions", err)
	}
	return rows, nil
}
