package transactions

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

// TransferService moves parts from one warehouse rack to a rack in another
// warehouse. Total quantity of the part is conserved.
type TransferService struct {
	service
}

func NewTransferService(s store.Store, logger *zap.Logger) *TransferService {
	return &TransferService{service{store: s, log: logger.Named("transfer")}}
}

type transferState struct {
	tx           store.Store
	in           TransferInput
	sourceRack   uint
	sourceQty    int
	destCapacity int
	destQty      int
	before       *models.TransferTransaction
	record       models.TransferTransaction
}

var transferChecks = Pipeline[*transferState]{
	{Name: "parties", Run: transferParties},
	{Name: "resolve_source_rack", Run: transferResolveSourceRack},
	{Name: "source_quantity", Run: func(ctx context.Context, st *transferState) (err error) {
		st.sourceQty, err = CheckWarehouseQuantity(ctx, st.tx, st.in.WarehouseID, st.in.PartID, st.sourceRack, st.in.PartAmount)
		return err
	}},
	{Name: "destination_rack_exists", Run: transferDestinationRackExists},
	{Name: "destination_rack_exclusivity", Run: transferDestinationExclusivity},
	{Name: "destination_rack_assignment", Run: transferDestinationAssignment},
	{Name: "destination_rack_capacity", Run: func(ctx context.Context, st *transferState) (err error) {
		st.destQty, err = CheckRackCapacity(ctx, st.tx, st.in.ToWarehouse, st.in.PartID, st.in.ToRack, st.destCapacity, st.in.PartAmount)
		return err
	}},
}

var transferModifyChecks = Pipeline[*transferState]{
	{Name: "parties", Run: transferParties},
	{Name: "resolve_source_rack", Run: transferResolveSourceRack},
	{Name: "destination_rack_exists", Run: transferDestinationRackExists},
	{Name: "destination_rack_exclusivity", Run: transferDestinationExclusivity},
	{Name: "destination_rack_assignment", Run: transferDestinationAssignment},
}

// transferParties checks that the part and both warehouses exist and that the
// sender works at the source and the requester at the destination.
func transferParties(ctx context.Context, st *transferState) error {
	if err := CheckPartExists(ctx, st.tx, st.in.PartID); err != nil {
		return err
	}
	if err := CheckWarehouseExists(ctx, st.tx, st.in.WarehouseID); err != nil {
		return err
	}
	if err := CheckWarehouseExists(ctx, st.tx, st.in.ToWarehouse); err != nil {
		return err
	}
	if err := CheckUserInWarehouse(ctx, st.tx, st.in.UserID, st.in.WarehouseID); err != nil {
		return err
	}
	return CheckUserInWarehouse(ctx, st.tx, st.in.UserRequester, st.in.ToWarehouse)
}

func transferResolveSourceRack(ctx context.Context, st *transferState) (err error) {
	if st.sourceRack, err = ResolveRack(ctx, st.tx, st.in.WarehouseID, st.in.PartID); err != nil {
		return err
	}
	return lockRows(ctx, st.tx, store.LockSet{Racks: []uint{st.sourceRack, st.in.ToRack}})
}

func transferDestinationRackExists(ctx context.Context, st *transferState) (err error) {
	st.destCapacity, err = CheckRackExists(ctx, st.tx, st.in.ToRack)
	return err
}

func transferDestinationExclusivity(ctx context.Context, st *transferState) error {
	return CheckRackExclusivity(ctx, st.tx, st.in.ToRack, st.in.ToWarehouse, st.in.PartID)
}

func transferDestinationAssignment(ctx context.Context, st *transferState) error {
	return CheckDestinationRack(ctx, st.tx, st.in.ToWarehouse, st.in.PartID, st.in.ToRack)
}

// Destination first, then source, then the record.
var transferCommit = Pipeline[*transferState]{
	{Name: "increase_destination_quantity", Run: func(ctx context.Context, st *transferState) error {
		return st.tx.UpsertQuantity(ctx, st.in.ToWarehouse, st.in.PartID, st.in.ToRack, st.destQty+st.in.PartAmount)
	}},
	{Name: "decrease_source_quantity", Run: func(ctx context.Context, st *transferState) error {
		return st.tx.UpsertQuantity(ctx, st.in.WarehouseID, st.in.PartID, st.sourceRack, st.sourceQty-st.in.PartAmount)
	}},
	{Name: "insert_transaction", Run: func(ctx context.Context, st *transferState) error {
		base := newTransaction(st.in.BaseInput)
		if _, err := st.tx.InsertTransaction(ctx, &base); err != nil {
			return err
		}
		st.record = models.TransferTransaction{
			TransactionID:          base.ID,
			DestinationWarehouseID: st.in.ToWarehouse,
			RequestingUserID:       st.in.UserRequester,
			DestinationRackID:      st.in.ToRack,
		}
		if _, err := st.tx.InsertTransfer(ctx, &st.record); err != nil {
			return err
		}
		st.record.Transaction = base
		return nil
	}},
	{Name: "audit_log", Run: func(ctx context.Context, st *transferState) error {
		return audit.WriteLog(ctx, st.tx, audit.LogOptions{
			WarehouseID: &st.in.WarehouseID,
			UserID:      st.in.UserID,
			EntityType:  audit.EntityTransfer,
			EntityID:    st.record.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%d parts of part %d from rack %d to warehouse %d rack %d",
				st.in.PartAmount, st.in.PartID, st.sourceRack, st.in.ToWarehouse, st.in.ToRack),
			After: NewTransferView(st.record),
		})
	}},
}

var transferModifyCommit = Pipeline[*transferState]{
	{Name: "update_transaction", Run: func(ctx context.Context, st *transferState) error {
		ext := models.TransferTransaction{
			DestinationWarehouseID: st.in.ToWarehouse,
			RequestingUserID:       st.in.UserRequester,
			DestinationRackID:      st.in.ToRack,
		}
		if err := st.tx.UpdateTransfer(ctx, st.before.ID, newTransaction(st.in.BaseInput), ext); err != nil {
			return err
		}
		after, err := st.tx.GetTransfer(ctx, st.before.ID)
		if err != nil {
			return err
		}
		st.record = *after
		return nil
	}},
	{Name: "audit_log", Run: func(ctx context.Context, st *transferState) error {
		return audit.WriteLog(ctx, st.tx, audit.LogOptions{
			WarehouseID: &st.in.WarehouseID,
			UserID:      st.in.UserID,
			EntityType:  audit.EntityTransfer,
			EntityID:    st.record.ID,
			Action:      models.AuditActionUpdate,
			Description: "transfer modified, stored quantities not re-adjusted",
			Before:      NewTransferView(*st.before),
			After:       NewTransferView(st.record),
		})
	}},
}

func (s *TransferService) lockSet(in TransferInput) store.LockSet {
	return store.LockSet{Warehouses: []uint{in.WarehouseID, in.ToWarehouse}}
}

// Create validates and commits a warehouse to warehouse movement.
func (s *TransferService) Create(ctx context.Context, in TransferInput) (*models.TransferTransaction, error) {
	st := &transferState{in: in}
	fields := append(baseFields(in.BaseInput),
		zap.Uint("to_warehouse_id", in.ToWarehouse),
		zap.Uint("to_rack_id", in.ToRack),
		zap.Uint("requester_id", in.UserRequester))

	err := s.unit(ctx, "create", fields, func(tx store.Store) error {
		st.tx = tx
		if err := lockRows(ctx, tx, s.lockSet(in)); err != nil {
			return err
		}
		if err := transferChecks.Check(ctx, st); err != nil {
			return err
		}
		return transferCommit.Commit(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("transaction committed", append(fields,
		zap.Uint("transfer_id", st.record.ID),
		zap.Uint("transaction_id", st.record.TransactionID),
		zap.Uint("from_rack_id", st.sourceRack))...)
	return &st.record, nil
}

// Modify rewrites the transaction rows only.
func (s *TransferService) Modify(ctx context.Context, id uint, in TransferInput) (*models.TransferTransaction, error) {
	st := &transferState{in: in}
	fields := append(baseFields(in.BaseInput), zap.Uint("transfer_id", id))

	err := s.unit(ctx, "modify", fields, func(tx store.Store) error {
		st.tx = tx
		err := lockRows(ctx, tx, s.lockSet(in))
		if err != nil {
			return err
		}
		if st.before, err = tx.GetTransfer(ctx, id); err != nil {
			return lookup(err, "Transfer", id)
		}
		if err := transferModifyChecks.Check(ctx, st); err != nil {
			return err
		}
		return transferModifyCommit.Commit(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("transaction modified", fields...)
	return &st.record, nil
}

func (s *TransferService) Get(ctx context.Context, id uint) (*models.TransferTransaction, error) {
	tt, err := s.store.GetTransfer(ctx, id)
	if err != nil {
		return nil, lookup(err, "Transfer", id)
	}
	return tt, nil
}

func (s *TransferService) List(ctx context.Context) ([]models.TransferTransaction, error) {
	rows, err := s.store.ListTransfers(ctx)
	if err != nil {
		return nil, internalError("list transfers", err)
	}
	return rows, nil
}
