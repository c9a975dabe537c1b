// Package postgres implements store.Store on gorm. Units of work map onto
// database transactions; Lock takes SELECT ... FOR UPDATE row locks.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

type Store struct {
	db   *gorm.DB
	inTx bool
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func lockForUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

func (s *Store) Lock(ctx context.Context, set store.LockSet) error {
	if !s.inTx {
		return store.ErrNoTransaction
	}
	set = set.Normalize()

	if len(set.Warehouses) > 0 {
		var ids []uint
		err := s.conn(ctx).Clauses(lockForUpdate()).
			Model(&models.Warehouse{}).
			Where("id IN ?", set.Warehouses).
			Order("id").
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("lock warehouses: %w", translate(err))
		}
	}

	if len(set.Racks) > 0 {
		var ids []uint
		err := s.conn(ctx).Clauses(lockForUpdate()).
			Model(&models.Rack{}).
			Where("id IN ?", set.Racks).
			Order("id").
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("lock racks: %w", translate(err))
		}
	}

	if len(set.Supplies) > 0 {
		pairs := make([][]any, 0, len(set.Supplies))
		for _, k := range set.Supplies {
			pairs = append(pairs, []any{k.PartID, k.SupplierID})
		}
		var rows []models.Supplies
		err := s.conn(ctx).Clauses(lockForUpdate()).
			Where("(part_id, supplier_id) IN ?", pairs).
			Order("part_id, supplier_id").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("lock supplies: %w", translate(err))
		}
	}

	return nil
}

func (s *Store) exists(ctx context.Context, model any, id uint) (bool, error) {
	var n int64
	if err := s.conn(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (s *Store) PartExists(ctx context.Context, partID uint) (bool, error) {
	return s.exists(ctx, &models.Part{}, partID)
}

func (s *Store) RackCapacity(ctx context.Context, rackID uint) (int, error) {
	var r models.Rack
	if err := s.conn(ctx).Select("id", "capacity").Take(&r, rackID).Error; err != nil {
		return 0, translate(err)
	}
	return r.Capacity, nil
}

func (s *Store) RackAssignment(ctx context.Context, rackID uint) (*store.Assignment, error) {
	var row models.StoredIn
	err := s.conn(ctx).Where("rack_id = ?", rackID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &store.Assignment{WarehouseID: row.WarehouseID, PartID: row.PartID}, nil
}

func (s *Store) WarehouseExists(ctx context.Context, warehouseID uint) (bool, error) {
	return s.exists(ctx, &models.Warehouse{}, warehouseID)
}

func (s *Store) WarehouseBudget(ctx context.Context, warehouseID uint) (decimal.Decimal, error) {
	var w models.Warehouse
	if err := s.conn(ctx).Select("id", "budget").Take(&w, warehouseID).Error; err != nil {
		return decimal.Zero, translate(err)
	}
	return w.Budget, nil
}

func (s *Store) AdjustBudget(ctx context.Context, warehouseID uint, delta decimal.Decimal, dir store.BudgetDirection) error {
	if delta.IsNegative() {
		return fmt.Errorf("adjust budget: negative delta %s", delta)
	}

	q := s.conn(ctx).Model(&models.Warehouse{}).Where("id = ?", warehouseID)
	var res *gorm.DB
	switch dir {
	case store.BudgetIncrease:
		res = q.Update("budget", gorm.Expr("budget + ?", delta))
	case store.BudgetDecrease:
		res = q.Where("budget >= ?", delta).Update("budget", gorm.Expr("budget - ?", delta))
	default:
		return fmt.Errorf("adjust budget: unknown direction %d", dir)
	}

	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNoRowsAffected
	}
	return nil
}

func (s *Store) HomeWarehouseOf(ctx context.Context, userID uint) (uint, error) {
	var u models.User
	if err := s.conn(ctx).Select("id", "warehouse_id").Take(&u, userID).Error; err != nil {
		return 0, translate(err)
	}
	return u.WarehouseID, nil
}

func (s *Store) SupplierStock(ctx context.Context, partID, supplierID uint) (int, error) {
	var row models.Supplies
	err := s.conn(ctx).
		Where("part_id = ? AND supplier_id = ?", partID, supplierID).
		Take(&row).Error
	if err != nil {
		return 0, translate(err)
	}
	return row.Stock, nil
}

func (s *Store) DecrementStock(ctx context.Context, partID, supplierID uint, amount int) error {
	if amount <= 0 {
		return store.ErrNoRowsAffected
	}

	res := s.conn(ctx).Model(&models.Supplies{}).
		Where("part_id = ? AND supplier_id = ? AND stock >= ?", partID, supplierID, amount).
		Update("stock", gorm.Expr("stock - ?", amount))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNoRowsAffected
	}
	return nil
}

func (s *Store) DeleteSupplies(ctx context.Context, partID, supplierID uint) error {
	res := s.conn(ctx).
		Where("part_id = ? AND supplier_id = ?", partID, supplierID).
		Delete(&models.Supplies{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNoRowsAffected
	}
	return nil
}

func (s *Store) StoredQuantity(ctx context.Context, warehouseID, partID, rackID uint) (int, error) {
	var row models.StoredIn
	err := s.conn(ctx).
		Where("warehouse_id = ? AND part_id = ? AND rack_id = ?", warehouseID, partID, rackID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, translate(err)
	}
	return row.Quantity, nil
}

func (s *Store) UpsertQuantity(ctx context.Context, warehouseID, partID, rackID uint, quantity int) error {
	row := models.StoredIn{
		WarehouseID: warehouseID,
		PartID:      partID,
		RackID:      rackID,
		Quantity:    quantity,
	}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "part_id"}, {Name: "rack_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(&row).Error
	return translate(err)
}

func (s *Store) RackFor(ctx context.Context, warehouseID, partID uint) (uint, error) {
	var row models.StoredIn
	err := s.conn(ctx).
		Where("warehouse_id = ? AND part_id = ?", warehouseID, partID).
		Order("rack_id").
		Take(&row).Error
	if err != nil {
		return 0, translate(err)
	}
	return row.RackID, nil
}

func (s *Store) InsertTransaction(ctx context.Context, t *models.Transaction) (uint, error) {
	if err := s.conn(ctx).Omit(clause.Associations).Create(t).Error; err != nil {
		return 0, translate(err)
	}
	return t.ID, nil
}

func (s *Store) InsertIncoming(ctx context.Context, it *models.IncomingTransaction) (uint, error) {
	if err := s.conn(ctx).Omit(clause.Associations).Create(it).Error; err != nil {
		return 0, translate(err)
	}
	return it.ID, nil
}

func (s *Store) InsertOutgoing(ctx context.Context, ot *models.OutgoingTransaction) (uint, error) {
	if err := s.conn(ctx).Omit(clause.Associations).Create(ot).Error; err != nil {
		return 0, translate(err)
	}
	return ot.ID, nil
}

func (s *Store) InsertTransfer(ctx context.Context, tt *models.TransferTransaction) (uint, error) {
	if err := s.conn(ctx).Omit(clause.Associations).Create(tt).Error; err != nil {
		return 0, translate(err)
	}
	return tt.ID, nil
}

// baseOf returns the transaction id behind an extension row.
func (s *Store) baseOf(ctx context.Context, model any, id uint) (uint, error) {
	var tids []uint
	err := s.conn(ctx).Model(model).Where("id = ?", id).Pluck("transaction_id", &tids).Error
	if err != nil {
		return 0, translate(err)
	}
	if len(tids) == 0 {
		return 0, store.ErrNotFound
	}
	return tids[0], nil
}

func (s *Store) updateBase(ctx context.Context, transactionID uint, base models.Transaction) error {
	res := s.conn(ctx).Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Updates(map[string]any{
			"date":         base.Date,
			"part_id":      base.PartID,
			"part_amount":  base.PartAmount,
			"user_id":      base.UserID,
			"warehouse_id": base.WarehouseID,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) updateExtension(ctx context.Context, model any, id uint, base models.Transaction, fields map[string]any) error {
	tid, err := s.baseOf(ctx, model, id)
	if err != nil {
		return err
	}
	if err := s.updateBase(ctx, tid, base); err != nil {
		return err
	}
	res := s.conn(ctx).Model(model).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	return nil
}

func (s *Store) UpdateIncoming(ctx context.Context, id uint, base models.Transaction, ext models.IncomingTransaction) error {
	return s.updateExtension(ctx, &models.IncomingTransaction{}, id, base, map[string]any{
		"unit_buy_price": ext.UnitBuyPrice,
		"supplier_id":    ext.SupplierID,
		"rack_id":        ext.RackID,
	})
}

func (s *Store) UpdateOutgoing(ctx context.Context, id uint, base models.Transaction, ext models.OutgoingTransaction) error {
	return s.updateExtension(ctx, &models.OutgoingTransaction{}, id, base, map[string]any{
		"unit_sale_price": ext.UnitSalePrice,
		"customer_id":     ext.CustomerID,
	})
}

func (s *Store) UpdateTransfer(ctx context.Context, id uint, base models.Transaction, ext models.TransferTransaction) error {
	return s.updateExtension(ctx, &models.TransferTransaction{}, id, base, map[string]any{
		"destination_warehouse_id": ext.DestinationWarehouseID,
		"requesting_user_id":       ext.RequestingUserID,
		"destination_rack_id":      ext.DestinationRackID,
	})
}

func (s *Store) GetIncoming(ctx context.Context, id uint) (*models.IncomingTransaction, error) {
	var row models.IncomingTransaction
	if err := s.conn(ctx).Preload("Transaction").Take(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (s *Store) GetOutgoing(ctx context.Context, id uint) (*models.OutgoingTransaction, error) {
	var row models.OutgoingTransaction
	if err := s.conn(ctx).Preload("Transaction").Take(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (s *Store) GetTransfer(ctx context.Context, id uint) (*models.TransferTransaction, error) {
	var row models.TransferTransaction
	if err := s.conn(ctx).Preload("Transaction").Take(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (s *Store) ListIncoming(ctx context.Context) ([]models.IncomingTransaction, error) {
	rows := make([]models.IncomingTransaction, 0)
	if err := s.conn(ctx).Preload("Transaction").Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (s *Store) ListOutgoing(ctx context.Context) ([]models.OutgoingTransaction, error) {
	rows := make([]models.OutgoingTransaction, 0)
	if err := s.conn(ctx).Preload("Transaction").Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (s *Store) ListTransfers(ctx context.Context) ([]models.TransferTransaction, error) {
	rows := make([]models.TransferTransaction, 0)
	if err := s.conn(ctx).Preload("Transaction").Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (s *Store) withExtensions(ctx context.Context) *gorm.DB {
	return s.conn(ctx).Preload("Incoming").Preload("Outgoing").Preload("Transfer")
}

func (s *Store) GetTransaction(ctx context.Context, id uint) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.withExtensions(ctx).Take(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]models.Transaction, error) {
	q := s.withExtensions(ctx).Model(&models.Transaction{})
	if f.WarehouseID != nil {
		inbound := s.conn(ctx).Model(&models.TransferTransaction{}).
			Select("transaction_id").
			Where("destination_warehouse_id = ?", *f.WarehouseID)
		q = q.Where("warehouse_id = ? OR id IN (?)", *f.WarehouseID, inbound)
	}

	rows := make([]models.Transaction, 0)
	if err := q.Order("date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (s *Store) InsertAuditLog(ctx context.Context, l *models.AuditLog) error {
	return translate(s.conn(ctx).Create(l).Error)
}

func (s *Store) ListAuditLogs(ctx context.Context, f store.AuditFilter) ([]models.AuditLog, error) {
	q := s.conn(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != nil {
		q = q.Where("entity_id = ?", *f.EntityID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.WarehouseID != nil {
		q = q.Where("warehouse_id = ?", *f.WarehouseID)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", *f.Since)
	}

	rows := make([]models.AuditLog, 0)
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}
