// Package memory is an in-process store.Store. A single mutex serializes every
// unit of work; InTx runs against a copy of the data and publishes it only when
// the unit succeeds.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

type storedKey struct {
	warehouseID uint
	partID      uint
	rackID      uint
}

type dataset struct {
	parts        map[uint]models.Part
	racks        map[uint]models.Rack
	warehouses   map[uint]models.Warehouse
	users        map[uint]models.User
	supplies     map[store.SuppliesKey]int
	stored       map[storedKey]int
	transactions map[uint]models.Transaction
	incoming     map[uint]models.IncomingTransaction
	outgoing     map[uint]models.OutgoingTransaction
	transfers    map[uint]models.TransferTransaction
	audit        []models.AuditLog
	seq          map[string]uint
}

func newDataset() *dataset {
	return &dataset{
		parts:        map[uint]models.Part{},
		racks:        map[uint]models.Rack{},
		warehouses:   map[uint]models.Warehouse{},
		users:        map[uint]models.User{},
		supplies:     map[store.SuppliesKey]int{},
		stored:       map[storedKey]int{},
		transactions: map[uint]models.Transaction{},
		incoming:     map[uint]models.IncomingTransaction{},
		outgoing:     map[uint]models.OutgoingTransaction{},
		transfers:    map[uint]models.TransferTransaction{},
		seq:          map[string]uint{},
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		parts:        maps.Clone(d.parts),
		racks:        maps.Clone(d.racks),
		warehouses:   maps.Clone(d.warehouses),
		users:        maps.Clone(d.users),
		supplies:     maps.Clone(d.supplies),
		stored:       maps.Clone(d.stored),
		transactions: maps.Clone(d.transactions),
		incoming:     maps.Clone(d.incoming),
		outgoing:     maps.Clone(d.outgoing),
		transfers:    maps.Clone(d.transfers),
		audit:        slices.Clone(d.audit),
		seq:          maps.Clone(d.seq),
	}
}

func (d *dataset) next(table string) uint {
	d.seq[table]++
	return d.seq[table]
}

// reserve keeps the sequence ahead of explicitly seeded ids.
func (d *dataset) reserve(table string, id uint) uint {
	if id == 0 {
		return d.next(table)
	}
	if id > d.seq[table] {
		d.seq[table] = id
	}
	return id
}

type faults struct {
	mu   sync.Mutex
	byOp map[string]error
}

type Store struct {
	mu     *sync.Mutex
	data   *dataset
	faults *faults
	inTx   bool
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		mu:     &sync.Mutex{},
		data:   newDataset(),
		faults: &faults{byOp: map[string]error{}},
		now:    time.Now,
	}
}

// FailOn makes every later call of the named write operation (for example
// "UpsertQuantity") return err until ClearFaults is called.
func (s *Store) FailOn(op string, err error) {
	s.faults.mu.Lock()
	defer s.faults.mu.Unlock()
	s.faults.byOp[op] = err
}

func (s *Store) ClearFaults() {
	s.faults.mu.Lock()
	defer s.faults.mu.Unlock()
	clear(s.faults.byOp)
}

func (s *Store) fault(op string) error {
	s.faults.mu.Lock()
	defer s.faults.mu.Unlock()
	return s.faults.byOp[op]
}

// guard locks the store for a single call. Inside InTx the outer unit already
// holds the lock.
func (s *Store) guard() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, data: s.data.clone(), faults: s.faults, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	if err := s.fault("Commit"); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) Lock(ctx context.Context, _ store.LockSet) error {
	if !s.inTx {
		return store.ErrNoTransaction
	}
	return ctx.Err()
}

// ---- seeding ----

func (s *Store) AddPart(p models.Part) uint {
	defer s.guard()()
	p.ID = s.data.reserve("parts", p.ID)
	s.data.parts[p.ID] = p
	return p.ID
}

func (s *Store) AddRack(r models.Rack) uint {
	defer s.guard()()
	r.ID = s.data.reserve("racks", r.ID)
	s.data.racks[r.ID] = r
	return r.ID
}

func (s *Store) AddWarehouse(w models.Warehouse) uint {
	defer s.guard()()
	w.ID = s.data.reserve("warehouses", w.ID)
	w.Users = nil
	s.data.warehouses[w.ID] = w
	return w.ID
}

func (s *Store) AddUser(u models.User) uint {
	defer s.guard()()
	u.ID = s.data.reserve("users", u.ID)
	s.data.users[u.ID] = u
	return u.ID
}

func (s *Store) SetSupplies(partID, supplierID uint, stock int) {
	defer s.guard()()
	s.data.supplies[store.SuppliesKey{PartID: partID, SupplierID: supplierID}] = stock
}

func (s *Store) SetStored(warehouseID, partID, rackID uint, quantity int) {
	defer s.guard()()
	s.data.stored[storedKey{warehouseID, partID, rackID}] = quantity
}

// HasSupplies reports whether a supplies row exists for the pair.
func (s *Store) HasSupplies(partID, supplierID uint) bool {
	defer s.guard()()
	_, ok := s.data.supplies[store.SuppliesKey{PartID: partID, SupplierID: supplierID}]
	return ok
}

// ---- parts, racks, warehouses ----

func (s *Store) PartExists(_ context.Context, partID uint) (bool, error) {
	defer s.guard()()
	_, ok := s.data.parts[partID]
	return ok, nil
}

func (s *Store) RackCapacity(_ context.Context, rackID uint) (int, error) {
	defer s.guard()()
	r, ok := s.data.racks[rackID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return r.Capacity, nil
}

func (s *Store) RackAssignment(_ context.Context, rackID uint) (*store.Assignment, error) {
	defer s.guard()()
	for k := range s.data.stored {
		if k.rackID == rackID {
			return &store.Assignment{WarehouseID: k.warehouseID, PartID: k.partID}, nil
		}
	}
	return nil, nil
}

func (s *Store) WarehouseExists(_ context.Context, warehouseID uint) (bool, error) {
	defer s.guard()()
	_, ok := s.data.warehouses[warehouseID]
	return ok, nil
}

func (s *Store) WarehouseBudget(_ context.Context, warehouseID uint) (decimal.Decimal, error) {
	defer s.guard()()
	w, ok := s.data.warehouses[warehouseID]
	if !ok {
		return decimal.Zero, store.ErrNotFound
	}
	return w.Budget, nil
}

func (s *Store) AdjustBudget(_ context.Context, warehouseID uint, delta decimal.Decimal, dir store.BudgetDirection) error {
	defer s.guard()()
	if err := s.fault("AdjustBudget"); err != nil {
		return err
	}
	if delta.IsNegative() {
		return fmt.Errorf("adjust budget: negative delta %s", delta)
	}

	w, ok := s.data.warehouses[warehouseID]
	if !ok {
		return store.ErrNoRowsAffected
	}

	switch dir {
	case store.BudgetIncrease:
		w.Budget = w.Budget.Add(delta)
	case store.BudgetDecrease:
		if w.Budget.LessThan(delta) {
			return store.ErrNoRowsAffected
		}
		w.Budget = w.Budget.Sub(delta)
	default:
		return fmt.Errorf("adjust budget: unknown direction %d", dir)
	}

	w.UpdatedAt = s.now()
	s.data.warehouses[warehouseID] = w
	return nil
}

func (s *Store) HomeWarehouseOf(_ context.Context, userID uint) (uint, error) {
	defer s.guard()()
	u, ok := s.data.users[userID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return u.WarehouseID, nil
}

// ---- supplies ----

func (s *Store) SupplierStock(_ context.Context, partID, supplierID uint) (int, error) {
	defer s.guard()()
	stock, ok := s.data.supplies[store.SuppliesKey{PartID: partID, SupplierID: supplierID}]
	if !ok {
		return 0, store.ErrNotFound
	}
	return stock, nil
}

func (s *Store) DecrementStock(_ context.Context, partID, supplierID uint, amount int) error {
	defer s.guard()()
	if err := s.fault("DecrementStock"); err != nil {
		return err
	}

	key := store.SuppliesKey{PartID: partID, SupplierID: supplierID}
	stock, ok := s.data.supplies[key]
	if !ok || amount <= 0 || stock < amount {
		return store.ErrNoRowsAffected
	}
	s.data.supplies[key] = stock - amount
	return nil
}

func (s *Store) DeleteSupplies(_ context.Context, partID, supplierID uint) error {
	defer s.guard()()
	if err := s.fault("DeleteSupplies"); err != nil {
		return err
	}

	key := store.SuppliesKey{PartID: partID, SupplierID: supplierID}
	if _, ok := s.data.supplies[key]; !ok {
		return store.ErrNoRowsAffected
	}
	delete(s.data.supplies, key)
	return nil
}

// ---- stored_in ----

func (s *Store) StoredQuantity(_ context.Context, warehouseID, partID, rackID uint) (int, error) {
	defer s.guard()()
	return s.data.stored[storedKey{warehouseID, partID, rackID}], nil
}

func (s *Store) UpsertQuantity(_ context.Context, warehouseID, partID, rackID uint, quantity int) error {
	defer s.guard()()
	if err := s.fault("UpsertQuantity"); err != nil {
		return err
	}
	if quantity < 0 {
		return fmt.Errorf("%w: stored quantity %d < 0", store.ErrConstraint, quantity)
	}
	if rackID == 0 {
		return store.ErrNoRowsAffected
	}

	key := storedKey{warehouseID, partID, rackID}
	for k := range s.data.stored {
		if k.rackID == rackID && k != key {
			return fmt.Errorf("%w: rack %d already holds warehouse %d part %d", store.ErrConflict, rackID, k.warehouseID, k.partID)
		}
	}
	s.data.stored[key] = quantity
	return nil
}

func (s *Store) RackFor(_ context.Context, warehouseID, partID uint) (uint, error) {
	defer s.guard()()
	var found uint
	for k := range s.data.stored {
		if k.warehouseID == warehouseID && k.partID == partID && (found == 0 || k.rackID < found) {
			found = k.rackID
		}
	}
	if found == 0 {
		return 0, store.ErrNotFound
	}
	return found, nil
}

// ---- transactions ----

func (s *Store) InsertTransaction(_ context.Context, t *models.Transaction) (uint, error) {
	defer s.guard()()
	if err := s.fault("InsertTransaction"); err != nil {
		return 0, err
	}

	row := *t
	row.ID = s.data.next("transactions")
	row.CreatedAt = s.now()
	row.UpdatedAt = row.CreatedAt
	row.Incoming, row.Outgoing, row.Transfer = nil, nil, nil
	s.data.transactions[row.ID] = row

	t.ID = row.ID
	return row.ID, nil
}

// checkExtension guards the one-extension-per-transaction rule.
func (s *Store) checkExtension(transactionID uint) error {
	if _, ok := s.data.transactions[transactionID]; !ok {
		return fmt.Errorf("%w: transaction %d does not exist", store.ErrConstraint, transactionID)
	}
	if _, _, _, found := s.extensionOf(transactionID); found {
		return fmt.Errorf("%w: transaction %d already has an extension", store.ErrConflict, transactionID)
	}
	return nil
}

func (s *Store) extensionOf(transactionID uint) (*models.IncomingTransaction, *models.OutgoingTransaction, *models.TransferTransaction, bool) {
	for _, it := range s.data.incoming {
		if it.TransactionID == transactionID {
			return &it, nil, nil, true
		}
	}
	for _, ot := range s.data.outgoing {
		if ot.TransactionID == transactionID {
			return nil, &ot, nil, true
		}
	}
	for _, tt := range s.data.transfers {
		if tt.TransactionID == transactionID {
			return nil, nil, &tt, true
		}
	}
	return nil, nil, nil, false
}

func (s *Store) InsertIncoming(_ context.Context, it *models.IncomingTransaction) (uint, error) {
	defer s.guard()()
	if err := s.fault("InsertIncoming"); err != nil {
		return 0, err
	}
	if err := s.checkExtension(it.TransactionID); err != nil {
		return 0, err
	}

	row := *it
	row.ID = s.data.next("incoming")
	row.Transaction = models.Transaction{}
	s.data.incoming[row.ID] = row

	it.ID = row.ID
	return row.ID, nil
}

func (s *Store) InsertOutgoing(_ context.Context, ot *models.OutgoingTransaction) (uint, error) {
	defer s.guard()()
	if err := s.fault("InsertOutgoing"); err != nil {
		return 0, err
	}
	if err := s.checkExtension(ot.TransactionID); err != nil {
		return 0, err
	}

	row := *ot
	row.ID = s.data.next("outgoing")
	row.Transaction = models.Transaction{}
	s.data.outgoing[row.ID] = row

	ot.ID = row.ID
	return row.ID, nil
}

func (s *Store) InsertTransfer(_ context.Context, tt *models.TransferTransaction) (uint, error) {
	defer s.guard()()
	if err := s.fault("InsertTransfer"); err != nil {
		return 0, err
	}
	if err := s.checkExtension(tt.TransactionID); err != nil {
		return 0, err
	}

	row := *tt
	row.ID = s.data.next("transfers")
	row.Transaction = models.Transaction{}
	s.data.transfers[row.ID] = row

	tt.ID = row.ID
	return row.ID, nil
}

func (s *Store) rewriteBase(transactionID uint, base models.Transaction) error {
	t, ok := s.data.transactions[transactionID]
	if !ok {
		return store.ErrNotFound
	}
	t.Date = base.Date
	t.PartID = base.PartID
	t.PartAmount = base.PartAmount
	t.UserID = base.UserID
	t.WarehouseID = base.WarehouseID
	t.UpdatedAt = s.now()
	s.data.transactions[transactionID] = t
	return nil
}

func (s *Store) UpdateIncoming(_ context.Context, id uint, base models.Transaction, ext models.IncomingTransaction) error {
	defer s.guard()()
	if err := s.fault("UpdateIncoming"); err != nil {
		return err
	}

	row, ok := s.data.incoming[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := s.rewriteBase(row.TransactionID, base); err != nil {
		return err
	}
	row.UnitBuyPrice = ext.UnitBuyPrice
	row.SupplierID = ext.SupplierID
	row.RackID = ext.RackID
	s.data.incoming[id] = row
	return nil
}

func (s *Store) UpdateOutgoing(_ context.Context, id uint, base models.Transaction, ext models.OutgoingTransaction) error {
	defer s.guard()()
	if err := s.fault("UpdateOutgoing"); err != nil {
		return err
	}

	row, ok := s.data.outgoing[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := s.rewriteBase(row.TransactionID, base); err != nil {
		return err
	}
	row.UnitSalePrice = ext.UnitSalePrice
	row.CustomerID = ext.CustomerID
	s.data.outgoing[id] = row
	return nil
}

func (s *Store) UpdateTransfer(_ context.Context, id uint, base models.Transaction, ext models.TransferTransaction) error {
	defer s.guard()()
	if err := s.fault("UpdateTransfer"); err != nil {
		return err
	}

	row, ok := s.data.transfers[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := s.rewriteBase(row.TransactionID, base); err != nil {
		return err
	}
	row.DestinationWarehouseID = ext.DestinationWarehouseID
	row.RequestingUserID = ext.RequestingUserID
	row.DestinationRackID = ext.DestinationRackID
	s.data.transfers[id] = row
	return nil
}

func (s *Store) GetIncoming(_ context.Context, id uint) (*models.IncomingTransaction, error) {
	defer s.guard()()
	row, ok := s.data.incoming[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	row.Transaction = s.data.transactions[row.TransactionID]
	return &row, nil
}

func (s *Store) GetOutgoing(_ context.Context, id uint) (*models.OutgoingTransaction, error) {
	defer s.guard()()
	row, ok := s.data.outgoing[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	row.Transaction = s.data.transactions[row.TransactionID]
	return &row, nil
}

func (s *Store) GetTransfer(_ context.Context, id uint) (*models.TransferTransaction, error) {
	defer s.guard()()
	row, ok := s.data.transfers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	row.Transaction = s.data.transactions[row.TransactionID]
	return &row, nil
}

func (s *Store) ListIncoming(_ context.Context) ([]models.IncomingTransaction, error) {
	defer s.guard()()
	out := make([]models.IncomingTransaction, 0, len(s.data.incoming))
	for _, id := range slices.Sorted(maps.Keys(s.data.incoming)) {
		row := s.data.incoming[id]
		row.Transaction = s.data.transactions[row.TransactionID]
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) ListOutgoing(_ context.Context) ([]models.OutgoingTransaction, error) {
	defer s.guard()()
	out := make([]models.OutgoingTransaction, 0, len(s.data.outgoing))
	for _, id := range slices.Sorted(maps.Keys(s.data.outgoing)) {
		row := s.data.outgoing[id]
		row.Transaction = s.data.transactions[row.TransactionID]
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) ListTransfers(_ context.Context) ([]models.TransferTransaction, error) {
	defer s.guard()()
	out := make([]models.TransferTransaction, 0, len(s.data.transfers))
	for _, id := range slices.Sorted(maps.Keys(s.data.transfers)) {
		row := s.data.transfers[id]
		row.Transaction = s.data.transactions[row.TransactionID]
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) withExtension(t models.Transaction) models.Transaction {
	t.Incoming, t.Outgoing, t.Transfer, _ = s.extensionOf(t.ID)
	return t
}

func (s *Store) GetTransaction(_ context.Context, id uint) (*models.Transaction, error) {
	defer s.guard()()
	t, ok := s.data.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t = s.withExtension(t)
	return &t, nil
}

func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]models.Transaction, error) {
	defer s.guard()()
	out := make([]models.Transaction, 0, len(s.data.transactions))
	for _, t := range s.data.transactions {
		t = s.withExtension(t)
		if f.WarehouseID != nil {
			wid := *f.WarehouseID
			toDest := t.Transfer != nil && t.Transfer.DestinationWarehouseID == wid
			if t.WarehouseID != wid && !toDest {
				continue
			}
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b models.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})
	return out, nil
}

// ---- audit ----

func (s *Store) InsertAuditLog(_ context.Context, l *models.AuditLog) error {
	defer s.guard()()
	if err := s.fault("InsertAuditLog"); err != nil {
		return err
	}
	l.ID = s.data.next("audit_logs")
	l.CreatedAt = s.now()
	s.data.audit = append(s.data.audit, *l)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, f store.AuditFilter) ([]models.AuditLog, error) {
	defer s.guard()()
	var out []models.AuditLog
	for i := len(s.data.audit) - 1; i >= 0; i-- {
		l := s.data.audit[i]
		switch {
		case f.EntityType != "" && l.EntityType != f.EntityType:
			continue
		case f.EntityID != nil && l.EntityID != *f.EntityID:
			continue
		case f.UserID != nil && l.UserID != *f.UserID:
			continue
		case f.WarehouseID != nil && (l.WarehouseID == nil || *l.WarehouseID != *f.WarehouseID):
			continue
		case f.Since != nil && l.CreatedAt.Before(*f.Since):
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
