package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/store/memory"
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// world is two warehouses with one user and one empty rack each, a part, and
// a supplier carrying 10 of it.
type world struct {
	st       *memory.Store
	logs     *observer.ObservedLogs
	logger   *zap.Logger
	wA, wB   uint
	userA    uint
	userB    uint
	part     uint
	supplier uint
	rackA    uint
	rackB    uint
}

func newWorld(t *testing.T) *world {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	st := memory.New()
	w := &world{st: st, logs: logs, logger: zap.New(core), supplier: 1}

	w.wA = st.AddWarehouse(models.Warehouse{Name: "North", Budget: decimal.NewFromInt(100)})
	w.wB = st.AddWarehouse(models.Warehouse{Name: "South", Budget: decimal.NewFromInt(100)})
	w.userA = st.AddUser(models.User{WarehouseID: w.wA, FirstName: "Ana", LastName: "Rivera", Email: "ana@example.com"})
	w.userB = st.AddUser(models.User{WarehouseID: w.wB, FirstName: "Luis", LastName: "Ortiz", Email: "luis@example.com"})
	w.part = st.AddPart(models.Part{Name: "Bolt", MSRP: decimal.NewFromInt(2)})
	w.rackA = st.AddRack(models.Rack{Name: "A1", Capacity: 20})
	w.rackB = st.AddRack(models.Rack{Name: "B1", Capacity: 20})
	st.SetSupplies(w.part, w.supplier, 10)

	return w
}

func (w *world) incoming() *IncomingService { return NewIncomingService(w.st, w.logger) }
func (w *world) outgoing() *OutgoingService { return NewOutgoingService(w.st, w.logger) }
func (w *world) transfer() *TransferService { return NewTransferService(w.st, w.logger) }

func (w *world) incomingInput(amount int, price string) IncomingInput {
	return IncomingInput{
		BaseInput:    BaseInput{Date: day, PartID: w.part, PartAmount: amount, UserID: w.userA, WarehouseID: w.wA},
		UnitBuyPrice: decimal.RequireFromString(price),
		SupplierID:   w.supplier,
		RackID:       w.rackA,
	}
}

func (w *world) outgoingInput(amount int, price string) OutgoingInput {
	return OutgoingInput{
		BaseInput:     BaseInput{Date: day, PartID: w.part, PartAmount: amount, UserID: w.userA, WarehouseID: w.wA},
		UnitSalePrice: decimal.RequireFromString(price),
		CustomerID:    7,
	}
}

func (w *world) transferInput(amount int) TransferInput {
	return TransferInput{
		BaseInput:     BaseInput{Date: day, PartID: w.part, PartAmount: amount, UserID: w.userA, WarehouseID: w.wA},
		ToWarehouse:   w.wB,
		UserRequester: w.userB,
		ToRack:        w.rackB,
	}
}

// snapshot captures every value a transaction may write.
type snapshot struct {
	stock        int
	hasSupplies  bool
	budgetA      string
	budgetB      string
	storedA      int
	storedB      int
	transactions int
	audits       int
}

func (w *world) snapshot(t *testing.T) snapshot {
	t.Helper()
	ctx := context.Background()

	var s snapshot
	stock, err := w.st.SupplierStock(ctx, w.part, w.supplier)
	if err == nil {
		s.stock, s.hasSupplies = stock, true
	}

	a, err := w.st.WarehouseBudget(ctx, w.wA)
	require.NoError(t, err)
	b, err := w.st.WarehouseBudget(ctx, w.wB)
	require.NoError(t, err)
	s.budgetA, s.budgetB = a.StringFixed(2), b.StringFixed(2)

	s.storedA, _ = w.st.StoredQuantity(ctx, w.wA, w.part, w.rackA)
	s.storedB, _ = w.st.StoredQuantity(ctx, w.wB, w.part, w.rackB)

	txs, err := w.st.ListTransactions(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	s.transactions = len(txs)

	logs, err := w.st.ListAuditLogs(ctx, store.AuditFilter{})
	require.NoError(t, err)
	s.audits = len(logs)

	return s
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	require.Error(t, err)
	e := AsError(err)
	require.Equal(t, kind, e.Kind, e.Error())
	return e
}
