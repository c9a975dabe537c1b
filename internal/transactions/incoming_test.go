package transactions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

func TestIncomingCreate_UpdatesEveryTable(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.st.SetSupplies(w.part, w.supplier, 25)

	it, err := w.incoming().Create(ctx, w.incomingInput(10, "5"))
	require.NoError(t, err)
	assert.NotZero(t, it.ID)
	assert.NotZero(t, it.TransactionID)
	assert.Equal(t, 10, it.Transaction.PartAmount)

	after := w.snapshot(t)
	assert.Equal(t, 15, after.stock)
	assert.Equal(t, "50.00", after.budgetA)
	assert.Equal(t, 10, after.storedA)
	assert.Equal(t, 1, after.transactions)
	assert.Equal(t, 1, after.audits)

	got, err := w.st.GetTransaction(ctx, it.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.KindIncoming, got.Kind())
}

func TestIncomingCreate_StockReachingZeroDeletesSupplies(t *testing.T) {
	w := newWorld(t)

	_, err := w.incoming().Create(context.Background(), w.incomingInput(10, "1"))
	require.NoError(t, err)

	assert.False(t, w.st.HasSupplies(w.part, w.supplier))
	assert.Equal(t, 10, w.snapshot(t).storedA)
}

func TestIncomingCreate_NotEnoughStock(t *testing.T) {
	w := newWorld(t)
	before := w.snapshot(t)

	_, err := w.incoming().Create(context.Background(), w.incomingInput(15, "1"))

	e := requireKind(t, err, KindValidation)
	assert.Equal(t, fiber.StatusBadRequest, e.Status)
	assert.Equal(t, "Not enough stock (10) for requested amount (15)", e.Message)
	assert.Equal(t, 10, e.Details["available"])
	assert.Equal(t, before, w.snapshot(t))
}

func TestIncomingCreate_SupplierDoesNotCarryPart(t *testing.T) {
	w := newWorld(t)
	in := w.incomingInput(1, "1")
	in.SupplierID = 99

	_, err := w.incoming().Create(context.Background(), in)

	e := requireKind(t, err, KindValidation)
	assert.Contains(t, e.Message, "does not supply part")
}

func TestIncomingCreate_NotEnoughBudget(t *testing.T) {
	w := newWorld(t)
	before := w.snapshot(t)

	_, err := w.incoming().Create(context.Background(), w.incomingInput(10, "10.01"))

	e := requireKind(t, err, KindValidation)
	assert.Equal(t, "100.00", e.Details["budget"])
	assert.Equal(t, "100.10", e.Details["cost"])
	assert.Equal(t, before, w.snapshot(t))
}

func TestIncomingCreate_UnknownWarehouse(t *testing.T) {
	w := newWorld(t)
	in := w.incomingInput(1, "1")
	in.WarehouseID = 99

	_, err := w.incoming().Create(context.Background(), in)

	e := requireKind(t, err, KindValidation)
	assert.Equal(t, fiber.StatusNotFound, e.Status)
}

func TestIncomingCreate_UserFromOtherWarehouse(t *testing.T) {
	w := newWorld(t)
	in := w.incomingInput(1, "1")
	in.UserID = w.userB

	_, err := w.incoming().Create(context.Background(), in)

	e := requireKind(t, err, KindValidation)
	assert.Equal(t, "User (2) does not work in warehouse (1)", e.Message)
}

func TestIncomingCreate_RackMissing(t *testing.T) {
	w := newWorld(t)
	in := w.incomingInput(1, "1")
	in.RackID = 99

	_, err := w.incoming().Create(context.Background(), in)

	e := requireKind(t, err, KindValidation)
	assert.Equal(t, fiber.StatusNotFound, e.Status)
}

func TestIncomingCreate_RackHeldByOtherWarehouse(t *testing.T) {
	w := newWorld(t)
	w.st.SetStored(w.wB, w.part, w.rackA, 3)
	before := w.snapshot(t)

	_, err := w.incoming().Create(context.Background(), w.incomingInput(1, "1"))

	e := requireKind(t, err, KindValidation)
	assert.Equal(t, fiber.StatusConflict, e.Status)
	assert.Equal(t, before, w.snapshot(t))
}

func TestIncomingCreate_RackCapacityExceeded(t *testing.T) {
	w := newWorld(t)
	w.st.SetStored(w.wA, w.part, w.rackA, 18)
	before := w.snapshot(t)

	_, err := w.incoming().Create(context.Background(), w.incomingInput(5, "1"))

	e := requireKind(t, err, KindValidation)
	assert.Equal(t, 2, e.Details["remaining_capacity"])
	assert.Equal(t, "Too many parts (5). Rack (1) can hold 2 more parts.", e.Message)

	after := w.snapshot(t)
	assert.Equal(t, 18, after.storedA)
	assert.Equal(t, before, after)
}

func TestIncomingCreate_CommitFailureRollsBack(t *testing.T) {
	w := newWorld(t)
	before := w.snapshot(t)
	w.st.FailOn("UpsertQuantity", errors.New("disk full"))

	_, err := w.incoming().Create(context.Background(), w.incomingInput(4, "1"))

	e := requireKind(t, err, KindCommitFailed)
	assert.Equal(t, "upsert_stored_quantity", e.Step)
	assert.Equal(t, fiber.StatusInternalServerError, e.Status)

	w.st.ClearFaults()
	assert.Equal(t, before, w.snapshot(t))

	alarms := w.logs.FilterMessage("transaction commit failed").All()
	require.Len(t, alarms, 1)
	assert.Equal(t, zapcore.ErrorLevel, alarms[0].Level)
	assert.Equal(t, true, alarms[0].ContextMap()["alarm"])
	assert.Equal(t, "upsert_stored_quantity", alarms[0].ContextMap()["step"])
}

func TestIncomingCreate_FinalCommitFailure(t *testing.T) {
	w := newWorld(t)
	before := w.snapshot(t)
	w.st.FailOn("Commit", errors.New("connection lost"))

	_, err := w.incoming().Create(context.Background(), w.incomingInput(4, "1"))

	e := requireKind(t, err, KindCommitFailed)
	assert.Equal(t, "commit", e.Step)
	w.st.ClearFaults()
	assert.Equal(t, before, w.snapshot(t))
}

func TestIncomingCreate_ConcurrentBudget(t *testing.T) {
	w := newWorld(t)
	w.st.SetSupplies(w.part, w.supplier, 100)
	svc := w.incoming()

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(context.Background(), w.incomingInput(1, "15")); err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	after := w.snapshot(t)
	assert.Equal(t, 6, committed)
	assert.Equal(t, "10.00", after.budgetA)
	assert.Equal(t, 6, after.storedA)
	assert.Equal(t, 94, after.stock)
	assert.Equal(t, 6, after.transactions)
}

func TestIncomingModify_RewritesRecordOnly(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	svc := w.incoming()

	created, err := svc.Create(ctx, w.incomingInput(4, "5"))
	require.NoError(t, err)
	before := w.snapshot(t)

	in := w.incomingInput(9, "6")
	in.Date = day.AddDate(0, 0, 3)
	modified, err := svc.Modify(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 9, modified.Transaction.PartAmount)
	assert.True(t, modified.UnitBuyPrice.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, in.Date, modified.Transaction.Date)

	after := w.snapshot(t)
	assert.Equal(t, before.stock, after.stock)
	assert.Equal(t, before.budgetA, after.budgetA)
	assert.Equal(t, before.storedA, after.storedA)
	assert.Equal(t, before.audits+1, after.audits)

	logs, err := w.st.ListAuditLogs(ctx, store.AuditFilter{EntityType: "incoming"})
	require.NoError(t, err)
	assert.Equal(t, models.AuditActionUpdate, logs[0].Action)
	assert.Contains(t, logs[0].BeforeData, `"partAmount":4`)
	assert.Contains(t, logs[0].AfterData, `"partAmount":9`)
}

func TestIncomingModify_NotFound(t *testing.T) {
	w := newWorld(t)

	_, err := w.incoming().Modify(context.Background(), 42, w.incomingInput(1, "1"))

	e := requireKind(t, err, KindNotFound)
	assert.Equal(t, fiber.StatusNotFound, e.Status)
}

func TestIncomingModify_RejectsForeignRack(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	svc := w.incoming()
	created, err := svc.Create(ctx, w.incomingInput(1, "1"))
	require.NoError(t, err)

	w.st.SetStored(w.wB, w.part, w.rackB, 1)
	in := w.incomingInput(1, "1")
	in.RackID = w.rackB

	_, err = svc.Modify(ctx, created.ID, in)
	requireKind(t, err, KindValidation)
}

func TestIncomingGetList(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	svc := w.incoming()

	rows, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	created, err := svc.Create(ctx, w.incomingInput(2, "1"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.TransactionID, got.TransactionID)

	_, err = svc.Get(ctx, 999)
	requireKind(t, err, KindNotFound)

	rows, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
