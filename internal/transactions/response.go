package transactions

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"warehouse-backend/internal/models"
)

const dateLayout = "2006-01-02"

// Envelope is the wire form of a Response: exactly one of Result or Error.
type Envelope struct {
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind    ErrorKind      `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func Success(c *fiber.Ctx, status int, result any) error {
	return c.Status(status).JSON(Envelope{Result: result})
}

func Failure(c *fiber.Ctx, err error) error {
	e := AsError(err)
	body := &ErrorBody{Kind: e.Kind, Message: e.Message, Details: e.Details}
	return c.Status(e.Status).JSON(Envelope{Error: body})
}

type IncomingView struct {
	ID              uint            `json:"incomingID"`
	TransactionID   uint            `json:"transactionID"`
	TransactionDate string          `json:"transactionDate"`
	PartAmount      int             `json:"partAmount"`
	UnitBuyPrice    decimal.Decimal `json:"unitBuyPrice"`
	PartID          uint            `json:"partID"`
	WarehouseID     uint            `json:"warehouseID"`
	SupplierID      uint            `json:"supplierID"`
	RackID          uint            `json:"rackID"`
	UserID          uint            `json:"userID"`
}

func NewIncomingView(it models.IncomingTransaction) IncomingView {
	return IncomingView{
		ID:              it.ID,
		TransactionID:   it.TransactionID,
		TransactionDate: it.Transaction.Date.Format(dateLayout),
		PartAmount:      it.Transaction.PartAmount,
		UnitBuyPrice:    it.UnitBuyPrice,
		PartID:          it.Transaction.PartID,
		WarehouseID:     it.Transaction.WarehouseID,
		SupplierID:      it.SupplierID,
		RackID:          it.RackID,
		UserID:          it.Transaction.UserID,
	}
}

type OutgoingView struct {
	ID              uint            `json:"outgoingID"`
	TransactionID   uint            `json:"transactionID"`
	TransactionDate string          `json:"transactionDate"`
	PartAmount      int             `json:"partAmount"`
	UnitSalePrice   decimal.Decimal `json:"unitSalePrice"`
	PartID          uint            `json:"partID"`
	WarehouseID     uint            `json:"warehouseID"`
	CustomerID      uint            `json:"customerID"`
	UserID          uint            `json:"userID"`
}

func NewOutgoingView(ot models.OutgoingTransaction) OutgoingView {
	return OutgoingView{
		ID:              ot.ID,
		TransactionID:   ot.TransactionID,
		TransactionDate: ot.Transaction.Date.Format(dateLayout),
		PartAmount:      ot.Transaction.PartAmount,
		UnitSalePrice:   ot.UnitSalePrice,
		PartID:          ot.Transaction.PartID,
		WarehouseID:     ot.Transaction.WarehouseID,
		CustomerID:      ot.CustomerID,
		UserID:          ot.Transaction.UserID,
	}
}

type TransferView struct {
	ID              uint   `json:"transferID"`
	TransactionID   uint   `json:"transactionID"`
	TransactionDate string `json:"transactionDate"`
	PartAmount      int    `json:"partAmount"`
	ToWarehouse     uint   `json:"toWarehouse"`
	UserRequester   uint   `json:"userRequester"`
	ToRack          uint   `json:"toRack"`
	PartID          uint   `json:"partID"`
	UserID          uint   `json:"userID"`
	WarehouseID     uint   `json:"warehouseID"`
}

func NewTransferView(tt models.TransferTransaction) TransferView {
	return TransferView{
		ID:              tt.ID,
		TransactionID:   tt.TransactionID,
		TransactionDate: tt.Transaction.Date.Format(dateLayout),
		PartAmount:      tt.Transaction.PartAmount,
		ToWarehouse:     tt.DestinationWarehouseID,
		UserRequester:   tt.RequestingUserID,
		ToRack:          tt.DestinationRackID,
		PartID:          tt.Transaction.PartID,
		UserID:          tt.Transaction.UserID,
		WarehouseID:     tt.Transaction.WarehouseID,
	}
}

// LedgerEntry is one row of the unified transaction listing.
type LedgerEntry struct {
	TransactionID   uint                   `json:"transactionID"`
	Kind            models.TransactionKind `json:"transactionType"`
	TransactionDate string                 `json:"transactionDate"`
	PartAmount      int                    `json:"partAmount"`
	PartID          uint                   `json:"partID"`
	UserID          uint                   `json:"userID"`
	WarehouseID     uint                   `json:"warehouseID"`
	ToWarehouse     *uint                  `json:"toWarehouse,omitempty"`
}

func NewLedgerEntry(t models.Transaction) LedgerEntry {
	e := LedgerEntry{
		TransactionID:   t.ID,
		Kind:            t.Kind(),
		TransactionDate: t.Date.Format(dateLayout),
		PartAmount:      t.PartAmount,
		PartID:          t.PartID,
		UserID:          t.UserID,
		WarehouseID:     t.WarehouseID,
	}
	if t.Transfer != nil {
		dest := t.Transfer.DestinationWarehouseID
		e.ToWarehouse = &dest
	}
	return e
}

func mapViews[M, V any](rows []M, view func(M) V) []V {
	out := make([]V, 0, len(rows))
	for _, r := range rows {
		out = append(out, view(r))
	}
	return out
}
