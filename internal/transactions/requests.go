package transactions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"warehouse-backend/internal/models"
)

// Request bodies use pointer fields so a missing key can be told apart from a
// zero value.

type IncomingRequest struct {
	TransactionDate *string          `json:"transactionDate"`
	PartAmount      *int             `json:"partAmount"`
	UnitBuyPrice    *decimal.Decimal `json:"unitBuyPrice"`
	PartID          *uint            `json:"partID"`
	WarehouseID     *uint            `json:"warehouseID"`
	SupplierID      *uint            `json:"supplierID"`
	RackID          *uint            `json:"rackID"`
	UserID          *uint            `json:"userID"`
}

type OutgoingRequest struct {
	TransactionDate *string          `json:"transactionDate"`
	PartAmount      *int             `json:"partAmount"`
	UnitSalePrice   *decimal.Decimal `json:"unitSalePrice"`
	PartID          *uint            `json:"partID"`
	WarehouseID     *uint            `json:"warehouseID"`
	CustomerID      *uint            `json:"customerID"`
	UserID          *uint            `json:"userID"`
}

type TransferRequest struct {
	TransactionDate *string `json:"transactionDate"`
	PartAmount      *int    `json:"partAmount"`
	ToWarehouse     *uint   `json:"toWarehouse"`
	UserRequester   *uint   `json:"userRequester"`
	PartID          *uint   `json:"partID"`
	WarehouseID     *uint   `json:"warehouseID"`
	UserID          *uint   `json:"userID"`
	ToRack          *uint   `json:"toRack"`
}

// BaseInput holds the fields every transaction kind shares.
type BaseInput struct {
	Date        time.Time
	PartID      uint
	PartAmount  int
	UserID      uint
	WarehouseID uint
}

type IncomingInput struct {
	BaseInput
	UnitBuyPrice decimal.Decimal
	SupplierID   uint
	RackID       uint
}

type OutgoingInput struct {
	BaseInput
	UnitSalePrice decimal.Decimal
	CustomerID    uint
}

type TransferInput struct {
	BaseInput
	ToWarehouse   uint
	UserRequester uint
	ToRack        uint
}

// decodeStrict parses body into dst, rejecting unknown keys and trailing data.
func decodeStrict(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return structuralError(nil, "request body is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return describeDecodeError(err)
	}
	if dec.More() {
		return structuralError(nil, "unexpected data after JSON body")
	}
	return nil
}

func describeDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field == "":
		return structuralError(nil, "request body must be a JSON object")
	case errors.As(err, &typeErr):
		return structuralError(map[string]any{"field": typeErr.Field},
			"%s has to be %s", typeErr.Field, describeType(typeErr.Type.String()))
	case errors.As(err, &syntaxErr):
		return structuralError(map[string]any{"offset": syntaxErr.Offset}, "malformed JSON body")
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return structuralError(map[string]any{"field": field}, "unknown field %s", field)
	default:
		return structuralError(nil, "invalid JSON body: %v", err)
	}
}

func describeType(goType string) string {
	switch goType {
	case "int", "uint":
		return "a positive integer"
	case "string":
		return "a string"
	default:
		return "a number"
	}
}

// fieldCheck accumulates missing and invalid fields in declaration order.
type fieldCheck struct {
	missing []string
	invalid []string
}

func (f *fieldCheck) id(name string, v *uint) uint {
	switch {
	case v == nil:
		f.missing = append(f.missing, name)
	case *v == 0:
		f.invalid = append(f.invalid, name+" must be greater than 0")
	default:
		return *v
	}
	return 0
}

func (f *fieldCheck) amount(name string, v *int) int {
	switch {
	case v == nil:
		f.missing = append(f.missing, name)
	case *v <= 0:
		f.invalid = append(f.invalid, name+" must be a positive number greater than 0")
	default:
		return *v
	}
	return 0
}

func (f *fieldCheck) price(name string, v *decimal.Decimal) decimal.Decimal {
	switch {
	case v == nil:
		f.missing = append(f.missing, name)
	case !v.IsPositive():
		f.invalid = append(f.invalid, name+" must be a positive number greater than 0")
	case !v.Equal(v.Truncate(models.PriceScale)):
		f.invalid = append(f.invalid, fmt.Sprintf("%s must have at most %d decimal places", name, models.PriceScale))
	case v.GreaterThanOrEqual(models.MaxUnitPrice):
		f.invalid = append(f.invalid, fmt.Sprintf("%s must be less than %s", name, models.MaxUnitPrice.String()))
	default:
		return *v
	}
	return decimal.Zero
}

func (f *fieldCheck) date(name string, v *string) time.Time {
	if v == nil || strings.TrimSpace(*v) == "" {
		f.missing = append(f.missing, name)
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*v))
	if err != nil {
		f.invalid = append(f.invalid, fmt.Sprintf("%s must be a date in YYYY-MM-DD form", name))
		return time.Time{}
	}
	return t
}

func (f *fieldCheck) err() error {
	if len(f.missing) > 0 {
		return structuralError(map[string]any{"missing": f.missing},
			"Invalid argument names! missing: %s", strings.Join(f.missing, ", "))
	}
	if len(f.invalid) > 0 {
		return structuralError(map[string]any{"invalid": f.invalid}, "%s", strings.Join(f.invalid, "; "))
	}
	return nil
}

func (f *fieldCheck) base(date *string, amount *int, partID, userID, warehouseID *uint) BaseInput {
	return BaseInput{
		Date:        f.date("transactionDate", date),
		PartAmount:  f.amount("partAmount", amount),
		PartID:      f.id("partID", partID),
		UserID:      f.id("userID", userID),
		WarehouseID: f.id("warehouseID", warehouseID),
	}
}

func (r IncomingRequest) Validate() (IncomingInput, error) {
	var f fieldCheck
	in := IncomingInput{
		BaseInput:    f.base(r.TransactionDate, r.PartAmount, r.PartID, r.UserID, r.WarehouseID),
		UnitBuyPrice: f.price("unitBuyPrice", r.UnitBuyPrice),
		SupplierID:   f.id("supplierID", r.SupplierID),
		RackID:       f.id("rackID", r.RackID),
	}
	return in, f.err()
}

func (r OutgoingRequest) Validate() (OutgoingInput, error) {
	var f fieldCheck
	in := OutgoingInput{
		BaseInput:     f.base(r.TransactionDate, r.PartAmount, r.PartID, r.UserID, r.WarehouseID),
		UnitSalePrice: f.price("unitSalePrice", r.UnitSalePrice),
		CustomerID:    f.id("customerID", r.CustomerID),
	}
	return in, f.err()
}

func (r TransferRequest) Validate() (TransferInput, error) {
	var f fieldCheck
	in := TransferInput{
		BaseInput:     f.base(r.TransactionDate, r.PartAmount, r.PartID, r.UserID, r.WarehouseID),
		ToWarehouse:   f.id("toWarehouse", r.ToWarehouse),
		UserRequester: f.id("userRequester", r.UserRequester),
		ToRack:        f.id("toRack", r.ToRack),
	}
	if err := f.err(); err != nil {
		return in, err
	}
	if in.ToWarehouse == in.WarehouseID {
		return in, structuralError(map[string]any{"warehouseID": in.WarehouseID, "toWarehouse": in.ToWarehouse},
			"toWarehouse must differ from warehouseID")
	}
	return in, nil
}

// DecodeIncoming, DecodeOutgoing and DecodeTransfer only parse the body;
// Validate does the field checks. Handlers fill in the acting user in between.
func DecodeIncoming(body []byte) (IncomingRequest, error) {
	var r IncomingRequest
	err := decodeStrict(body, &r)
	return r, err
}

func DecodeOutgoing(body []byte) (OutgoingRequest, error) {
	var r OutgoingRequest
	err := decodeStrict(body, &r)
	return r, err
}

func DecodeTransfer(body []byte) (TransferRequest, error) {
	var r TransferRequest
	err := decodeStrict(body, &r)
	return r, err
}
