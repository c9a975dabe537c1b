package transactions

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const incomingBody = `{
	"transactionDate": "2024-03-01",
	"partAmount": 10,
	"unitBuyPrice": "4.50",
	"partID": 1,
	"warehouseID": 2,
	"supplierID": 3,
	"rackID": 4,
	"userID": 5
}`

func TestDecodeIncoming_Valid(t *testing.T) {
	r, err := DecodeIncoming([]byte(incomingBody))
	require.NoError(t, err)

	in, err := r.Validate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), in.Date)
	assert.Equal(t, 10, in.PartAmount)
	assert.Equal(t, "4.5", in.UnitBuyPrice.String())
	assert.Equal(t, uint(2), in.WarehouseID)
	assert.Equal(t, uint(4), in.RackID)
	assert.Equal(t, uint(5), in.UserID)
}

func TestDecodeIncoming_NumericPrice(t *testing.T) {
	r, err := DecodeIncoming([]byte(`{"unitBuyPrice": 12.25}`))
	require.NoError(t, err)
	require.NotNil(t, r.UnitBuyPrice)
	assert.Equal(t, "12.25", r.UnitBuyPrice.String())
}

func TestDecode_StructuralFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty", "  ", "request body is empty"},
		{"array", `[]`, "request body must be a JSON object"},
		{"syntax", `{"partAmount": }`, "malformed JSON body"},
		{"unknown field", `{"partAmount": 1, "color": "red"}`, "unknown field color"},
		{"amount type", `{"partAmount": "ten"}`, "partAmount has to be a positive integer"},
		{"negative id", `{"partID": -1}`, "partID has to be a positive integer"},
		{"date type", `{"transactionDate": 20240301}`, "transactionDate has to be a string"},
		{"trailing data", `{"partAmount": 1} {}`, "unexpected data after JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOutgoing([]byte(tt.body))

			e := requireKind(t, err, KindStructural)
			assert.Equal(t, 400, e.Status)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestValidate_MissingFieldsListedInOrder(t *testing.T) {
	r, err := DecodeIncoming([]byte(`{"partAmount": 1, "rackID": 2}`))
	require.NoError(t, err)

	_, err = r.Validate()

	e := requireKind(t, err, KindStructural)
	assert.Equal(t, "Invalid argument names! missing: transactionDate, partID, userID, warehouseID, unitBuyPrice, supplierID", e.Message)
	assert.Equal(t, []string{"transactionDate", "partID", "userID", "warehouseID", "unitBuyPrice", "supplierID"}, e.Details["missing"])
}

func TestValidate_InvalidValues(t *testing.T) {
	body := `{
		"transactionDate": "03/01/2024",
		"partAmount": 0,
		"unitSalePrice": "-1",
		"partID": 1,
		"warehouseID": 0,
		"customerID": 3,
		"userID": 5
	}`
	r, err := DecodeOutgoing([]byte(body))
	require.NoError(t, err)

	_, err = r.Validate()

	e := requireKind(t, err, KindStructural)
	assert.Equal(t, []string{
		"transactionDate must be a date in YYYY-MM-DD form",
		"partAmount must be a positive number greater than 0",
		"warehouseID must be greater than 0",
		"unitSalePrice must be a positive number greater than 0",
	}, e.Details["invalid"])
}

func TestValidateTransfer(t *testing.T) {
	body := `{
		"transactionDate": "2024-03-01",
		"partAmount": 7,
		"toWarehouse": 2,
		"userRequester": 6,
		"partID": 1,
		"warehouseID": 1,
		"userID": 5,
		"toRack": 9
	}`
	r, err := DecodeTransfer([]byte(body))
	require.NoError(t, err)

	in, err := r.Validate()
	require.NoError(t, err)
	assert.Equal(t, uint(2), in.ToWarehouse)
	assert.Equal(t, uint(9), in.ToRack)

	same := uint(1)
	r.ToWarehouse = &same
	_, err = r.Validate()
	e := requireKind(t, err, KindStructural)
	assert.Equal(t, "toWarehouse must differ from warehouseID", e.Message)
}

func TestValidate_PriceMustFitMoneyColumn(t *testing.T) {
	tests := []struct {
		name    string
		price   string
		invalid string
	}{
		{"sub-cent", `"0.005"`, "unitBuyPrice must have at most 2 decimal places"},
		{"three decimals", `12.345`, "unitBuyPrice must have at most 2 decimal places"},
		{"too large", `100000000000`, "unitBuyPrice must be less than 10000000000"},
		{"at limit", `"10000000000.00"`, "unitBuyPrice must be less than 10000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Replace(incomingBody, `"4.50"`, tt.price, 1)
			r, err := DecodeIncoming([]byte(body))
			require.NoError(t, err)

			_, err = r.Validate()

			e := requireKind(t, err, KindStructural)
			assert.Equal(t, 400, e.Status)
			assert.Equal(t, []string{tt.invalid}, e.Details["invalid"])
		})
	}
}

func TestValidate_PriceAtColumnBounds(t *testing.T) {
	for _, price := range []string{`"0.01"`, `"9999999999.99"`, `7.1`, `"3.500"`} {
		body := strings.Replace(incomingBody, `"4.50"`, price, 1)
		r, err := DecodeIncoming([]byte(body))
		require.NoError(t, err)

		_, err = r.Validate()
		assert.NoError(t, err, price)
	}
}
