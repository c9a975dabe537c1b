package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/config"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Kind    string         `json:"kind"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type fixture struct {
	app   *fiber.App
	st    *memory.Store
	user  uint
	other uint
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()

	st := memory.New()
	wh := st.AddWarehouse(models.Warehouse{Name: "North", Budget: decimal.NewFromInt(100)})
	south := st.AddWarehouse(models.Warehouse{Name: "South", Budget: decimal.NewFromInt(100)})
	user := st.AddUser(models.User{WarehouseID: wh, FirstName: "Ana", Email: "ana@example.com"})
	other := st.AddUser(models.User{WarehouseID: south, FirstName: "Luis", Email: "luis@example.com"})
	part := st.AddPart(models.Part{Name: "Bolt"})
	st.AddRack(models.Rack{Name: "A1", Capacity: 20})
	st.SetSupplies(part, 1, 10)

	cfg := &config.Config{CORSOrigins: "*", JWTSecret: secret}
	return &fixture{app: New(cfg, st, zap.NewNop()), st: st, user: user, other: other}
}

func (f *fixture) do(t *testing.T, method, path, body, token string) (int, envelope) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

const incomingJSON = `{
	"transactionDate": "2024-03-01",
	"partAmount": %s,
	"unitBuyPrice": "2.50",
	"partID": 1,
	"warehouseID": 1,
	"supplierID": 1,
	"rackID": 1%s
}`

func incomingBody(amount, extra string) string {
	return fmt.Sprintf(incomingJSON, amount, extra)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestCreateIncoming_Envelope(t *testing.T) {
	f := newFixture(t, "")

	status, env := f.do(t, http.MethodPost, "/api/incoming", incomingBody("4", `, "userID": 1`), "")
	require.Equal(t, http.StatusCreated, status)
	require.Nil(t, env.Error)

	var view struct {
		IncomingID      uint   `json:"incomingID"`
		TransactionDate string `json:"transactionDate"`
		PartAmount      int    `json:"partAmount"`
		UnitBuyPrice    string `json:"unitBuyPrice"`
		RackID          uint   `json:"rackID"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &view))
	assert.NotZero(t, view.IncomingID)
	assert.Equal(t, "2024-03-01", view.TransactionDate)
	assert.Equal(t, 4, view.PartAmount)
	assert.Equal(t, uint(1), view.RackID)

	status, env = f.do(t, http.MethodGet, "/api/transactions", "", "")
	require.Equal(t, http.StatusOK, status)
	var ledger []map[string]any
	require.NoError(t, json.Unmarshal(env.Result, &ledger))
	require.Len(t, ledger, 1)
	assert.Equal(t, "INCOMING", ledger[0]["transactionType"])

	status, env = f.do(t, http.MethodGet, "/api/audit-logs?entity_type=incoming", "", "")
	require.Equal(t, http.StatusOK, status)
	var logs []map[string]any
	require.NoError(t, json.Unmarshal(env.Result, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "create", logs[0]["action"])
	assert.Nil(t, logs[0]["before_data"])
}

func TestCreateIncoming_StructuralErrors(t *testing.T) {
	f := newFixture(t, "")

	status, env := f.do(t, http.MethodPost, "/api/incoming", incomingBody("4", `, "userID": 1, "color": "red"`), "")
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "structural", env.Error.Kind)
	assert.Equal(t, "unknown field color", env.Error.Message)

	status, env = f.do(t, http.MethodPost, "/api/incoming", `{"partAmount": 1}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.True(t, strings.HasPrefix(env.Error.Message, "Invalid argument names! missing:"))
	assert.Empty(t, env.Result)
}

func TestCreateIncoming_ValidationError(t *testing.T) {
	f := newFixture(t, "")

	status, env := f.do(t, http.MethodPost, "/api/incoming", incomingBody("15", `, "userID": 1`), "")
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation", env.Error.Kind)
	assert.Equal(t, "Not enough stock (10) for requested amount (15)", env.Error.Message)
	assert.EqualValues(t, 10, env.Error.Details["available"])
}

func TestGet_NotFoundAndBadID(t *testing.T) {
	f := newFixture(t, "")

	status, env := f.do(t, http.MethodGet, "/api/outgoing/42", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Kind)

	status, env = f.do(t, http.MethodGet, "/api/transfers/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "structural", env.Error.Kind)

	status, env = f.do(t, http.MethodGet, "/api/transactions?warehouse_id=-3", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
}

func TestEmptyListsRenderAsArrays(t *testing.T) {
	f := newFixture(t, "")

	for _, path := range []string{"/api/incoming", "/api/outgoing", "/api/transfers", "/api/transactions"} {
		status, env := f.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, status, path)
		assert.JSONEq(t, `[]`, string(env.Result), path)
	}
}

func TestBearerAuth(t *testing.T) {
	f := newFixture(t, testSecret)

	status, env := f.do(t, http.MethodGet, "/api/incoming", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Kind)

	status, _ = f.do(t, http.MethodGet, "/api/incoming", "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, status)

	token, err := auth.GenerateToken(testSecret, f.user, 1, time.Hour)
	require.NoError(t, err)

	// user id taken from the token
	status, env = f.do(t, http.MethodPost, "/api/incoming", incomingBody("2", ""), token)
	require.Equal(t, http.StatusCreated, status, env.Error)
	var view struct {
		UserID uint `json:"userID"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &view))
	assert.Equal(t, f.user, view.UserID)

	status, env = f.do(t, http.MethodPost, "/api/incoming", incomingBody("2", `, "userID": 2`), token)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Kind)
}

func TestPanicStillLogsRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := New(&config.Config{CORSOrigins: "*"}, memory.New(), zap.New(core))
	app.Get("/boom", func(*fiber.Ctx) error { panic("rack index out of range") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "internal", env.Error.Kind)

	access := logs.FilterMessage("request").FilterField(zap.String("path", "/boom")).All()
	require.Len(t, access, 1)
	assert.Equal(t, zapcore.WarnLevel, access[0].Level)
	assert.EqualValues(t, http.StatusInternalServerError, access[0].ContextMap()["status"])
}
