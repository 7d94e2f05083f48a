package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	partnerapp "github.com/invoicing/backend/internal/application/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/cache"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
	"github.com/invoicing/backend/internal/interfaces/http/handler"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
	"github.com/invoicing/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testAPI is the full HTTP stack over an in-memory sqlite database
type testAPI struct {
	t      *testing.T
	engine *gin.Engine
	db     *persistence.Database
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", DBName: "file::memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate())

	log := zap.NewNop()
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)

	serviceCfg := invoicingapp.DefaultServiceConfig()
	customerService := partnerapp.NewCustomerService(customerRepo, invoiceRepo, log)
	invoiceService := invoicingapp.NewInvoiceService(invoiceRepo, customerService,
		invoicingapp.NewNumberGenerator(invoiceRepo, "INV"), serviceCfg, log)
	paymentService := invoicingapp.NewPaymentService(persistence.NewGormTransactionScope(db.DB),
		invoiceRepo, paymentRepo, serviceCfg, log)

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	paymentService.SetIdempotencyStore(store, shared.DefaultIdempotencyConfig())

	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine)
	router.RegisterAPI(r, router.Handlers{
		Customer: handler.NewCustomerHandler(customerService),
		Invoice:  handler.NewInvoiceHandler(invoiceService),
		Payment:  handler.NewPaymentHandler(paymentService),
		Health:   handler.NewHealthHandler(db, "test"),
	})
	r.Setup()

	return &testAPI{t: t, engine: engine, db: db}
}

// do sends body as JSON; headers are alternating name/value pairs
func (a *testAPI) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// requireStatus fails with the response body so broken requests are easy to read
func requireStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}

// requireError checks status and error code of a failed request
func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	requireStatus(t, status, w)
	env := decode[json.RawMessage](t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
	require.NotEmpty(t, env.Error.RequestID)
}

func (a *testAPI) createCustomer(email string) partnerapp.CustomerResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/customers", map[string]any{
		"name":  "Acme Corp",
		"email": email,
	})
	requireStatus(a.t, http.StatusCreated, w)
	return decode[partnerapp.CustomerResponse](a.t, w).Data
}

// createInvoice drafts an invoice of 2 x 50.00 and 1 x 150.00: subtotal 250.00,
// tax 25.00, total 275.00
func (a *testAPI) createInvoice(customerID string) invoicingapp.InvoiceResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/invoices", map[string]any{
		"customer_id": customerID,
		"issue_date":  "2024-03-01",
		"due_date":    "2024-03-31",
		"line_items": []map[string]any{
			{"description": "Consulting", "quantity": 2, "unit_price": "50.00"},
			{"description": "Setup fee", "quantity": 1, "unit_price": "150.00"},
		},
	})
	requireStatus(a.t, http.StatusCreated, w)
	return decode[invoicingapp.InvoiceResponse](a.t, w).Data
}

func (a *testAPI) sendInvoice(id string) invoicingapp.InvoiceResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/invoices/"+id+"/send", nil)
	requireStatus(a.t, http.StatusOK, w)
	return decode[invoicingapp.InvoiceResponse](a.t, w).Data
}

func payment(amount string) map[string]any {
	return map[string]any{
		"amount":         amount,
		"payment_date":   "2024-03-10",
		"payment_method": "BANK_TRANSFER",
	}
}

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(context.Context) error {
	return p.err
}
