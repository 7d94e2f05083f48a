package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceHandler_Create(t *testing.T) {
	api := newTestAPI(t)
	customer := api.createCustomer("billing@acme.test")

	inv := api.createInvoice(customer.ID.String())

	assert.Equal(t, "DRAFT", inv.Status)
	assert.Equal(t, "INV20240301-00001", inv.InvoiceNumber)
	assert.Equal(t, "2024-03-31", inv.DueDate)
	require.Len(t, inv.LineItems, 2)
	assert.Equal(t, "100.00", inv.LineItems[0].LineTotal.String())
	assert.Equal(t, "250.00", inv.Subtotal.String())
	assert.Equal(t, "25.00", inv.TaxAmount.String())
	assert.Equal(t, "275.00", inv.TotalAmount.String())
	assert.True(t, inv.BalanceDue.IsZero(), "a draft owes nothing until it is sent")

	second := api.createInvoice(customer.ID.String())
	assert.Equal(t, "INV20240301-00002", second.InvoiceNumber)
}

func TestInvoiceHandler_CreateErrors(t *testing.T) {
	api := newTestAPI(t)
	customer := api.createCustomer("billing@acme.test")

	t.Run("unknown customer", func(t *testing.T) {
		w := api.do(http.MethodPost, "/invoices", map[string]any{"customer_id": uuid.NewString()})
		requireError(t, w, http.StatusNotFound, "CUSTOMER_NOT_FOUND")
	})

	t.Run("missing customer id", func(t *testing.T) {
		w := api.do(http.MethodPost, "/invoices", map[string]any{"issue_date": "2024-03-01"})
		requireError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
		env := decode[json.RawMessage](t, w)
		require.NotEmpty(t, env.Error.Details)
		assert.Equal(t, "customer_id", env.Error.Details[0].Field)
	})

	t.Run("malformed date", func(t *testing.T) {
		w := api.do(http.MethodPost, "/invoices", map[string]any{
			"customer_id": customer.ID.String(),
			"issue_date":  "03/01/2024",
		})
		requireError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
	})

	t.Run("due date before issue date", func(t *testing.T) {
		w := api.do(http.MethodPost, "/invoices", map[string]any{
			"customer_id": customer.ID.String(),
			"issue_date":  "2024-03-10",
			"due_date":    "2024-03-01",
		})
		requireError(t, w, http.StatusBadRequest, "INVALID_DATE_RANGE")
	})

	t.Run("duplicate number", func(t *testing.T) {
		body := map[string]any{"customer_id": customer.ID.String(), "invoice_number": "INV-FIXED"}
		requireStatus(t, http.StatusCreated, api.do(http.MethodPost, "/invoices", body))
		requireError(t, api.do(http.MethodPost, "/invoices", body), http.StatusConflict, "INVOICE_NUMBER_EXISTS")
	})
}

func TestInvoiceHandler_LineItems(t *testing.T) {
	api := newTestAPI(t)
	customer := api.createCustomer("billing@acme.test")
	inv := api.createInvoice(customer.ID.String())
	base := "/invoices/" + inv.ID.String()

	w := api.do(http.MethodPost, base+"/line-items", map[string]any{
		"description": "Travel", "quantity": "1.5", "unit_price": "33.33",
	})
	requireStatus(t, http.StatusCreated, w)
	inv = decode[invoicingapp.InvoiceResponse](t, w).Data
	require.Len(t, inv.LineItems, 3)
	travel := inv.LineItems[2]
	// 1.5 x 33.33 = 49.995, rounded half up
	assert.Equal(t, "50.00", travel.LineTotal.String())
	assert.Equal(t, "300.00", inv.Subtotal.String())
	assert.Equal(t, "330.00", inv.TotalAmount.String())

	w = api.do(http.MethodPut, base+"/line-items/"+travel.ID.String(), map[string]any{
		"description": "Travel", "quantity": 2, "unit_price": "10.00",
	})
	requireStatus(t, http.StatusOK, w)
	inv = decode[invoicingapp.InvoiceResponse](t, w).Data
	assert.Equal(t, "270.00", inv.Subtotal.String())
	assert.Equal(t, "297.00", inv.TotalAmount.String())

	w = api.do(http.MethodDelete, base+"/line-items/"+travel.ID.String(), nil)
	requireStatus(t, http.StatusOK, w)
	inv = decode[invoicingapp.InvoiceResponse](t, w).Data
	assert.Len(t, inv.LineItems, 2)
	assert.Equal(t, "275.00", inv.TotalAmount.String())

	w = api.do(http.MethodDelete, base+"/line-items/"+uuid.NewString(), nil)
	requireError(t, w, http.StatusNotFound, "LINE_ITEM_NOT_FOUND")

	w = api.do(http.MethodDelete, base+"/line-items/bogus", nil)
	requireError(t, w, http.StatusBadRequest, "INVALID_ID")

	w = api.do(http.MethodPost, base+"/line-items", map[string]any{
		"description": "Nothing", "quantity": 0, "unit_price": "10.00",
	})
	requireError(t, w, http.StatusBadRequest, "INVALID_LINE_ITEM")

	w = api.do(http.MethodPost, base+"/line-items", map[string]any{
		"description": "Too precise", "quantity": "0.00001", "unit_price": "10.00",
	})
	requireError(t, w, http.StatusBadRequest, "INVALID_LINE_ITEM")
}

func TestInvoiceHandler_Send(t *testing.T) {
	api := newTestAPI(t)
	customer := api.createCustomer("billing@acme.test")

	empty := api.do(http.MethodPost, "/invoices", map[string]any{"customer_id": customer.ID.String()})
	requireStatus(t, http.StatusCreated, empty)
	emptyID := decode[invoicingapp.InvoiceResponse](t, empty).Data.ID.String()
	requireError(t, api.do(http.MethodPost, "/invoices/"+emptyID+"/send", nil),
		http.StatusBadRequest, "INVOICE_HAS_NO_LINE_ITEMS")

	inv := api.createInvoice(customer.ID.String())
	sent := api.sendInvoice(inv.ID.String())
	assert.Equal(t, "SENT", sent.Status)
	assert.Equal(t, "275.00", sent.BalanceDue.String())
	assert.NotNil(t, sent.SentAt)
	assert.Equal(t, inv.Version+1, sent.Version)

	base := "/invoices/" + inv.ID.String()
	requireError(t, api.do(http.MethodPost, base+"/send", nil), http.StatusBadRequest, "INVOICE_NOT_DRAFT")
	requireError(t, api.do(http.MethodPost, base+"/line-items", map[string]any{
		"description": "Late", "quantity": 1, "unit_price": "1.00",
	}), http.StatusBadRequest, "INVOICE_NOT_DRAFT")
	requireError(t, api.do(http.MethodPut, base, map[string]any{
		"issue_date": "2024-03-01", "due_date": "2024-04-30",
	}), http.StatusBadRequest, "INVOICE_NOT_DRAFT")
	requireError(t, api.do(http.MethodDelete, base, nil), http.StatusBadRequest, "INVOICE_NOT_DRAFT")
}

func TestInvoiceHandler_MarkAsPaid(t *testing.T) {
	api := newTestAPI(t)
	customer := api.createCustomer("billing@acme.test")
	inv := api.createInvoice(customer.ID.String())
	base := "/invoices/" + inv.ID.String()

	requireError(t, api.do(http.MethodPost, base+"/mark-paid", nil), http.StatusBadRequest, "INVOICE_NOT_PAYABLE")

	api.sendInvoice(inv.ID.String())
	w := api.do(http.MethodPost, base+"/mark-paid", nil)
	requireStatus(t, http.StatusOK, w)
	paid := decode[invoicingapp.InvoiceResponse](t, w).Data
	assert.Equal(t, "PAID", paid.Status)
	assert.True(t, paid.BalanceDue.IsZero())
	assert.NotNil(t, paid.PaidAt)

	requireError(t, api.do(http.MethodPost, base+"/cancel", nil), http.StatusBadRequest, "INVOICE_NOT_CANCELLABLE")
}

func TestInvoiceHandler_Cancel(t *testing.T) {
	api := newTestAPI(t)
	customer := api.createCustomer("billing@acme.test")
	inv := api.createInvoice(customer.ID.String())
	api.sendInvoice(inv.ID.String())
	base := "/invoices/" + inv.ID.String()

	w := api.do(http.MethodPost, base+"/cancel", nil)
	requireStatus(t, http.StatusOK, w)
	cancelled := decode[invoicingapp.InvoiceResponse](t, w).Data
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.True(t, cancelled.BalanceDue.IsZero())
	assert.Equal(t, "275.00", cancelled.TotalAmount.String())

	requireError(t, api.do(http.MethodPost, base+"/cancel", nil), http.StatusBadRequest, "INVOICE_NOT_CANCELLABLE")
	requireError(t, api.do(http.MethodPost, base+"/payments", payment("10.00")),
		http.StatusBadRequest, "INVOICE_NOT_PAYABLE")
}

func TestInvoiceHandler_UpdateDatesAndDelete(t *testing.T) {
	api := newTestAPI(t)
	customer := api.createCustomer("billing@acme.test")
	inv := api.createInvoice(customer.ID.String())
	base := "/invoices/" + inv.ID.String()

	w := api.do(http.MethodPut, base, map[string]any{"issue_date": "2024-03-05", "due_date": "2024-04-04"})
	requireStatus(t, http.StatusOK, w)
	updated := decode[invoicingapp.InvoiceResponse](t, w).Data
	assert.Equal(t, "2024-03-05", updated.IssueDate)
	assert.Equal(t, "2024-04-04", updated.DueDate)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, base, nil).Code)
	requireError(t, api.do(http.MethodGet, base, nil), http.StatusNotFound, "INVOICE_NOT_FOUND")
}

func TestInvoiceHandler_List(t *testing.T) {
	api := newTestAPI(t)
	customer := api.createCustomer("billing@acme.test")
	first := api.createInvoice(customer.ID.String())
	api.createInvoice(customer.ID.String())
	api.sendInvoice(first.ID.String())

	w := api.do(http.MethodGet, "/invoices", nil)
	requireStatus(t, http.StatusOK, w)
	all := decode[[]invoicingapp.InvoiceListResponse](t, w)
	assert.Len(t, all.Data, 2)
	assert.Equal(t, int64(2), all.Meta.Total)

	w = api.do(http.MethodGet, "/invoices?status=SENT", nil)
	requireStatus(t, http.StatusOK, w)
	sent := decode[[]invoicingapp.InvoiceListResponse](t, w)
	require.Len(t, sent.Data, 1)
	assert.Equal(t, first.ID, sent.Data[0].ID)
	assert.Equal(t, 2, sent.Data[0].ItemCount)

	requireError(t, api.do(http.MethodGet, "/invoices?status=LOST", nil), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestInvoiceHandler_GetBalance(t *testing.T) {
	api := newTestAPI(t)
	customer := api.createCustomer("billing@acme.test")
	inv := api.createInvoice(customer.ID.String())
	api.sendInvoice(inv.ID.String())
	base := "/invoices/" + inv.ID.String()

	requireStatus(t, http.StatusCreated, api.do(http.MethodPost, base+"/payments", payment("75.00")))

	w := api.do(http.MethodGet, base+"/balance", nil)
	requireStatus(t, http.StatusOK, w)
	balance := decode[invoicingapp.BalanceResponse](t, w).Data
	assert.Equal(t, "SENT", balance.Status)
	assert.Equal(t, "275.00", balance.TotalAmount.String())
	assert.Equal(t, "75.00", balance.PaidAmount.String())
	assert.Equal(t, "200.00", balance.BalanceDue.String())

	requireError(t, api.do(http.MethodGet, "/invoices/"+uuid.NewString()+"/balance", nil),
		http.StatusNotFound, "INVOICE_NOT_FOUND")
}
