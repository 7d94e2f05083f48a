package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
)

// InvoiceHandler exposes the invoice lifecycle: drafting, line item edits,
// send, mark-paid, cancel and the balance query.
type InvoiceHandler struct {
	BaseHandler
	invoiceService *invoicingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *invoicingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Create handles POST /invoices. The invoice number is generated when the
// request omits it.
//
// @Summary      Create invoice
// @Description  Create a DRAFT invoice. The invoice number is generated when omitted.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body invoicingapp.CreateInvoiceRequest true "Invoice to create"
// @Success      201 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req invoicingapp.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// GetByID handles GET /invoices/:id
//
// @Summary      Get invoice
// @Description  Get an invoice with its line items
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// List handles GET /invoices
//
// @Summary      List invoices
// @Description  List invoices with filtering and pagination
// @Tags         invoices
// @Produce      json
// @Param        status query string false "Status" Enums(DRAFT, SENT, PAID, OVERDUE, CANCELLED)
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        from_date query string false "Issued on or after (YYYY-MM-DD)"
// @Param        to_date query string false "Issued on or before (YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Sort field" Enums(issue_date, due_date, invoice_number, total_amount, created_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]invoicingapp.InvoiceListResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	filter := invoicingapp.InvoiceListFilter{Page: 1, PageSize: defaultPageSize}
	if !h.bindQuery(c, &filter) {
		return
	}

	invoices, total, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// UpdateDates handles PUT /invoices/:id
//
// @Summary      Update invoice dates
// @Description  Replace issue and due date of a DRAFT invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoicingapp.UpdateInvoiceRequest true "New dates"
// @Success      200 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id} [put]
func (h *InvoiceHandler) UpdateDates(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req invoicingapp.UpdateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.UpdateDates(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Delete handles DELETE /invoices/:id
//
// @Summary      Delete invoice
// @Description  Delete a DRAFT invoice and its line items
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddLineItem handles POST /invoices/:id/line-items
//
// @Summary      Add line item
// @Description  Append a line item to a DRAFT invoice and recalculate its totals
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoicingapp.LineItemRequest true "Line item"
// @Success      201 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/line-items [post]
func (h *InvoiceHandler) AddLineItem(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req invoicingapp.LineItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.AddLineItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// UpdateLineItem handles PUT /invoices/:id/line-items/:item_id
//
// @Summary      Update line item
// @Description  Replace a line item of a DRAFT invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        item_id path string true "Line item ID" format(uuid)
// @Param        request body invoicingapp.LineItemRequest true "Line item"
// @Success      200 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/line-items/{item_id} [put]
func (h *InvoiceHandler) UpdateLineItem(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "item_id")
	if !ok {
		return
	}
	var req invoicingapp.LineItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.UpdateLineItem(c.Request.Context(), id, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// RemoveLineItem handles DELETE /invoices/:id/line-items/:item_id
//
// @Summary      Remove line item
// @Description  Remove a line item from a DRAFT invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        item_id path string true "Line item ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/line-items/{item_id} [delete]
func (h *InvoiceHandler) RemoveLineItem(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "item_id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.RemoveLineItem(c.Request.Context(), id, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Send handles POST /invoices/:id/send
//
// @Summary      Send invoice
// @Description  Move a DRAFT invoice with at least one line item to SENT
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/send [post]
func (h *InvoiceHandler) Send(c *gin.Context) {
	h.transition(c, h.invoiceService.Send)
}

// MarkAsPaid handles POST /invoices/:id/mark-paid
//
// @Summary      Mark invoice paid
// @Description  Settle the remaining balance of a SENT or OVERDUE invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/mark-paid [post]
func (h *InvoiceHandler) MarkAsPaid(c *gin.Context) {
	h.transition(c, h.invoiceService.MarkAsPaid)
}

// Cancel handles POST /invoices/:id/cancel
//
// @Summary      Cancel invoice
// @Description  Cancel an invoice that has no payments and is not PAID
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	h.transition(c, h.invoiceService.Cancel)
}

// GetBalance handles GET /invoices/:id/balance
//
// @Summary      Get invoice balance
// @Description  Total, paid amount and balance due of an invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicingapp.BalanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/balance [get]
func (h *InvoiceHandler) GetBalance(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	balance, err := h.invoiceService.GetBalance(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// transition runs a status command that takes nothing but the invoice id
func (h *InvoiceHandler) transition(c *gin.Context, command func(context.Context, uuid.UUID) (*invoicingapp.InvoiceResponse, error)) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	invoice, err := command(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}
