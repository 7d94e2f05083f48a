package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
)

// maxIdempotencyKeyLength caps the Idempotency-Key header
const maxIdempotencyKeyLength = 255

// PaymentHandler handles payment recording and payment queries
type PaymentHandler struct {
	BaseHandler
	paymentService *invoicingapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *invoicingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Record handles POST /invoices/:id/payments.
// A request repeating an earlier Idempotency-Key gets the original result
// with 200 instead of 201, and the payment is not applied again.
//
// @Summary      Record payment
// @Description  Apply a payment to a SENT or OVERDUE invoice. Repeating an Idempotency-Key replays the original result with 200.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        Idempotency-Key header string false "Client supplied key for safe retries"
// @Param        request body invoicingapp.RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=invoicingapp.RecordPaymentResponse}
// @Success      200 {object} dto.Response{data=invoicingapp.RecordPaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	invoiceID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	key := c.GetHeader(middleware.IdempotencyKeyHeader)
	if len(key) > maxIdempotencyKeyLength {
		h.BadRequest(c, dto.ErrCodeBadRequest, "Idempotency-Key is too long")
		return
	}
	var req invoicingapp.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), invoiceID, req, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(result))
		return
	}
	h.Created(c, result)
}

// ListForInvoice handles GET /invoices/:id/payments
//
// @Summary      List invoice payments
// @Description  Payments recorded against an invoice
// @Tags         payments
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]invoicingapp.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/payments [get]
func (h *PaymentHandler) ListForInvoice(c *gin.Context) {
	invoiceID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	payments, err := h.paymentService.ListForInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// GetByID handles GET /payments/:id
//
// @Summary      Get payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicingapp.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}
