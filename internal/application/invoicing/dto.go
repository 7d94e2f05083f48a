package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// =============================================================================
// Invoice DTOs
// =============================================================================

// CreateInvoiceRequest represents a request to create a draft invoice.
// InvoiceNumber is generated when empty; IssueDate defaults to today and DueDate
// to IssueDate plus the configured number of days.
type CreateInvoiceRequest struct {
	CustomerID    uuid.UUID         `json:"customer_id" binding:"required"`
	InvoiceNumber string            `json:"invoice_number" binding:"omitempty,max=50"`
	IssueDate     string            `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	DueDate       string            `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	LineItems     []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
}

// UpdateInvoiceRequest replaces the dates of a draft invoice
type UpdateInvoiceRequest struct {
	IssueDate string `json:"issue_date" binding:"required,datetime=2006-01-02"`
	DueDate   string `json:"due_date" binding:"required,datetime=2006-01-02"`
}

// LineItemRequest adds or replaces one line item
type LineItemRequest struct {
	Description string           `json:"description" binding:"required,max=500"`
	Quantity    *decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   *decimal.Decimal `json:"unit_price" binding:"required"`
}

// InvoiceListFilter represents filter options for the invoice list
type InvoiceListFilter struct {
	Status     string     `form:"status" binding:"omitempty,oneof=DRAFT SENT PAID OVERDUE CANCELLED"`
	CustomerID *uuid.UUID `form:"customer_id"`
	FromDate   string     `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate     string     `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=issue_date due_date invoice_number total_amount created_at"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID          uuid.UUID         `json:"id"`
	Description string            `json:"description"`
	Quantity    decimal.Decimal   `json:"quantity"`
	UnitPrice   valueobject.Money `json:"unit_price"`
	LineTotal   valueobject.Money `json:"line_total"`
}

// InvoiceResponse represents a full invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID          `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	CustomerID    uuid.UUID          `json:"customer_id"`
	IssueDate     string             `json:"issue_date"`
	DueDate       string             `json:"due_date"`
	Status        string             `json:"status"`
	LineItems     []LineItemResponse `json:"line_items"`
	Subtotal      valueobject.Money  `json:"subtotal"`
	TaxAmount     valueobject.Money  `json:"tax_amount"`
	TotalAmount   valueobject.Money  `json:"total_amount"`
	BalanceDue    valueobject.Money  `json:"balance_due"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
	PaidAt        *time.Time         `json:"paid_at,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Version       int                `json:"version"`
}

// InvoiceListResponse represents a list item for invoices
type InvoiceListResponse struct {
	ID            uuid.UUID         `json:"id"`
	InvoiceNumber string            `json:"invoice_number"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	IssueDate     string            `json:"issue_date"`
	DueDate       string            `json:"due_date"`
	Status        string            `json:"status"`
	ItemCount     int               `json:"item_count"`
	TotalAmount   valueobject.Money `json:"total_amount"`
	BalanceDue    valueobject.Money `json:"balance_due"`
	CreatedAt     time.Time         `json:"created_at"`
}

// BalanceResponse is the outstanding position of one invoice
type BalanceResponse struct {
	InvoiceID     uuid.UUID         `json:"invoice_id"`
	InvoiceNumber string            `json:"invoice_number"`
	Status        string            `json:"status"`
	TotalAmount   valueobject.Money `json:"total_amount"`
	PaidAmount    valueobject.Money `json:"paid_amount"`
	BalanceDue    valueobject.Money `json:"balance_due"`
	DueDate       string            `json:"due_date"`
}

// ToLineItemResponse converts a domain LineItem to LineItemResponse
func ToLineItemResponse(item *invoicing.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:          item.ID,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		LineTotal:   item.LineTotal,
	}
}

// ToInvoiceResponse converts a domain Invoice to InvoiceResponse
func ToInvoiceResponse(inv *invoicing.Invoice) InvoiceResponse {
	items := make([]LineItemResponse, len(inv.LineItems))
	for i := range inv.LineItems {
		items[i] = ToLineItemResponse(&inv.LineItems[i])
	}
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		IssueDate:     inv.IssueDate.Format(DateLayout),
		DueDate:       inv.DueDate.Format(DateLayout),
		Status:        string(inv.Status),
		LineItems:     items,
		Subtotal:      inv.Subtotal,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   inv.TotalAmount,
		BalanceDue:    inv.BalanceDue,
		SentAt:        inv.SentAt,
		PaidAt:        inv.PaidAt,
		CancelledAt:   inv.CancelledAt,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
		Version:       inv.Version,
	}
}

// ToInvoiceListResponse converts a domain Invoice to InvoiceListResponse
func ToInvoiceListResponse(inv *invoicing.Invoice) InvoiceListResponse {
	return InvoiceListResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		IssueDate:     inv.IssueDate.Format(DateLayout),
		DueDate:       inv.DueDate.Format(DateLayout),
		Status:        string(inv.Status),
		ItemCount:     inv.LineItemCount(),
		TotalAmount:   inv.TotalAmount,
		BalanceDue:    inv.BalanceDue,
		CreatedAt:     inv.CreatedAt,
	}
}

// ToInvoiceListResponses converts a slice of invoices
func ToInvoiceListResponses(invoices []invoicing.Invoice) []InvoiceListResponse {
	responses := make([]InvoiceListResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToInvoiceListResponse(&invoices[i])
	}
	return responses
}

// ToBalanceResponse converts a domain Invoice to BalanceResponse
func ToBalanceResponse(inv *invoicing.Invoice) BalanceResponse {
	return BalanceResponse{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        string(inv.Status),
		TotalAmount:   inv.TotalAmount,
		PaidAmount:    inv.PaidAmount(),
		BalanceDue:    inv.BalanceDue,
		DueDate:       inv.DueDate.Format(DateLayout),
	}
}

// =============================================================================
// Payment DTOs
// =============================================================================

// RecordPaymentRequest records funds received against an invoice.
// PaymentDate defaults to today.
type RecordPaymentRequest struct {
	Amount          *decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate     string           `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	Method          string           `json:"payment_method" binding:"required,oneof=CASH CREDIT_CARD DEBIT_CARD BANK_TRANSFER CHECK OTHER"`
	ReferenceNumber string           `json:"reference_number" binding:"omitempty,max=100"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID              uuid.UUID         `json:"id"`
	InvoiceID       uuid.UUID         `json:"invoice_id"`
	PaymentDate     string            `json:"payment_date"`
	Amount          valueobject.Money `json:"amount"`
	Method          string            `json:"payment_method"`
	ReferenceNumber string            `json:"reference_number,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// RecordPaymentResponse is the payment together with the invoice position after applying it
type RecordPaymentResponse struct {
	Payment       PaymentResponse   `json:"payment"`
	InvoiceID     uuid.UUID         `json:"invoice_id"`
	InvoiceStatus string            `json:"invoice_status"`
	BalanceDue    valueobject.Money `json:"balance_due"`
	Replayed      bool              `json:"replayed"`
}

// ToPaymentResponse converts a domain Payment to PaymentResponse
func ToPaymentResponse(p *invoicing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		InvoiceID:       p.InvoiceID,
		PaymentDate:     p.PaymentDate.Format(DateLayout),
		Amount:          p.Amount,
		Method:          string(p.Method),
		ReferenceNumber: p.ReferenceNumber,
		CreatedAt:       p.CreatedAt,
	}
}

// ToPaymentResponses converts a slice of payments
func ToPaymentResponses(payments []invoicing.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = ToPaymentResponse(&payments[i])
	}
	return responses
}
