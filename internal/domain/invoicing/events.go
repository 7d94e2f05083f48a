package invoicing

import (
	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeInvoice = "Invoice"
	AggregateTypePayment = "Payment"
)

// Event type constants
const (
	EventTypeInvoiceCreated        = "InvoiceCreated"
	EventTypeInvoiceSent           = "InvoiceSent"
	EventTypeInvoicePaymentApplied = "InvoicePaymentApplied"
	EventTypeInvoicePaid           = "InvoicePaid"
	EventTypeInvoiceCancelled      = "InvoiceCancelled"
	EventTypeInvoiceOverdue        = "InvoiceOverdue"
	EventTypePaymentRecorded       = "PaymentRecorded"
)

// PaidReason tells how an invoice reached PAID
type PaidReason string

const (
	PaidByPayment PaidReason = "payment"
	PaidManually  PaidReason = "manual"
)

// InvoiceCreatedEvent is raised when a draft invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(invoice *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		CustomerID:      invoice.CustomerID,
	}
}

// InvoiceSentEvent is raised when an invoice leaves DRAFT
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ItemCount     int             `json:"item_count"`
}

// NewInvoiceSentEvent creates a new InvoiceSentEvent
func NewInvoiceSentEvent(invoice *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSent, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		CustomerID:      invoice.CustomerID,
		TotalAmount:     invoice.TotalAmount.Amount(),
		ItemCount:       len(invoice.LineItems),
	}
}

// InvoicePaymentAppliedEvent is raised each time a payment reduces the balance
type InvoicePaymentAppliedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount"`
	BalanceDue decimal.Decimal `json:"balance_due"`
}

// NewInvoicePaymentAppliedEvent creates a new InvoicePaymentAppliedEvent
func NewInvoicePaymentAppliedEvent(invoice *Invoice, amount valueobject.Money) *InvoicePaymentAppliedEvent {
	return &InvoicePaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaymentApplied, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		Amount:          amount.Amount(),
		BalanceDue:      invoice.BalanceDue.Amount(),
	}
}

// InvoicePaidEvent is raised when an invoice reaches PAID
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Reason        PaidReason      `json:"reason"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(invoice *Invoice, reason PaidReason) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		TotalAmount:     invoice.TotalAmount.Amount(),
		Reason:          reason,
	}
}

// InvoiceCancelledEvent is raised when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	PreviousStatus InvoiceStatus   `json:"previous_status"`
	ForgivenAmount decimal.Decimal `json:"forgiven_amount"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(invoice *Invoice, previous InvoiceStatus, forgiven valueobject.Money) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		PreviousStatus:  previous,
		ForgivenAmount:  forgiven.Amount(),
	}
}

// InvoiceOverdueEvent is raised when the overdue sweep flags an invoice
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(invoice *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceOverdue, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		CustomerID:      invoice.CustomerID,
		BalanceDue:      invoice.BalanceDue.Amount(),
	}
}

// PaymentRecordedEvent is raised when a payment record is created
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(payment *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, payment.ID),
		PaymentID:       payment.ID,
		InvoiceID:       payment.InvoiceID,
		Amount:          payment.Amount.Amount(),
		Method:          payment.Method,
	}
}
