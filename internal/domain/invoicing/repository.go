package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
)

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	shared.Filter
	Status     *InvoiceStatus
	CustomerID *uuid.UUID
	FromDate   *time.Time // issue date lower bound, inclusive
	ToDate     *time.Time // issue date upper bound, inclusive
}

// InvoiceRepository persists Invoice aggregates together with their line items
type InvoiceRepository interface {
	// FindByID returns a fully materialised invoice, line items included
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByInvoiceNumber finds an invoice by its unique number
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindAll returns invoices matching the filter, line items included
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// Count returns the number of invoices matching the filter
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)

	// FindOverdueCandidates returns SENT invoices whose due date is before asOf
	FindOverdueCandidates(ctx context.Context, asOf time.Time) ([]Invoice, error)

	// ExistsByInvoiceNumber checks whether the number is taken
	ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error)

	// LatestInvoiceNumberWithPrefix returns the greatest invoice number starting with prefix,
	// or an empty string when none exists
	LatestInvoiceNumberWithPrefix(ctx context.Context, prefix string) (string, error)

	// ExistsByCustomerID checks whether any invoice references the customer
	ExistsByCustomerID(ctx context.Context, customerID uuid.UUID) (bool, error)

	// Save inserts a new invoice or updates an existing one with an optimistic version check.
	// Line items are written in the same transaction. On success the in-memory Version is advanced;
	// a stale version yields shared.ErrConcurrencyConflict.
	Save(ctx context.Context, invoice *Invoice) error

	// Delete removes a draft invoice and its line items when the stored version still equals version.
	// A row that moved on, or left DRAFT, yields shared.ErrConcurrencyConflict.
	Delete(ctx context.Context, id uuid.UUID, version int) error
}

// PaymentRepository persists Payment records. Payments are never updated after insert.
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
	Save(ctx context.Context, payment *Payment) error
}
