package invoicing

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const (
	// MaxInvoiceNumberLength is the longest invoice number accepted
	MaxInvoiceNumberLength = 50

	// taxRatePercent is the flat sales tax applied to every invoice subtotal
	taxRatePercent = 10
)

// TaxRate returns the tax rate applied to invoice subtotals (0.10)
func TaxRate() decimal.Decimal {
	return decimal.New(taxRatePercent, -2)
}

// DateOf truncates t to a calendar date in UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Invoice is the aggregate root of the invoicing context.
// It owns its line items, derives the monetary totals from them and guards
// the status lifecycle together with the balance due.
//
// Invariants:
//   - Subtotal is the sum of the line totals
//   - TaxAmount is Subtotal * TaxRate rounded to two digits
//   - TotalAmount is Subtotal + TaxAmount
//   - BalanceDue is zero for DRAFT, PAID and CANCELLED invoices and lies in
//     [0, TotalAmount] for SENT and OVERDUE invoices
type Invoice struct {
	shared.BaseAggregateRoot
	CustomerID    uuid.UUID
	InvoiceNumber string
	IssueDate     time.Time
	DueDate       time.Time
	Status        InvoiceStatus
	LineItems     []LineItem
	Subtotal      valueobject.Money
	TaxAmount     valueobject.Money
	TotalAmount   valueobject.Money
	BalanceDue    valueobject.Money
	SentAt        *time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
}

// NewInvoice creates a new invoice in DRAFT status with all totals at zero
func NewInvoice(customerID uuid.UUID, invoiceNumber string, issueDate, dueDate time.Time) (*Invoice, error) {
	if customerID == uuid.Nil {
		return nil, ErrInvalidCustomer
	}
	if err := validateInvoiceNumber(invoiceNumber); err != nil {
		return nil, err
	}
	if err := validateDates(issueDate, dueDate); err != nil {
		return nil, err
	}

	invoice := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		InvoiceNumber:     invoiceNumber,
		IssueDate:         DateOf(issueDate),
		DueDate:           DateOf(dueDate),
		Status:            InvoiceStatusDraft,
		LineItems:         make([]LineItem, 0),
		Subtotal:          valueobject.Zero(),
		TaxAmount:         valueobject.Zero(),
		TotalAmount:       valueobject.Zero(),
		BalanceDue:        valueobject.Zero(),
	}

	invoice.AddDomainEvent(NewInvoiceCreatedEvent(invoice))

	return invoice, nil
}

// AddLineItem adds a new line item and recalculates the totals.
// Only allowed in DRAFT status.
func (i *Invoice) AddLineItem(description string, quantity decimal.Decimal, unitPrice valueobject.Money) (*LineItem, error) {
	if err := i.ensureDraft("Cannot add line items to a non-draft invoice"); err != nil {
		return nil, err
	}

	item, err := newLineItem(description, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	i.LineItems = append(i.LineItems, *item)
	i.recalculateTotals()
	i.UpdatedAt = time.Now()

	return item, nil
}

// UpdateLineItem replaces the description, quantity and unit price of an existing line item.
// Only allowed in DRAFT status.
func (i *Invoice) UpdateLineItem(itemID uuid.UUID, description string, quantity decimal.Decimal, unitPrice valueobject.Money) error {
	if err := i.ensureDraft("Cannot update line items of a non-draft invoice"); err != nil {
		return err
	}

	for idx := range i.LineItems {
		if i.LineItems[idx].ID == itemID {
			if err := i.LineItems[idx].update(description, quantity, unitPrice); err != nil {
				return err
			}
			i.recalculateTotals()
			i.UpdatedAt = time.Now()
			return nil
		}
	}

	return lineItemNotFound(itemID)
}

// RemoveLineItem removes a line item by ID.
// Only allowed in DRAFT status; removing an unknown item is an error, not a no-op.
func (i *Invoice) RemoveLineItem(itemID uuid.UUID) error {
	if err := i.ensureDraft("Cannot remove line items from a non-draft invoice"); err != nil {
		return err
	}

	for idx, item := range i.LineItems {
		if item.ID == itemID {
			i.LineItems = append(i.LineItems[:idx], i.LineItems[idx+1:]...)
			i.recalculateTotals()
			i.UpdatedAt = time.Now()
			return nil
		}
	}

	return lineItemNotFound(itemID)
}

// UpdateDates changes the issue and due dates. Only allowed in DRAFT status.
func (i *Invoice) UpdateDates(issueDate, dueDate time.Time) error {
	if err := i.ensureDraft("Cannot update a non-draft invoice"); err != nil {
		return err
	}
	if err := validateDates(issueDate, dueDate); err != nil {
		return err
	}

	i.IssueDate = DateOf(issueDate)
	i.DueDate = DateOf(dueDate)
	i.UpdatedAt = time.Now()
	return nil
}

// Send moves a DRAFT invoice with at least one line item to SENT.
// The whole total becomes due.
func (i *Invoice) Send() error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewStateConflictError(ErrInvoiceNotDraft.Code,
			fmt.Sprintf("Only draft invoices can be sent, current status: %s", i.Status))
	}
	if len(i.LineItems) == 0 {
		return ErrInvoiceHasNoLineItems
	}

	now := time.Now()
	i.Status = InvoiceStatusSent
	i.BalanceDue = i.TotalAmount
	i.SentAt = &now
	i.UpdatedAt = now

	i.AddDomainEvent(NewInvoiceSentEvent(i))

	return nil
}

// CanApplyPayment checks every ApplyPayment guard without mutating the invoice
func (i *Invoice) CanApplyPayment(amount valueobject.Money) error {
	if !i.Status.AcceptsPayments() {
		return shared.NewStateConflictError(ErrInvoiceNotPayable.Code,
			fmt.Sprintf("cannot apply payment to invoice with status: %s", i.Status))
	}
	if !amount.IsPositive() {
		return ErrNonPositivePayment
	}
	if amount.GreaterThan(i.BalanceDue) {
		return shared.NewBalanceViolationError(ErrPaymentExceedsBalance.Code,
			fmt.Sprintf("Payment amount %s exceeds invoice balance due %s", amount, i.BalanceDue))
	}
	return nil
}

// ApplyPayment reduces the balance due by amount. A payment that clears the
// balance moves the invoice to PAID in the same call.
func (i *Invoice) ApplyPayment(amount valueobject.Money) error {
	if err := i.CanApplyPayment(amount); err != nil {
		return err
	}

	now := time.Now()
	i.BalanceDue = i.BalanceDue.Subtract(amount)
	i.UpdatedAt = now

	i.AddDomainEvent(NewInvoicePaymentAppliedEvent(i, amount))

	if i.BalanceDue.IsZero() {
		i.Status = InvoiceStatusPaid
		i.PaidAt = &now
		i.AddDomainEvent(NewInvoicePaidEvent(i, PaidByPayment))
	}

	return nil
}

// MarkAsPaid is the administrative override that settles a SENT or OVERDUE invoice
func (i *Invoice) MarkAsPaid() error {
	if !i.Status.AcceptsPayments() {
		return shared.NewStateConflictError(ErrInvoiceNotPayable.Code,
			fmt.Sprintf("Can only mark SENT or OVERDUE invoices as paid, current status: %s", i.Status))
	}

	now := time.Now()
	i.Status = InvoiceStatusPaid
	i.BalanceDue = valueobject.Zero()
	i.PaidAt = &now
	i.UpdatedAt = now

	i.AddDomainEvent(NewInvoicePaidEvent(i, PaidManually))

	return nil
}

// Cancel cancels a DRAFT or SENT invoice and forgives any balance due
func (i *Invoice) Cancel() error {
	if i.Status != InvoiceStatusDraft && i.Status != InvoiceStatusSent {
		return shared.NewStateConflictError(ErrInvoiceNotCancellable.Code,
			fmt.Sprintf("Cannot cancel invoice in %s status", i.Status))
	}

	previous := i.Status
	forgiven := i.BalanceDue
	now := time.Now()
	i.Status = InvoiceStatusCancelled
	i.BalanceDue = valueobject.Zero()
	i.CancelledAt = &now
	i.UpdatedAt = now

	i.AddDomainEvent(NewInvoiceCancelledEvent(i, previous, forgiven))

	return nil
}

// MarkOverdue moves a SENT invoice whose due date lies before asOf to OVERDUE.
// Nothing but the status changes. It is driven by the daily overdue sweep.
func (i *Invoice) MarkOverdue(asOf time.Time) error {
	if i.Status != InvoiceStatusSent || !i.IsPastDue(asOf) {
		return shared.NewStateConflictError(ErrInvoiceNotOverdueEligible.Code,
			fmt.Sprintf("Invoice %s in %s status due %s is not eligible for overdue on %s",
				i.InvoiceNumber, i.Status, i.DueDate.Format(time.DateOnly), DateOf(asOf).Format(time.DateOnly)))
	}

	i.Status = InvoiceStatusOverdue
	i.UpdatedAt = time.Now()

	i.AddDomainEvent(NewInvoiceOverdueEvent(i))

	return nil
}

// CanDelete returns nil when the invoice may be destroyed (DRAFT only)
func (i *Invoice) CanDelete() error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewStateConflictError(ErrInvoiceNotDraft.Code, "Can only delete draft invoices")
	}
	return nil
}

// recalculateTotals folds the line totals into subtotal, tax and total.
// The balance is reset only while the invoice is still a draft.
func (i *Invoice) recalculateTotals() {
	subtotal := valueobject.Zero()
	for _, item := range i.LineItems {
		subtotal = subtotal.Add(item.LineTotal)
	}

	i.Subtotal = subtotal
	i.TaxAmount = subtotal.Multiply(TaxRate())
	i.TotalAmount = subtotal.Add(i.TaxAmount)

	if i.Status == InvoiceStatusDraft {
		i.BalanceDue = valueobject.Zero()
	}
}

func (i *Invoice) ensureDraft(message string) error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewStateConflictError(ErrInvoiceNotDraft.Code, message)
	}
	return nil
}

// IsPastDue reports whether the due date lies strictly before the calendar date of asOf
func (i *Invoice) IsPastDue(asOf time.Time) bool {
	return DateOf(i.DueDate).Before(DateOf(asOf))
}

// PaidAmount returns the part of the total already settled
func (i *Invoice) PaidAmount() valueobject.Money {
	switch i.Status {
	case InvoiceStatusSent, InvoiceStatusOverdue, InvoiceStatusPaid:
		return i.TotalAmount.Subtract(i.BalanceDue)
	}
	return valueobject.Zero()
}

// GetLineItem returns the line item with the given ID, or nil
func (i *Invoice) GetLineItem(itemID uuid.UUID) *LineItem {
	for idx := range i.LineItems {
		if i.LineItems[idx].ID == itemID {
			return &i.LineItems[idx]
		}
	}
	return nil
}

// LineItemCount returns the number of line items
func (i *Invoice) LineItemCount() int {
	return len(i.LineItems)
}

// IsDraft returns true if the invoice is in draft status
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsTerminal returns true if the invoice is paid or cancelled
func (i *Invoice) IsTerminal() bool {
	return i.Status.IsTerminal()
}

func lineItemNotFound(itemID uuid.UUID) error {
	return shared.NewNotFoundError(ErrLineItemNotFound.Code, fmt.Sprintf("Line item not found: %s", itemID))
}

func validateInvoiceNumber(invoiceNumber string) error {
	if strings.TrimSpace(invoiceNumber) == "" {
		return shared.NewDomainError(ErrInvalidInvoiceNumber.Code, "Invoice number cannot be empty")
	}
	if utf8.RuneCountInString(invoiceNumber) > MaxInvoiceNumberLength {
		return shared.NewDomainError(ErrInvalidInvoiceNumber.Code, "Invoice number cannot exceed 50 characters")
	}
	return nil
}

func validateDates(issueDate, dueDate time.Time) error {
	if issueDate.IsZero() {
		return shared.NewDomainError(ErrInvalidDateRange.Code, "Issue date cannot be empty")
	}
	if dueDate.IsZero() {
		return shared.NewDomainError(ErrInvalidDateRange.Code, "Due date cannot be empty")
	}
	if DateOf(dueDate).Before(DateOf(issueDate)) {
		return ErrInvalidDateRange
	}
	return nil
}
