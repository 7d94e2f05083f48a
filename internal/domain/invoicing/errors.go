package invoicing

import "github.com/invoicing/backend/internal/domain/shared"

// Error codes raised by the invoicing context. Errors are matched with errors.Is on the code,
// so operations may return a fresh error with a more specific message.
var (
	ErrInvalidCustomer      = shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	ErrInvalidInvoiceNumber = shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number is invalid")
	ErrInvalidDateRange     = shared.NewDomainError("INVALID_DATE_RANGE", "Due date cannot be before issue date")
	ErrInvalidLineItem      = shared.NewDomainError("INVALID_LINE_ITEM", "Line item is invalid")
	ErrInvalidPayment       = shared.NewDomainError("INVALID_PAYMENT", "Payment is invalid")

	ErrInvoiceNotDraft           = shared.NewStateConflictError("INVOICE_NOT_DRAFT", "Invoice is not in draft status")
	ErrInvoiceHasNoLineItems     = shared.NewStateConflictError("INVOICE_HAS_NO_LINE_ITEMS", "Cannot send an invoice without line items")
	ErrInvoiceNotPayable         = shared.NewStateConflictError("INVOICE_NOT_PAYABLE", "Invoice does not accept payments in its current status")
	ErrInvoiceNotCancellable     = shared.NewStateConflictError("INVOICE_NOT_CANCELLABLE", "Only draft or sent invoices can be cancelled")
	ErrInvoiceNotOverdueEligible = shared.NewStateConflictError("INVOICE_NOT_OVERDUE_ELIGIBLE", "Only sent invoices past their due date can become overdue")

	ErrInvoiceNumberExists = shared.NewDomainErrorWithKind(shared.KindConflict, "INVOICE_NUMBER_EXISTS", "Invoice number already exists")

	ErrInvoiceNotFound  = shared.NewNotFoundError("INVOICE_NOT_FOUND", "Invoice not found")
	ErrLineItemNotFound = shared.NewNotFoundError("LINE_ITEM_NOT_FOUND", "Line item not found")
	ErrPaymentNotFound  = shared.NewNotFoundError("PAYMENT_NOT_FOUND", "Payment not found")

	ErrNonPositivePayment    = shared.NewBalanceViolationError("NON_POSITIVE_PAYMENT", "Payment amount must be greater than zero")
	ErrPaymentExceedsBalance = shared.NewBalanceViolationError("PAYMENT_EXCEEDS_BALANCE", "Payment amount cannot exceed balance due")
)
