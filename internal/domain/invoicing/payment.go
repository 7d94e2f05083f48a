package invoicing

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
)

// MaxReferenceNumberLength is the longest payment reference accepted
const MaxReferenceNumberLength = 100

// PaymentMethod is how the funds were received
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the method is a known PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment is an immutable record of funds received against one invoice.
// It references the invoice by ID only.
type Payment struct {
	shared.BaseAggregateRoot
	InvoiceID       uuid.UUID
	PaymentDate     time.Time
	Amount          valueobject.Money
	Method          PaymentMethod
	ReferenceNumber string
}

// NewPayment records a payment. It does not know the invoice balance; callers check it
// before construction and Invoice.ApplyPayment checks it again.
func NewPayment(invoiceID uuid.UUID, paymentDate time.Time, amount valueobject.Money, method PaymentMethod, referenceNumber string) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError(ErrInvalidPayment.Code, "Invoice ID cannot be empty")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError(ErrInvalidPayment.Code, "Payment date cannot be empty")
	}
	if DateOf(paymentDate).After(DateOf(time.Now())) {
		return nil, shared.NewDomainError(ErrInvalidPayment.Code, "Payment date cannot be in the future")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(ErrInvalidPayment.Code, "Payment amount must be greater than zero")
	}
	if method == "" {
		return nil, shared.NewDomainError(ErrInvalidPayment.Code, "Payment method cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(ErrInvalidPayment.Code, fmt.Sprintf("Unknown payment method: %s", method))
	}
	if utf8.RuneCountInString(referenceNumber) > MaxReferenceNumberLength {
		return nil, shared.NewDomainError(ErrInvalidPayment.Code, "Reference number cannot exceed 100 characters")
	}

	payment := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         invoiceID,
		PaymentDate:       DateOf(paymentDate),
		Amount:            amount,
		Method:            method,
		ReferenceNumber:   referenceNumber,
	}

	payment.AddDomainEvent(NewPaymentRecordedEvent(payment))

	return payment, nil
}
