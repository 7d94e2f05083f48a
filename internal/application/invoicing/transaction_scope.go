package invoicing

import (
	"context"

	"github.com/invoicing/backend/internal/domain/invoicing"
)

// TransactionScope runs a function inside one database transaction.
// A returned error rolls the transaction back; nil commits it.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories sharing the current transaction.
// Recording a payment writes the Payment row and the Invoice balance through it so both
// commit or neither does.
type TransactionalRepositories interface {
	InvoiceRepo() invoicing.InvoiceRepository
	PaymentRepo() invoicing.PaymentRepository
}

// NoOpTransactionScope runs the function directly against the given repositories.
// Used by tests and by callers without transaction support.
type NoOpTransactionScope struct {
	invoiceRepo invoicing.InvoiceRepository
	paymentRepo invoicing.PaymentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(invoiceRepo invoicing.InvoiceRepository, paymentRepo invoicing.PaymentRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
	}
}

func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) InvoiceRepo() invoicing.InvoiceRepository {
	return s.invoiceRepo
}

func (s *NoOpTransactionScope) PaymentRepo() invoicing.PaymentRepository {
	return s.paymentRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
