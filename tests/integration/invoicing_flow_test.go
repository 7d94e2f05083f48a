package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	partnerapp "github.com/invoicing/backend/internal/application/partner"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type services struct {
	customers   *partnerapp.CustomerService
	invoices    *invoicingapp.InvoiceService
	payments    *invoicingapp.PaymentService
	overdue     *invoicingapp.OverdueService
	invoiceRepo *persistence.GormInvoiceRepository
}

func newServices(t *testing.T, tdb *TestDB) *services {
	log := zaptest.NewLogger(t)
	cfg := invoicingapp.ServiceConfig{DefaultDueDays: 30, ConflictRetries: 10}

	invoiceRepo := persistence.NewGormInvoiceRepository(tdb.DB)
	paymentRepo := persistence.NewGormPaymentRepository(tdb.DB)
	customers := partnerapp.NewCustomerService(persistence.NewGormCustomerRepository(tdb.DB), invoiceRepo, log)

	return &services{
		customers: customers,
		invoices: invoicingapp.NewInvoiceService(invoiceRepo, customers,
			invoicingapp.NewNumberGenerator(invoiceRepo, "INV"), cfg, log),
		payments:    invoicingapp.NewPaymentService(persistence.NewGormTransactionScope(tdb.DB), invoiceRepo, paymentRepo, cfg, log),
		overdue:     invoicingapp.NewOverdueService(invoiceRepo, cfg, log),
		invoiceRepo: invoiceRepo,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// sentInvoice creates a customer and a SENT invoice totalling 275.00 due 2024-03-31
func (s *services) sentInvoice(t *testing.T, email string) *invoicingapp.InvoiceResponse {
	t.Helper()
	ctx := context.Background()

	customer, err := s.customers.Create(ctx, partnerapp.CreateCustomerRequest{Name: "Acme Corp", Email: email})
	require.NoError(t, err)

	inv, err := s.invoices.Create(ctx, invoicingapp.CreateInvoiceRequest{
		CustomerID: customer.ID,
		IssueDate:  "2024-03-01",
		DueDate:    "2024-03-31",
		LineItems: []invoicingapp.LineItemRequest{
			{Description: "Consulting", Quantity: dec("2"), UnitPrice: dec("50.00")},
			{Description: "Setup fee", Quantity: dec("1"), UnitPrice: dec("150.00")},
		},
	})
	require.NoError(t, err)

	sent, err := s.invoices.Send(ctx, inv.ID)
	require.NoError(t, err)
	return sent
}

func TestInvoicingFlow_PostgreSQL(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(t, tdb)
	ctx := context.Background()

	inv := svc.sentInvoice(t, "flow@acme.test")
	assert.Equal(t, "INV20240301-00001", inv.InvoiceNumber)
	assert.Equal(t, "275.00", inv.BalanceDue.String())
	assert.Equal(t, "SENT", inv.Status)

	first, err := svc.payments.RecordPayment(ctx, inv.ID, invoicingapp.RecordPaymentRequest{
		Amount: dec("100.00"), PaymentDate: "2024-03-10", Method: "BANK_TRANSFER",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "SENT", first.InvoiceStatus)
	assert.Equal(t, "175.00", first.BalanceDue.String())

	_, err = svc.payments.RecordPayment(ctx, inv.ID, invoicingapp.RecordPaymentRequest{
		Amount: dec("175.01"), Method: "CASH",
	}, "")
	assert.ErrorIs(t, err, invoicing.ErrPaymentExceedsBalance)

	marked, err := svc.overdue.MarkOverdue(ctx, day(2024, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	last, err := svc.payments.RecordPayment(ctx, inv.ID, invoicingapp.RecordPaymentRequest{
		Amount: dec("175.00"), Method: "CHECK", ReferenceNumber: "CHK-1",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "PAID", last.InvoiceStatus)
	assert.True(t, last.BalanceDue.IsZero())

	balance, err := svc.invoices.GetBalance(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "275.00", balance.PaidAmount.String())

	payments, err := svc.payments.ListForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	_, err = svc.invoices.Cancel(ctx, inv.ID)
	assert.ErrorIs(t, err, invoicing.ErrInvoiceNotCancellable)
}

func TestInvoiceRepository_StaleSaveIsRejected(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(t, tdb)
	ctx := context.Background()

	inv := svc.sentInvoice(t, "stale@acme.test")

	a, err := svc.invoiceRepo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	b, err := svc.invoiceRepo.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	require.NoError(t, a.ApplyPayment(valueobject.MustNewMoneyFromString("10.00")))
	require.NoError(t, svc.invoiceRepo.Save(ctx, a))
	assert.Equal(t, inv.Version+1, a.Version)

	require.NoError(t, b.Cancel())
	err = svc.invoiceRepo.Save(ctx, b)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	stored, err := svc.invoiceRepo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.InvoiceStatusSent, stored.Status)
	assert.Equal(t, "265.00", stored.BalanceDue.String())
}

func TestPaymentService_ConcurrentPaymentsKeepBalance(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(t, tdb)
	ctx := context.Background()

	inv := svc.sentInvoice(t, "race@acme.test")

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted = decimal.Zero
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.payments.RecordPayment(ctx, inv.ID, invoicingapp.RecordPaymentRequest{
				Amount: dec("50.00"), Method: "CASH",
			}, "")
			switch {
			case err == nil:
				mu.Lock()
				accepted = accepted.Add(decimal.RequireFromString("50.00"))
				mu.Unlock()
			case errors.Is(err, invoicing.ErrPaymentExceedsBalance),
				errors.Is(err, invoicing.ErrInvoiceNotPayable),
				errors.Is(err, shared.ErrConcurrencyConflict):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// 275.00 admits at most five payments of 50.00
	assert.True(t, accepted.LessThanOrEqual(decimal.RequireFromString("250.00")), accepted.String())

	balance, err := svc.invoices.GetBalance(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, balance.PaidAmount.Amount().Equal(accepted), "paid %s, accepted %s", balance.PaidAmount, accepted)
	assert.False(t, balance.BalanceDue.IsNegative())

	payments, err := svc.payments.ListForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount.Amount())
	}
	assert.True(t, sum.Equal(accepted), "stored payments %s, accepted %s", sum, accepted)
}

func TestCustomerService_DuplicateEmailAndReferencedDelete(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(t, tdb)
	ctx := context.Background()

	inv := svc.sentInvoice(t, "dup@acme.test")

	_, err := svc.customers.Create(ctx, partnerapp.CreateCustomerRequest{Name: "Other", Email: "DUP@acme.test"})
	require.Error(t, err)
	assert.Equal(t, shared.KindConflict, kindOf(err))

	err = svc.customers.Delete(ctx, inv.CustomerID)
	require.Error(t, err)
	assert.Equal(t, shared.KindStateConflict, kindOf(err))

	tdb.CleanTables()
	_, err = svc.invoices.GetByID(ctx, inv.ID)
	assert.ErrorIs(t, err, invoicing.ErrInvoiceNotFound)
	_, err = svc.customers.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInvoiceRepository_DeleteRacesWithSend(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(t, tdb)
	ctx := context.Background()

	customer, err := svc.customers.Create(ctx, partnerapp.CreateCustomerRequest{Name: "Acme Corp", Email: "race-delete@acme.test"})
	require.NoError(t, err)
	draft, err := svc.invoices.Create(ctx, invoicingapp.CreateInvoiceRequest{
		CustomerID: customer.ID,
		IssueDate:  "2024-03-01",
		DueDate:    "2024-03-31",
		LineItems:  []invoicingapp.LineItemRequest{{Description: "Consulting", Quantity: dec("1"), UnitPrice: dec("100.00")}},
	})
	require.NoError(t, err)

	snapshot, err := svc.invoiceRepo.FindByID(ctx, draft.ID)
	require.NoError(t, err)

	_, err = svc.invoices.Send(ctx, draft.ID)
	require.NoError(t, err)

	err = svc.invoiceRepo.Delete(ctx, snapshot.ID, snapshot.Version)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	err = svc.invoices.Delete(ctx, draft.ID)
	assert.ErrorIs(t, err, invoicing.ErrInvoiceNotDraft)

	stored, err := svc.invoiceRepo.FindByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.InvoiceStatusSent, stored.Status)

	// the snapshot is still a draft; once the row is gone it must not be re-inserted
	require.NoError(t, tdb.DB.Exec("DELETE FROM invoices WHERE id = ?", draft.ID).Error)
	err = svc.invoiceRepo.Save(ctx, snapshot)
	assert.ErrorIs(t, err, invoicing.ErrInvoiceNotFound)
	_, err = svc.invoiceRepo.FindByID(ctx, draft.ID)
	assert.ErrorIs(t, err, invoicing.ErrInvoiceNotFound)
}

func TestCustomerRepository_DeleteReferencedCustomer(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(t, tdb)
	ctx := context.Background()

	inv := svc.sentInvoice(t, "fk@acme.test")

	err := persistence.NewGormCustomerRepository(tdb.DB).Delete(ctx, inv.CustomerID)
	assert.ErrorIs(t, err, partner.ErrCustomerHasInvoices)
	assert.Equal(t, shared.KindStateConflict, kindOf(err))
}

func kindOf(err error) shared.ErrorKind {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}
