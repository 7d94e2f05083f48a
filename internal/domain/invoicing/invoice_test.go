package invoicing

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) valueobject.Money {
	return valueobject.MustNewMoneyFromString(s)
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	inv, err := NewInvoice(uuid.New(), "INV-20240301-00001", issue, issue.AddDate(0, 0, 30))
	require.NoError(t, err)
	return inv
}

// scenarioA builds the draft invoice with (2 x 100.00) and (1 x 50.00)
func scenarioA(t *testing.T) *Invoice {
	t.Helper()
	inv := newTestInvoice(t)
	_, err := inv.AddLineItem("Consulting", qty("2"), money("100.00"))
	require.NoError(t, err)
	_, err = inv.AddLineItem("Travel", qty("1"), money("50.00"))
	require.NoError(t, err)
	return inv
}

func assertTotalsInvariant(t *testing.T, inv *Invoice) {
	t.Helper()
	sum := valueobject.Zero()
	for _, item := range inv.LineItems {
		assert.True(t, item.LineTotal.Equals(item.UnitPrice.Multiply(item.Quantity)))
		sum = sum.Add(item.LineTotal)
	}
	assert.True(t, inv.Subtotal.Equals(sum), "subtotal %s != sum %s", inv.Subtotal, sum)
	assert.True(t, inv.TaxAmount.Equals(inv.Subtotal.Multiply(TaxRate())))
	assert.True(t, inv.TotalAmount.Equals(inv.Subtotal.Add(inv.TaxAmount)))
	assert.True(t, inv.TotalAmount.Equals(inv.Subtotal.Multiply(decimal.RequireFromString("1.10"))))

	assert.False(t, inv.BalanceDue.IsNegative())
	assert.True(t, inv.BalanceDue.LessThanOrEqual(inv.TotalAmount))
	switch inv.Status {
	case InvoiceStatusDraft, InvoiceStatusPaid, InvoiceStatusCancelled:
		assert.True(t, inv.BalanceDue.IsZero(), "balance must be zero in %s", inv.Status)
	}
}

// ==================== Creation ====================

func TestNewInvoice(t *testing.T) {
	issue := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	due := issue.AddDate(0, 0, 30)

	t.Run("creates draft with zero totals", func(t *testing.T) {
		customerID := uuid.New()
		inv, err := NewInvoice(customerID, "INV-1", issue, due)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, inv.ID)
		assert.Equal(t, customerID, inv.CustomerID)
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
		assert.Equal(t, 1, inv.Version)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), inv.IssueDate)
		for _, m := range []valueobject.Money{inv.Subtotal, inv.TaxAmount, inv.TotalAmount, inv.BalanceDue} {
			assert.True(t, m.IsZero())
		}
		require.Len(t, inv.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeInvoiceCreated, inv.GetDomainEvents()[0].EventType())
	})

	t.Run("due date equal to issue date is allowed", func(t *testing.T) {
		_, err := NewInvoice(uuid.New(), "INV-2", issue, issue)
		require.NoError(t, err)
	})

	tests := []struct {
		name       string
		customerID uuid.UUID
		number     string
		issue      time.Time
		due        time.Time
		code       string
	}{
		{"nil customer", uuid.Nil, "INV-1", issue, due, "INVALID_CUSTOMER"},
		{"empty number", uuid.New(), "", issue, due, "INVALID_INVOICE_NUMBER"},
		{"blank number", uuid.New(), "   ", issue, due, "INVALID_INVOICE_NUMBER"},
		{"number too long", uuid.New(), "INV-" + strings.Repeat("x", 47), issue, due, "INVALID_INVOICE_NUMBER"},
		{"due before issue", uuid.New(), "INV-1", issue, issue.AddDate(0, 0, -1), "INVALID_DATE_RANGE"},
		{"missing issue date", uuid.New(), "INV-1", time.Time{}, due, "INVALID_DATE_RANGE"},
		{"missing due date", uuid.New(), "INV-1", issue, time.Time{}, "INVALID_DATE_RANGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewInvoice(tt.customerID, tt.number, tt.issue, tt.due)
			assert.Nil(t, inv)
			require.Error(t, err)
			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, shared.KindValidation, de.Kind)
		})
	}
}

// ==================== Line items ====================

func TestInvoice_ScenarioA_TotalsFromLineItems(t *testing.T) {
	inv := scenarioA(t)

	assert.Equal(t, InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "250.00", inv.Subtotal.String())
	assert.Equal(t, "25.00", inv.TaxAmount.String())
	assert.Equal(t, "275.00", inv.TotalAmount.String())
	assert.Equal(t, "0.00", inv.BalanceDue.String())
	assertTotalsInvariant(t, inv)
}

func TestInvoice_AddLineItem(t *testing.T) {
	t.Run("computes rounded line total", func(t *testing.T) {
		inv := newTestInvoice(t)
		item, err := inv.AddLineItem("Widget", qty("3"), money("0.335"))
		require.NoError(t, err)
		// 0.335 rounds to 0.34 on construction; 3 x 0.34 = 1.02
		assert.Equal(t, "1.02", item.LineTotal.String())
		assertTotalsInvariant(t, inv)
	})

	t.Run("fractional quantity", func(t *testing.T) {
		inv := newTestInvoice(t)
		item, err := inv.AddLineItem("Hours", qty("1.5"), money("33.33"))
		require.NoError(t, err)
		assert.Equal(t, "50.00", item.LineTotal.String())
	})

	t.Run("quantity with four decimal places", func(t *testing.T) {
		inv := newTestInvoice(t)
		item, err := inv.AddLineItem("Metered usage", qty("0.1234"), money("100.00"))
		require.NoError(t, err)
		assert.Equal(t, "12.34", item.LineTotal.String())
	})

	t.Run("trailing zeros do not count as precision", func(t *testing.T) {
		inv := newTestInvoice(t)
		_, err := inv.AddLineItem("Hours", qty("2.500000"), money("10.00"))
		require.NoError(t, err)
	})

	t.Run("zero price is allowed", func(t *testing.T) {
		inv := newTestInvoice(t)
		_, err := inv.AddLineItem("Free sample", qty("1"), money("0"))
		require.NoError(t, err)
	})

	invalid := []struct {
		name        string
		description string
		quantity    decimal.Decimal
		price       valueobject.Money
	}{
		{"blank description", "  ", qty("1"), money("1")},
		{"description too long", strings.Repeat("d", 501), qty("1"), money("1")},
		{"zero quantity", "Item", qty("0"), money("1")},
		{"negative quantity", "Item", qty("-1"), money("1")},
		{"quantity with five decimal places", "Item", qty("0.00001"), money("1")},
		{"quantity beyond storage range", "Item", qty("100000000"), money("1")},
		{"negative price", "Item", qty("1"), money("-0.01")},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			inv := scenarioA(t)
			before := *inv
			beforeItems := len(inv.LineItems)

			_, err := inv.AddLineItem(tt.description, tt.quantity, tt.price)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidLineItem)
			assert.Equal(t, shared.KindValidation, shared.KindOf(err))
			assert.Len(t, inv.LineItems, beforeItems)
			assert.True(t, inv.TotalAmount.Equals(before.TotalAmount))
		})
	}

	t.Run("description of exactly 500 characters", func(t *testing.T) {
		inv := newTestInvoice(t)
		_, err := inv.AddLineItem(strings.Repeat("d", 500), qty("1"), money("1"))
		require.NoError(t, err)
	})

	t.Run("rejected when not draft", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Send())

		_, err := inv.AddLineItem("Late", qty("1"), money("10"))
		assert.ErrorIs(t, err, ErrInvoiceNotDraft)
		assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))
		assert.Len(t, inv.LineItems, 2)
		assert.Equal(t, "275.00", inv.BalanceDue.String())
	})
}

func TestInvoice_UpdateLineItem(t *testing.T) {
	t.Run("recomputes totals", func(t *testing.T) {
		inv := scenarioA(t)
		itemID := inv.LineItems[1].ID

		err := inv.UpdateLineItem(itemID, "Travel (2 trips)", qty("2"), money("50.00"))
		require.NoError(t, err)

		assert.Equal(t, "100.00", inv.GetLineItem(itemID).LineTotal.String())
		assert.Equal(t, "300.00", inv.Subtotal.String())
		assert.Equal(t, "330.00", inv.TotalAmount.String())
		assertTotalsInvariant(t, inv)
	})

	t.Run("unknown item", func(t *testing.T) {
		inv := scenarioA(t)
		err := inv.UpdateLineItem(uuid.New(), "x", qty("1"), money("1"))
		assert.ErrorIs(t, err, ErrLineItemNotFound)
		assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
	})

	t.Run("invalid values leave item untouched", func(t *testing.T) {
		inv := scenarioA(t)
		item := inv.LineItems[0]

		err := inv.UpdateLineItem(item.ID, "Consulting", qty("0"), money("100.00"))
		assert.ErrorIs(t, err, ErrInvalidLineItem)
		assert.True(t, inv.LineItems[0].Quantity.Equal(item.Quantity))
		assert.Equal(t, "275.00", inv.TotalAmount.String())
	})

	t.Run("rejected when not draft", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Cancel())
		err := inv.UpdateLineItem(inv.LineItems[0].ID, "x", qty("1"), money("1"))
		assert.ErrorIs(t, err, ErrInvoiceNotDraft)
	})
}

func TestInvoice_RemoveLineItem(t *testing.T) {
	t.Run("removes and recomputes", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.RemoveLineItem(inv.LineItems[0].ID))

		assert.Len(t, inv.LineItems, 1)
		assert.Equal(t, "50.00", inv.Subtotal.String())
		assert.Equal(t, "5.00", inv.TaxAmount.String())
		assert.Equal(t, "55.00", inv.TotalAmount.String())
		assert.True(t, inv.BalanceDue.IsZero())
	})

	t.Run("removing the last item zeroes totals", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.RemoveLineItem(inv.LineItems[0].ID))
		require.NoError(t, inv.RemoveLineItem(inv.LineItems[0].ID))
		assert.True(t, inv.TotalAmount.IsZero())
	})

	t.Run("unknown item is not found, not a no-op", func(t *testing.T) {
		inv := scenarioA(t)
		err := inv.RemoveLineItem(uuid.New())
		assert.ErrorIs(t, err, ErrLineItemNotFound)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Len(t, inv.LineItems, 2)
	})

	t.Run("rejected when not draft", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Send())
		err := inv.RemoveLineItem(inv.LineItems[0].ID)
		assert.ErrorIs(t, err, ErrInvoiceNotDraft)
		assert.Len(t, inv.LineItems, 2)
	})
}

func TestInvoice_RecalculateTotalsIsIdempotent(t *testing.T) {
	inv := scenarioA(t)
	first := *inv

	inv.recalculateTotals()
	inv.recalculateTotals()

	assert.True(t, inv.Subtotal.Equals(first.Subtotal))
	assert.True(t, inv.TaxAmount.Equals(first.TaxAmount))
	assert.True(t, inv.TotalAmount.Equals(first.TotalAmount))
	assert.True(t, inv.BalanceDue.Equals(first.BalanceDue))
}

func TestInvoice_RecalculateTotalsKeepsSentBalance(t *testing.T) {
	inv := scenarioA(t)
	require.NoError(t, inv.Send())
	require.NoError(t, inv.ApplyPayment(money("100.00")))

	inv.recalculateTotals()
	assert.Equal(t, "175.00", inv.BalanceDue.String())
}

func TestInvoice_TaxRounding(t *testing.T) {
	inv := newTestInvoice(t)
	_, err := inv.AddLineItem("Odd", qty("1"), money("0.05"))
	require.NoError(t, err)
	// 0.05 * 0.10 = 0.005 rounds half up to 0.01
	assert.Equal(t, "0.01", inv.TaxAmount.String())
	assert.Equal(t, "0.06", inv.TotalAmount.String())
}

func TestInvoice_UpdateDates(t *testing.T) {
	inv := newTestInvoice(t)
	issue := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, inv.UpdateDates(issue, issue.AddDate(0, 0, 14)))
	assert.Equal(t, issue, inv.IssueDate)
	assert.Equal(t, issue.AddDate(0, 0, 14), inv.DueDate)

	err := inv.UpdateDates(issue, issue.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
	assert.Equal(t, issue.AddDate(0, 0, 14), inv.DueDate)

	inv = scenarioA(t)
	require.NoError(t, inv.Send())
	assert.ErrorIs(t, inv.UpdateDates(issue, issue), ErrInvoiceNotDraft)
}

// ==================== Send ====================

func TestInvoice_ScenarioB_Send(t *testing.T) {
	inv := scenarioA(t)
	inv.ClearDomainEvents()

	require.NoError(t, inv.Send())

	assert.Equal(t, InvoiceStatusSent, inv.Status)
	assert.Equal(t, "275.00", inv.BalanceDue.String())
	assert.NotNil(t, inv.SentAt)
	require.Len(t, inv.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeInvoiceSent, inv.GetDomainEvents()[0].EventType())
	assertTotalsInvariant(t, inv)
}

func TestInvoice_ScenarioF_SendEmptyInvoice(t *testing.T) {
	inv := newTestInvoice(t)

	err := inv.Send()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvoiceHasNoLineItems)
	assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))
	assert.Equal(t, InvoiceStatusDraft, inv.Status)
	assert.Nil(t, inv.SentAt)
}

func TestInvoice_SendTwice(t *testing.T) {
	inv := scenarioA(t)
	require.NoError(t, inv.Send())
	err := inv.Send()
	assert.ErrorIs(t, err, ErrInvoiceNotDraft)
	assert.Equal(t, InvoiceStatusSent, inv.Status)
}

// ==================== Payments ====================

func TestInvoice_ScenarioC_PartialThenFullPayment(t *testing.T) {
	inv := scenarioA(t)
	require.NoError(t, inv.Send())

	require.NoError(t, inv.ApplyPayment(money("100.00")))
	assert.Equal(t, InvoiceStatusSent, inv.Status)
	assert.Equal(t, "175.00", inv.BalanceDue.String())
	assert.Equal(t, "100.00", inv.PaidAmount().String())
	assertTotalsInvariant(t, inv)

	inv.ClearDomainEvents()
	require.NoError(t, inv.ApplyPayment(money("175.00")))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.Equal(t, "0.00", inv.BalanceDue.String())
	assert.NotNil(t, inv.PaidAt)
	assertTotalsInvariant(t, inv)

	events := inv.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeInvoicePaymentApplied, events[0].EventType())
	assert.Equal(t, EventTypeInvoicePaid, events[1].EventType())
	assert.Equal(t, PaidByPayment, events[1].(*InvoicePaidEvent).Reason)
}

func TestInvoice_ScenarioD_PaymentExceedsBalance(t *testing.T) {
	inv := scenarioA(t)
	require.NoError(t, inv.Send())
	require.NoError(t, inv.ApplyPayment(money("100.00")))

	err := inv.ApplyPayment(money("300.00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentExceedsBalance)
	assert.Equal(t, shared.KindBalanceViolation, shared.KindOf(err))
	assert.Equal(t, "175.00", inv.BalanceDue.String())
	assert.Equal(t, InvoiceStatusSent, inv.Status)
}

func TestInvoice_ApplyPayment_NonPositive(t *testing.T) {
	inv := scenarioA(t)
	require.NoError(t, inv.Send())

	for _, amount := range []string{"0", "-10.00", "0.001"} {
		err := inv.ApplyPayment(money(amount))
		assert.ErrorIs(t, err, ErrNonPositivePayment, "amount %s", amount)
		assert.Equal(t, shared.KindBalanceViolation, shared.KindOf(err))
	}
	assert.Equal(t, "275.00", inv.BalanceDue.String())
}

func TestInvoice_ApplyPayment_WrongStatus(t *testing.T) {
	build := map[InvoiceStatus]func(t *testing.T) *Invoice{
		InvoiceStatusDraft: scenarioA,
		InvoiceStatusPaid: func(t *testing.T) *Invoice {
			inv := scenarioA(t)
			require.NoError(t, inv.Send())
			require.NoError(t, inv.MarkAsPaid())
			return inv
		},
		InvoiceStatusCancelled: func(t *testing.T) *Invoice {
			inv := scenarioA(t)
			require.NoError(t, inv.Cancel())
			return inv
		},
	}

	for status, fn := range build {
		t.Run(string(status), func(t *testing.T) {
			inv := fn(t)
			err := inv.ApplyPayment(money("10.00"))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvoiceNotPayable)
			assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))
			assert.Contains(t, err.Error(), string(status))
			assert.Equal(t, status, inv.Status)
			assert.True(t, inv.BalanceDue.IsZero())
		})
	}
}

func TestInvoice_ApplyPayment_Overdue(t *testing.T) {
	inv := scenarioA(t)
	require.NoError(t, inv.Send())
	require.NoError(t, inv.MarkOverdue(inv.DueDate.AddDate(0, 0, 1)))

	require.NoError(t, inv.ApplyPayment(money("75.00")))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	assert.Equal(t, "200.00", inv.BalanceDue.String())

	require.NoError(t, inv.ApplyPayment(money("200.00")))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
}

func TestInvoice_MarkAsPaid(t *testing.T) {
	t.Run("from sent", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.ApplyPayment(money("10.00")))

		require.NoError(t, inv.MarkAsPaid())
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.True(t, inv.BalanceDue.IsZero())
		assert.Equal(t, "275.00", inv.PaidAmount().String())
	})

	t.Run("from overdue", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.MarkOverdue(inv.DueDate.AddDate(0, 0, 1)))
		require.NoError(t, inv.MarkAsPaid())
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
	})

	t.Run("rejected from draft", func(t *testing.T) {
		inv := scenarioA(t)
		assert.ErrorIs(t, inv.MarkAsPaid(), ErrInvoiceNotPayable)
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
	})

	t.Run("rejected when already paid", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.MarkAsPaid())
		assert.ErrorIs(t, inv.MarkAsPaid(), ErrInvoiceNotPayable)
	})
}

// ==================== Cancel ====================

func TestInvoice_ScenarioE_CancelSentWithBalance(t *testing.T) {
	inv := scenarioA(t)
	require.NoError(t, inv.Send())
	require.NoError(t, inv.ApplyPayment(money("100.00")))
	inv.ClearDomainEvents()

	require.NoError(t, inv.Cancel())

	assert.Equal(t, InvoiceStatusCancelled, inv.Status)
	assert.Equal(t, "0.00", inv.BalanceDue.String())
	assert.NotNil(t, inv.CancelledAt)
	require.Len(t, inv.GetDomainEvents(), 1)
	evt := inv.GetDomainEvents()[0].(*InvoiceCancelledEvent)
	assert.Equal(t, InvoiceStatusSent, evt.PreviousStatus)
	assert.Equal(t, "175.00", evt.ForgivenAmount.StringFixed(2))
}

func TestInvoice_Cancel(t *testing.T) {
	t.Run("draft", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Cancel())
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
	})

	t.Run("overdue cannot be cancelled", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.MarkOverdue(inv.DueDate.AddDate(0, 0, 1)))
		err := inv.Cancel()
		assert.ErrorIs(t, err, ErrInvoiceNotCancellable)
		assert.Equal(t, InvoiceStatusOverdue, inv.Status)
		assert.Equal(t, "275.00", inv.BalanceDue.String())
	})

	t.Run("paid cannot be cancelled", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.MarkAsPaid())
		assert.ErrorIs(t, inv.Cancel(), ErrInvoiceNotCancellable)
	})

	t.Run("cancelled cannot be cancelled again", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Cancel())
		assert.ErrorIs(t, inv.Cancel(), ErrInvoiceNotCancellable)
	})
}

// ==================== Overdue ====================

func TestInvoice_MarkOverdue(t *testing.T) {
	t.Run("sent and past due", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.ApplyPayment(money("25.00")))
		before := *inv

		require.NoError(t, inv.MarkOverdue(inv.DueDate.AddDate(0, 0, 1)))

		assert.Equal(t, InvoiceStatusOverdue, inv.Status)
		assert.True(t, inv.BalanceDue.Equals(before.BalanceDue))
		assert.True(t, inv.TotalAmount.Equals(before.TotalAmount))
		assert.Len(t, inv.LineItems, 2)
	})

	t.Run("on the due date itself", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Send())
		err := inv.MarkOverdue(inv.DueDate.Add(23 * time.Hour))
		assert.ErrorIs(t, err, ErrInvoiceNotOverdueEligible)
		assert.Equal(t, InvoiceStatusSent, inv.Status)
	})

	t.Run("draft is not eligible", func(t *testing.T) {
		inv := scenarioA(t)
		err := inv.MarkOverdue(inv.DueDate.AddDate(1, 0, 0))
		assert.ErrorIs(t, err, ErrInvoiceNotOverdueEligible)
	})

	t.Run("already overdue is not eligible", func(t *testing.T) {
		inv := scenarioA(t)
		require.NoError(t, inv.Send())
		asOf := inv.DueDate.AddDate(0, 0, 2)
		require.NoError(t, inv.MarkOverdue(asOf))
		assert.ErrorIs(t, inv.MarkOverdue(asOf), ErrInvoiceNotOverdueEligible)
	})
}

// ==================== Delete ====================

func TestInvoice_CanDelete(t *testing.T) {
	inv := scenarioA(t)
	assert.NoError(t, inv.CanDelete())

	require.NoError(t, inv.Send())
	err := inv.CanDelete()
	assert.ErrorIs(t, err, ErrInvoiceNotDraft)
}

// ==================== Properties ====================

// TestInvoice_RandomOperationsPreserveInvariants drives random operation sequences and
// checks the totals and balance invariants plus forward-only transitions after each step.
func TestInvoice_RandomOperationsPreserveInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		inv := newTestInvoice(t)
		for step := 0; step < 25; step++ {
			previous := inv.Status
			price := valueobject.NewMoney(decimal.New(rng.Int63n(100000), -3))
			quantity := decimal.New(rng.Int63n(500)+1, -1)

			switch rng.Intn(8) {
			case 0, 1:
				_, _ = inv.AddLineItem("item", quantity, price)
			case 2:
				if n := len(inv.LineItems); n > 0 {
					_ = inv.RemoveLineItem(inv.LineItems[rng.Intn(n)].ID)
				}
			case 3:
				if n := len(inv.LineItems); n > 0 {
					_ = inv.UpdateLineItem(inv.LineItems[rng.Intn(n)].ID, "changed", quantity, price)
				}
			case 4:
				_ = inv.Send()
			case 5:
				amount := valueobject.NewMoney(inv.BalanceDue.Amount().Mul(decimal.New(rng.Int63n(120), -2)))
				_ = inv.ApplyPayment(amount)
			case 6:
				_ = inv.MarkOverdue(inv.DueDate.AddDate(0, 0, 1))
			case 7:
				if rng.Intn(4) == 0 {
					_ = inv.Cancel()
				} else if rng.Intn(4) == 0 {
					_ = inv.MarkAsPaid()
				}
			}

			assertTotalsInvariant(t, inv)
			if inv.Status != previous {
				assert.True(t, previous.CanTransitionTo(inv.Status), "illegal transition %s -> %s", previous, inv.Status)
			}
		}
	}
}
