package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics recorder is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// InvoiceMetrics records invoicing business metrics. It is fed by the
// invoicing event handlers, so every counter moves only after the aggregate
// that raised the event has been persisted.
type InvoiceMetrics struct {
	created   *Counter
	sent      *Counter
	paid      *Counter
	cancelled *Counter
	overdue   *Counter
	payments  *Counter

	invoicedAmount *Histogram
	paymentAmount  *Histogram
	forgivenAmount *AmountCounter
	overdueAmount  *AmountCounter
}

// NewInvoiceMetrics registers the invoicing instruments on meter.
func NewInvoiceMetrics(meter metric.Meter) (*InvoiceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &InvoiceMetrics{}
	counters := []struct {
		target     **Counter
		name, desc string
		unit       string
	}{
		{&m.created, "invoicing_invoice_created_total", "Invoices created", "{invoices}"},
		{&m.sent, "invoicing_invoice_sent_total", "Invoices sent to customers", "{invoices}"},
		{&m.paid, "invoicing_invoice_paid_total", "Invoices settled, by how they were settled", "{invoices}"},
		{&m.cancelled, "invoicing_invoice_cancelled_total", "Invoices cancelled, by prior status", "{invoices}"},
		{&m.overdue, "invoicing_invoice_overdue_total", "Invoices moved to overdue", "{invoices}"},
		{&m.payments, "invoicing_payment_total", "Payments recorded, by method", "{payments}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	if m.invoicedAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "invoicing_invoice_sent_amount",
		Description: "Total amount of invoices at the moment they are sent",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "invoicing_payment_amount",
		Description: "Amount of individual payments",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.forgivenAmount, err = NewAmountCounter(meter,
		"invoicing_cancelled_balance_total",
		"Outstanding balance written off by cancellation",
		"{currency}",
	); err != nil {
		return nil, err
	}
	if m.overdueAmount, err = NewAmountCounter(meter,
		"invoicing_overdue_balance_total",
		"Balance due on invoices when they became overdue",
		"{currency}",
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordInvoiceCreated counts a new draft.
func (m *InvoiceMetrics) RecordInvoiceCreated(ctx context.Context) {
	m.created.Inc(ctx)
}

// RecordInvoiceSent counts a sent invoice and its total.
func (m *InvoiceMetrics) RecordInvoiceSent(ctx context.Context, total decimal.Decimal) {
	m.sent.Inc(ctx)
	m.invoicedAmount.Record(ctx, total.InexactFloat64())
}

// RecordInvoicePaid counts a settled invoice.
func (m *InvoiceMetrics) RecordInvoicePaid(ctx context.Context, reason string) {
	m.paid.Inc(ctx, AttrPaidReason.String(reason))
}

// RecordInvoiceCancelled counts a cancellation and the balance it forgave.
func (m *InvoiceMetrics) RecordInvoiceCancelled(ctx context.Context, previousStatus string, forgiven decimal.Decimal) {
	attr := AttrPreviousStatus.String(previousStatus)
	m.cancelled.Inc(ctx, attr)
	m.forgivenAmount.Add(ctx, forgiven.InexactFloat64(), attr)
}

// RecordInvoiceOverdue counts an invoice that passed its due date unpaid.
func (m *InvoiceMetrics) RecordInvoiceOverdue(ctx context.Context, balance decimal.Decimal) {
	m.overdue.Inc(ctx)
	m.overdueAmount.Add(ctx, balance.InexactFloat64())
}

// RecordPayment counts a payment and its amount.
func (m *InvoiceMetrics) RecordPayment(ctx context.Context, method string, amount decimal.Decimal) {
	attr := AttrPaymentMethod.String(method)
	m.payments.Inc(ctx, attr)
	m.paymentAmount.Record(ctx, amount.InexactFloat64(), attr)
}
