package invoicing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceMetricsRecorder receives business measurements derived from invoicing events
type InvoiceMetricsRecorder interface {
	RecordInvoiceCreated(ctx context.Context)
	RecordInvoiceSent(ctx context.Context, total decimal.Decimal)
	RecordInvoicePaid(ctx context.Context, reason string)
	RecordInvoiceCancelled(ctx context.Context, previousStatus string, forgiven decimal.Decimal)
	RecordInvoiceOverdue(ctx context.Context, balance decimal.Decimal)
	RecordPayment(ctx context.Context, method string, amount decimal.Decimal)
}

// InvoiceMetricsHandler turns invoicing events into metric updates
type InvoiceMetricsHandler struct {
	metrics InvoiceMetricsRecorder
	logger  *zap.Logger
}

// NewInvoiceMetricsHandler creates a new InvoiceMetricsHandler
func NewInvoiceMetricsHandler(metrics InvoiceMetricsRecorder, logger *zap.Logger) *InvoiceMetricsHandler {
	return &InvoiceMetricsHandler{
		metrics: metrics,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceMetricsHandler) EventTypes() []string {
	return []string{
		invoicing.EventTypeInvoiceCreated,
		invoicing.EventTypeInvoiceSent,
		invoicing.EventTypeInvoicePaid,
		invoicing.EventTypeInvoiceCancelled,
		invoicing.EventTypeInvoiceOverdue,
		invoicing.EventTypePaymentRecorded,
	}
}

// Handle records the metric matching the event
func (h *InvoiceMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *invoicing.InvoiceCreatedEvent:
		h.metrics.RecordInvoiceCreated(ctx)
	case *invoicing.InvoiceSentEvent:
		h.metrics.RecordInvoiceSent(ctx, e.TotalAmount)
	case *invoicing.InvoicePaidEvent:
		h.metrics.RecordInvoicePaid(ctx, string(e.Reason))
	case *invoicing.InvoiceCancelledEvent:
		h.metrics.RecordInvoiceCancelled(ctx, string(e.PreviousStatus), e.ForgivenAmount)
	case *invoicing.InvoiceOverdueEvent:
		h.metrics.RecordInvoiceOverdue(ctx, e.BalanceDue)
	case *invoicing.PaymentRecordedEvent:
		h.metrics.RecordPayment(ctx, string(e.Method), e.Amount)
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

// AuditLogHandler writes every domain event to the structured log
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns nil so the handler receives all events
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event envelope and its JSON payload
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	h.logger.Info("domain event",
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.ByteString("payload", payload),
	)
	return nil
}

var (
	_ shared.EventHandler = (*InvoiceMetricsHandler)(nil)
	_ shared.EventHandler = (*AuditLogHandler)(nil)
)
