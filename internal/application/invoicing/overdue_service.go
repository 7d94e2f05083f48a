package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OverdueService flags SENT invoices whose due date has passed.
// It is the only caller of Invoice.MarkOverdue and runs from the daily scheduler
// and from the operator CLI.
type OverdueService struct {
	invoiceRepo    invoicing.InvoiceRepository
	eventPublisher shared.EventPublisher
	retries        int
	logger         *zap.Logger
	now            func() time.Time
}

// NewOverdueService creates a new OverdueService
func NewOverdueService(invoiceRepo invoicing.InvoiceRepository, config ServiceConfig, logger *zap.Logger) *OverdueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueService{
		invoiceRepo: invoiceRepo,
		retries:     config.ConflictRetries,
		logger:      logger,
		now:         time.Now,
	}
}

// SetEventPublisher sets the publisher that receives InvoiceOverdue events
func (s *OverdueService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Run marks everything overdue as of now. It matches the scheduler job signature.
func (s *OverdueService) Run(ctx context.Context) error {
	_, err := s.MarkOverdue(ctx, s.now())
	return err
}

// MarkOverdue moves every SENT invoice with a due date before the calendar date of
// asOf to OVERDUE and returns how many were changed. Each invoice is saved on its own;
// an invoice paid or cancelled concurrently is skipped, other failures are collected
// and the sweep continues.
func (s *OverdueService) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "mark_overdue",
		telemetry.SpanAttrAsOf, invoicing.DateOf(asOf).Format(DateLayout),
	)
	defer span.End()

	candidates, err := s.invoiceRepo.FindOverdueCandidates(ctx, invoicing.DateOf(asOf))
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("find overdue candidates: %w", err)
	}

	marked := 0
	var errs []error
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		ok, err := s.markOne(ctx, &candidates[i], asOf)
		if err != nil {
			s.logger.Error("failed to mark invoice overdue",
				zap.String("invoice_id", candidates[i].ID.String()),
				zap.String("invoice_number", candidates[i].InvoiceNumber),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		if ok {
			marked++
		}
	}

	telemetry.SetAttributes(span, "candidates", len(candidates), "marked", marked, "failed", len(errs))
	s.logger.Info("overdue sweep finished",
		zap.String("as_of", invoicing.DateOf(asOf).Format(DateLayout)),
		zap.Int("candidates", len(candidates)),
		zap.Int("marked", marked),
		zap.Int("failed", len(errs)),
	)

	err = errors.Join(errs...)
	telemetry.RecordError(span, err)
	return marked, err
}

// markOne marks a single invoice, reloading it after a version conflict.
// It reports false when the invoice is no longer eligible.
func (s *OverdueService) markOne(ctx context.Context, candidate *invoicing.Invoice, asOf time.Time) (bool, error) {
	invoice := candidate
	id := candidate.ID
	first := true

	err := retryOnConflict(ctx, s.retries, func() error {
		if !first {
			reloaded, err := s.invoiceRepo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			invoice = reloaded
		}
		first = false

		if err := invoice.MarkOverdue(asOf); err != nil {
			return err
		}
		return s.invoiceRepo.Save(ctx, invoice)
	})

	switch {
	case err == nil:
		publishEvents(ctx, s.eventPublisher, invoice)
		return true, nil
	case errors.Is(err, invoicing.ErrInvoiceNotOverdueEligible):
		s.logger.Debug("invoice no longer eligible for overdue", zap.String("invoice_id", id.String()))
		return false, nil
	case errors.Is(err, shared.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("invoice %s: %w", id, err)
	}
}
