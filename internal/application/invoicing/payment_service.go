package invoicing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrIdempotencyKeyInUse is returned while the first request with the same key is still running
var ErrIdempotencyKeyInUse = shared.NewDomainErrorWithKind(shared.KindConflict,
	"IDEMPOTENCY_KEY_IN_USE", "A request with this idempotency key is already being processed")

// PaymentService records payments against invoices.
// The Payment row and the reduced invoice balance are written in one transaction.
type PaymentService struct {
	txScope        TransactionScope
	invoiceRepo    invoicing.InvoiceRepository
	paymentRepo    invoicing.PaymentRepository
	idempotency    shared.IdempotencyStore
	idemConfig     shared.IdempotencyConfig
	eventPublisher shared.EventPublisher
	retries        int
	logger         *zap.Logger
	now            func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	txScope TransactionScope,
	invoiceRepo invoicing.InvoiceRepository,
	paymentRepo invoicing.PaymentRepository,
	config ServiceConfig,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		txScope:     txScope,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		idemConfig:  shared.DefaultIdempotencyConfig(),
		retries:     config.ConflictRetries,
		logger:      logger,
		now:         time.Now,
	}
}

// SetEventPublisher sets the publisher that receives events after each committed payment
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables Idempotency-Key handling for RecordPayment
func (s *PaymentService) SetIdempotencyStore(store shared.IdempotencyStore, config shared.IdempotencyConfig) {
	s.idempotency = store
	s.idemConfig = config
}

// RecordPayment records a payment and applies it to the invoice balance.
// When idempotencyKey is set and a previous request with the same key succeeded,
// the original result is returned and nothing is applied again.
func (s *PaymentService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, req RecordPaymentRequest, idempotencyKey string) (*RecordPaymentResponse, error) {
	if idempotencyKey == "" || s.idempotency == nil || !s.idemConfig.Enabled {
		return s.recordPayment(ctx, invoiceID, req)
	}

	storeKey := fmt.Sprintf("payment:%s:%s", invoiceID, idempotencyKey)

	if replay, err := s.replay(ctx, storeKey); err != nil || replay != nil {
		return replay, err
	}

	reserved, err := s.idempotency.Reserve(ctx, storeKey, s.idemConfig.TTL)
	if err != nil {
		s.logger.Warn("idempotency store unavailable, recording without key",
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(err),
		)
		return s.recordPayment(ctx, invoiceID, req)
	}
	if !reserved {
		// Another request finished between lookup and reserve
		if replay, err := s.replay(ctx, storeKey); err != nil || replay != nil {
			return replay, err
		}
		return nil, ErrIdempotencyKeyInUse
	}

	response, err := s.recordPayment(ctx, invoiceID, req)
	if err != nil {
		if releaseErr := s.idempotency.Release(ctx, storeKey); releaseErr != nil {
			s.logger.Warn("failed to release idempotency key", zap.String("key", storeKey), zap.Error(releaseErr))
		}
		return nil, err
	}

	if encoded, encErr := json.Marshal(response); encErr == nil {
		if err := s.idempotency.Complete(ctx, storeKey, string(encoded), s.idemConfig.TTL); err != nil {
			s.logger.Warn("failed to store idempotent payment result", zap.String("key", storeKey), zap.Error(err))
		}
	}

	return response, nil
}

// replay returns the stored result for key, nil when the key is unknown, or
// ErrIdempotencyKeyInUse while the first request is still running
func (s *PaymentService) replay(ctx context.Context, key string) (*RecordPaymentResponse, error) {
	result, found, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		s.logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	if result == "" {
		return nil, ErrIdempotencyKeyInUse
	}

	var response RecordPaymentResponse
	if err := json.Unmarshal([]byte(result), &response); err != nil {
		return nil, fmt.Errorf("decode stored payment result: %w", err)
	}
	response.Replayed = true

	s.logger.Info("payment request replayed",
		zap.String("key", key),
		zap.String("payment_id", response.Payment.ID.String()),
	)
	return &response, nil
}

func (s *PaymentService) recordPayment(ctx context.Context, invoiceID uuid.UUID, req RecordPaymentRequest) (_ *RecordPaymentResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record",
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
		telemetry.SpanAttrPaymentMethod, req.Method,
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	amount, err := valueobject.NewMoneyFromPtr(req.Amount)
	if err != nil {
		return nil, err
	}
	paymentDate := invoicing.DateOf(s.now())
	if req.PaymentDate != "" {
		if paymentDate, err = parseDate(req.PaymentDate, invoicing.ErrInvalidPayment.Code, "payment_date"); err != nil {
			return nil, err
		}
	}

	var (
		payment *invoicing.Payment
		invoice *invoicing.Invoice
	)
	err = retryOnConflict(ctx, s.retries, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			loaded, err := repos.InvoiceRepo().FindByID(ctx, invoiceID)
			if err != nil {
				return err
			}
			// status and balance first, then the payment record itself
			if err := loaded.CanApplyPayment(amount); err != nil {
				return err
			}
			recorded, err := invoicing.NewPayment(loaded.ID, paymentDate, amount,
				invoicing.PaymentMethod(req.Method), req.ReferenceNumber)
			if err != nil {
				return err
			}
			if err := loaded.ApplyPayment(amount); err != nil {
				return err
			}
			if err := repos.PaymentRepo().Save(ctx, recorded); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().Save(ctx, loaded); err != nil {
				return err
			}
			payment, invoice = recorded, loaded
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.String("balance_due", invoice.BalanceDue.String()),
		zap.String("status", invoice.Status.String()),
	)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID.String(),
		telemetry.SpanAttrAmount, payment.Amount.String(),
		telemetry.SpanAttrInvoiceStatus, invoice.Status.String(),
	)
	publishEvents(ctx, s.eventPublisher, payment, invoice)

	return &RecordPaymentResponse{
		Payment:       ToPaymentResponse(payment),
		InvoiceID:     invoice.ID,
		InvoiceStatus: string(invoice.Status),
		BalanceDue:    invoice.BalanceDue,
	}, nil
}

// GetByID retrieves a payment
func (s *PaymentService) GetByID(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToPaymentResponse(payment)
	return &response, nil
}

// ListForInvoice returns the payments of an invoice, oldest first
func (s *PaymentService) ListForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	if _, err := s.invoiceRepo.FindByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return ToPaymentResponses(payments), nil
}
