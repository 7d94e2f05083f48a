package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultDueDays is the payment term applied when a create request has no due date
const DefaultDueDays = 30

// CustomerChecker answers whether an invoice may reference a customer
type CustomerChecker interface {
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// ServiceConfig holds the tunables shared by the invoicing services
type ServiceConfig struct {
	DefaultDueDays  int
	ConflictRetries int
}

// DefaultServiceConfig returns the defaults used when no configuration is supplied
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		DefaultDueDays:  DefaultDueDays,
		ConflictRetries: DefaultConflictRetries,
	}
}

// InvoiceService handles the invoice commands and queries. Every command loads the
// aggregate, makes one domain call and saves; the business rules live in the aggregate.
type InvoiceService struct {
	invoiceRepo    invoicing.InvoiceRepository
	customers      CustomerChecker
	numbers        *NumberGenerator
	eventPublisher shared.EventPublisher
	config         ServiceConfig
	logger         *zap.Logger
	now            func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo invoicing.InvoiceRepository,
	customers CustomerChecker,
	numbers *NumberGenerator,
	config ServiceConfig,
	logger *zap.Logger,
) *InvoiceService {
	if config.DefaultDueDays <= 0 {
		config.DefaultDueDays = DefaultDueDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		customers:   customers,
		numbers:     numbers,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// SetEventPublisher sets the publisher that receives events after each committed change
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a draft invoice, optionally with initial line items
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	exists, err := s.customers.ExistsByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.NewNotFoundError(partner.ErrCustomerNotFound.Code,
			fmt.Sprintf("Customer not found: %s", req.CustomerID))
	}

	issueDate := invoicing.DateOf(s.now())
	if req.IssueDate != "" {
		if issueDate, err = parseDate(req.IssueDate, invoicing.ErrInvalidDateRange.Code, "issue_date"); err != nil {
			return nil, err
		}
	}
	dueDate := issueDate.AddDate(0, 0, s.config.DefaultDueDays)
	if req.DueDate != "" {
		if dueDate, err = parseDate(req.DueDate, invoicing.ErrInvalidDateRange.Code, "due_date"); err != nil {
			return nil, err
		}
	}

	number := strings.TrimSpace(req.InvoiceNumber)
	generated := number == ""
	if !generated {
		taken, err := s.invoiceRepo.ExistsByInvoiceNumber(ctx, number)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, invoicing.ErrInvoiceNumberExists
		}
	}

	// A generated number can lose a race with a concurrent create; ask for the next one.
	attempts := 1
	if generated {
		attempts = retriesOrDefault(s.config.ConflictRetries)
	}

	var invoice *invoicing.Invoice
	for i := 0; i < attempts; i++ {
		if generated {
			if number, err = s.numbers.Next(ctx, issueDate); err != nil {
				return nil, err
			}
		}

		invoice, err = invoicing.NewInvoice(req.CustomerID, number, issueDate, dueDate)
		if err != nil {
			return nil, err
		}
		for _, item := range req.LineItems {
			if err := addLineItem(invoice, item); err != nil {
				return nil, err
			}
		}

		err = s.invoiceRepo.Save(ctx, invoice)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, err
		}
		if !generated {
			return nil, invoicing.ErrInvoiceNumberExists
		}
		s.logger.Debug("generated invoice number taken, retrying", zap.String("invoice_number", number))
	}
	if err != nil {
		return nil, invoicing.ErrInvoiceNumberExists
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("customer_id", invoice.CustomerID.String()),
	)
	publishEvents(ctx, s.eventPublisher, invoice)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// GetByID retrieves an invoice with its line items
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// GetByNumber retrieves an invoice by its number
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByInvoiceNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// List retrieves invoices with filtering and pagination
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceListResponse, int64, error) {
	domainFilter, err := toDomainFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToInvoiceListResponses(invoices), total, nil
}

// GetBalance returns the total, paid amount and balance due of an invoice
func (s *InvoiceService) GetBalance(ctx context.Context, id uuid.UUID) (*BalanceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToBalanceResponse(invoice)
	return &response, nil
}

// UpdateDates replaces the issue and due dates of a draft invoice
func (s *InvoiceService) UpdateDates(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	issueDate, err := parseDate(req.IssueDate, invoicing.ErrInvalidDateRange.Code, "issue_date")
	if err != nil {
		return nil, err
	}
	dueDate, err := parseDate(req.DueDate, invoicing.ErrInvalidDateRange.Code, "due_date")
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(invoice *invoicing.Invoice) error {
		return invoice.UpdateDates(issueDate, dueDate)
	})
}

// Delete removes a draft invoice. The delete is pinned to the version that was
// checked, so an invoice sent in the meantime survives.
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	var invoice *invoicing.Invoice
	err := retryOnConflict(ctx, s.config.ConflictRetries, func() error {
		loaded, err := s.invoiceRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := loaded.CanDelete(); err != nil {
			return err
		}
		if err := s.invoiceRepo.Delete(ctx, id, loaded.Version); err != nil {
			return err
		}
		invoice = loaded
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("invoice deleted",
		zap.String("invoice_id", id.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
	)
	return nil
}

// AddLineItem adds a line item to a draft invoice
func (s *InvoiceService) AddLineItem(ctx context.Context, id uuid.UUID, req LineItemRequest) (*InvoiceResponse, error) {
	return s.mutate(ctx, id, func(invoice *invoicing.Invoice) error {
		return addLineItem(invoice, req)
	})
}

// UpdateLineItem replaces a line item of a draft invoice
func (s *InvoiceService) UpdateLineItem(ctx context.Context, id, itemID uuid.UUID, req LineItemRequest) (*InvoiceResponse, error) {
	quantity, unitPrice, err := lineItemValues(req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(invoice *invoicing.Invoice) error {
		return invoice.UpdateLineItem(itemID, req.Description, quantity, unitPrice)
	})
}

// RemoveLineItem removes a line item from a draft invoice
func (s *InvoiceService) RemoveLineItem(ctx context.Context, id, itemID uuid.UUID) (*InvoiceResponse, error) {
	return s.mutate(ctx, id, func(invoice *invoicing.Invoice) error {
		return invoice.RemoveLineItem(itemID)
	})
}

// Send moves a draft invoice to SENT
func (s *InvoiceService) Send(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	return s.mutate(ctx, id, func(invoice *invoicing.Invoice) error {
		return invoice.Send()
	})
}

// MarkAsPaid settles a SENT or OVERDUE invoice without a payment record
func (s *InvoiceService) MarkAsPaid(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	return s.mutate(ctx, id, func(invoice *invoicing.Invoice) error {
		return invoice.MarkAsPaid()
	})
}

// Cancel cancels a DRAFT or SENT invoice
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	return s.mutate(ctx, id, func(invoice *invoicing.Invoice) error {
		return invoice.Cancel()
	})
}

// mutate runs load, change and save, repeating the cycle when a concurrent writer won
func (s *InvoiceService) mutate(ctx context.Context, id uuid.UUID, change func(*invoicing.Invoice) error) (*InvoiceResponse, error) {
	var invoice *invoicing.Invoice
	attempt := 0
	err := retryOnConflict(ctx, s.config.ConflictRetries, func() error {
		attempt++
		if attempt > 1 {
			s.logger.Debug("concurrent invoice update, retrying",
				zap.String("invoice_id", id.String()),
				zap.Int("attempt", attempt),
			)
		}

		loaded, err := s.invoiceRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := change(loaded); err != nil {
			return err
		}
		if err := s.invoiceRepo.Save(ctx, loaded); err != nil {
			return err
		}
		invoice = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishEvents(ctx, s.eventPublisher, invoice)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

func addLineItem(invoice *invoicing.Invoice, req LineItemRequest) error {
	quantity, unitPrice, err := lineItemValues(req)
	if err != nil {
		return err
	}
	_, err = invoice.AddLineItem(req.Description, quantity, unitPrice)
	return err
}

func lineItemValues(req LineItemRequest) (decimal.Decimal, valueobject.Money, error) {
	if req.Quantity == nil {
		return decimal.Zero, valueobject.Money{}, shared.NewDomainError(invoicing.ErrInvalidLineItem.Code, "Line item quantity is required")
	}
	unitPrice, err := valueobject.NewMoneyFromPtr(req.UnitPrice)
	if err != nil {
		return decimal.Zero, valueobject.Money{}, err
	}
	return *req.Quantity, unitPrice, nil
}

func toDomainFilter(filter InvoiceListFilter) (invoicing.InvoiceFilter, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "issue_date"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := invoicing.InvoiceFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		},
		CustomerID: filter.CustomerID,
	}

	if filter.Status != "" {
		status := invoicing.InvoiceStatus(strings.ToUpper(filter.Status))
		if !status.IsValid() {
			return domainFilter, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown invoice status: %s", filter.Status))
		}
		domainFilter.Status = &status
	}
	if filter.FromDate != "" {
		from, err := parseDate(filter.FromDate, invoicing.ErrInvalidDateRange.Code, "from_date")
		if err != nil {
			return domainFilter, err
		}
		domainFilter.FromDate = &from
	}
	if filter.ToDate != "" {
		to, err := parseDate(filter.ToDate, invoicing.ErrInvalidDateRange.Code, "to_date")
		if err != nil {
			return domainFilter, err
		}
		domainFilter.ToDate = &to
	}
	if domainFilter.FromDate != nil && domainFilter.ToDate != nil && domainFilter.ToDate.Before(*domainFilter.FromDate) {
		return domainFilter, shared.NewDomainError(invoicing.ErrInvalidDateRange.Code, "to_date cannot be before from_date")
	}

	return domainFilter, nil
}

func parseDate(value, code, field string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, shared.NewDomainError(code, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field))
	}
	return t, nil
}

func retriesOrDefault(n int) int {
	if n < 1 {
		return DefaultConflictRetries
	}
	return n
}
