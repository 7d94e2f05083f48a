package partner

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoiceReferenceChecker reports whether invoices still point at a customer
type InvoiceReferenceChecker interface {
	ExistsByCustomerID(ctx context.Context, customerID uuid.UUID) (bool, error)
}

// CustomerService handles customer-related business operations
type CustomerService struct {
	customerRepo   partner.CustomerRepository
	invoices       InvoiceReferenceChecker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo partner.CustomerRepository, invoices InvoiceReferenceChecker, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{
		customerRepo: customerRepo,
		invoices:     invoices,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for customer events
func (s *CustomerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new customer
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	customer, err := partner.NewCustomer(req.Name, req.Email, req.Phone, req.Address)
	if err != nil {
		return nil, err
	}

	exists, err := s.customerRepo.ExistsByEmail(ctx, customer.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, partner.ErrEmailAlreadyExists
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, emailConflict(err)
	}

	s.logger.Info("customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("email", customer.Email),
	)
	s.publish(ctx, customer)

	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByID retrieves a customer by ID
func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	response := ToCustomerResponse(customer)
	return &response, nil
}

// ExistsByID reports whether a customer exists
func (s *CustomerService) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.customerRepo.ExistsByID(ctx, id)
}

// List retrieves a list of customers with search and pagination
func (s *CustomerService) List(ctx context.Context, filter CustomerListFilter) ([]CustomerResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}

	customers, err := s.customerRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.customerRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToCustomerResponses(customers), total, nil
}

// Update updates a customer
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, email, phone, address := customer.Name, customer.Email, customer.Phone, customer.Address
	if req.Name != nil {
		name = *req.Name
	}
	if req.Email != nil {
		email = *req.Email
	}
	if req.Phone != nil {
		phone = *req.Phone
	}
	if req.Address != nil {
		address = *req.Address
	}

	if normalized := partner.NormalizeEmail(email); normalized != customer.Email {
		exists, err := s.customerRepo.ExistsByEmail(ctx, normalized)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, partner.ErrEmailAlreadyExists
		}
	}

	if err := customer.Update(name, email, phone, address); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, emailConflict(err)
	}

	s.publish(ctx, customer)

	response := ToCustomerResponse(customer)
	return &response, nil
}

// Delete deletes a customer. Customers referenced by any invoice are kept.
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	referenced, err := s.invoices.ExistsByCustomerID(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return partner.ErrCustomerHasInvoices
	}

	if err := s.customerRepo.Delete(ctx, id); err != nil {
		return err
	}

	customer.MarkDeleted()
	s.logger.Info("customer deleted", zap.String("customer_id", id.String()))
	s.publish(ctx, customer)

	return nil
}

func (s *CustomerService) publish(ctx context.Context, customer *partner.Customer) {
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, customer.GetDomainEvents()...); err != nil {
			s.logger.Warn("failed to publish customer events",
				zap.String("customer_id", customer.ID.String()),
				zap.Error(err),
			)
		}
	}
	customer.ClearDomainEvents()
}

// emailConflict maps a unique-key violation on save to the email error;
// email is the only unique column besides the primary key
func emailConflict(err error) error {
	if errors.Is(err, shared.ErrAlreadyExists) {
		return partner.ErrEmailAlreadyExists
	}
	return err
}
