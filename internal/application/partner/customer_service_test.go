package partner

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByEmail(ctx context.Context, email string) (*partner.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Customer, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCustomerRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockInvoiceReferenceChecker struct {
	mock.Mock
}

func (m *MockInvoiceReferenceChecker) ExistsByCustomerID(ctx context.Context, customerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, customerID)
	return args.Bool(0), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

var _ partner.CustomerRepository = (*MockCustomerRepository)(nil)

// =============================================================================
// Test Helpers
// =============================================================================

type customerFixture struct {
	service   *CustomerService
	repo      *MockCustomerRepository
	invoices  *MockInvoiceReferenceChecker
	publisher *MockEventPublisher
}

func newCustomerFixture() *customerFixture {
	repo := new(MockCustomerRepository)
	invoices := new(MockInvoiceReferenceChecker)
	publisher := new(MockEventPublisher)
	service := NewCustomerService(repo, invoices, nil)
	service.SetEventPublisher(publisher)
	return &customerFixture{service: service, repo: repo, invoices: invoices, publisher: publisher}
}

func existingCustomer(t *testing.T) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer("Acme Corp", "billing@acme.example", "+1 555 0100", "1 Main St")
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func strPtr(s string) *string {
	return &s
}

// =============================================================================
// Create
// =============================================================================

func TestCustomerService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with normalized email", func(t *testing.T) {
		f := newCustomerFixture()
		f.repo.On("ExistsByEmail", ctx, "billing@acme.example").Return(false, nil)
		f.repo.On("Save", ctx, mock.AnythingOfType("*partner.Customer")).Return(nil)
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := f.service.Create(ctx, CreateCustomerRequest{
			Name:  "  Acme Corp ",
			Email: " Billing@ACME.example",
		})

		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", resp.Name)
		assert.Equal(t, "billing@acme.example", resp.Email)
		assert.NotEqual(t, uuid.Nil, resp.ID)

		events := f.publisher.Calls[0].Arguments.Get(1).([]shared.DomainEvent)
		require.Len(t, events, 1)
		assert.Equal(t, partner.EventTypeCustomerCreated, events[0].EventType())
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newCustomerFixture()
		f.repo.On("ExistsByEmail", ctx, "billing@acme.example").Return(true, nil)

		_, err := f.service.Create(ctx, CreateCustomerRequest{Name: "Acme", Email: "billing@acme.example"})

		assert.ErrorIs(t, err, partner.ErrEmailAlreadyExists)
		assert.Equal(t, shared.KindConflict, shared.KindOf(err))
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("lost race on unique email", func(t *testing.T) {
		f := newCustomerFixture()
		f.repo.On("ExistsByEmail", ctx, mock.Anything).Return(false, nil)
		f.repo.On("Save", ctx, mock.Anything).Return(shared.ErrAlreadyExists)

		_, err := f.service.Create(ctx, CreateCustomerRequest{Name: "Acme", Email: "billing@acme.example"})

		assert.ErrorIs(t, err, partner.ErrEmailAlreadyExists)
	})

	t.Run("invalid email is rejected before any lookup", func(t *testing.T) {
		f := newCustomerFixture()

		_, err := f.service.Create(ctx, CreateCustomerRequest{Name: "Acme", Email: "not-an-email"})

		assert.ErrorIs(t, err, partner.ErrInvalidEmail)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
		f.repo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newCustomerFixture()
		f.repo.On("ExistsByEmail", ctx, mock.Anything).Return(false, errors.New("db down"))

		_, err := f.service.Create(ctx, CreateCustomerRequest{Name: "Acme", Email: "billing@acme.example"})

		assert.EqualError(t, err, "db down")
	})
}

// =============================================================================
// Read
// =============================================================================

func TestCustomerService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		f := newCustomerFixture()
		c := existingCustomer(t)
		f.repo.On("FindByID", ctx, c.ID).Return(c, nil)

		resp, err := f.service.GetByID(ctx, c.ID)

		require.NoError(t, err)
		assert.Equal(t, c.ID, resp.ID)
		assert.Equal(t, "+1 555 0100", resp.Phone)
	})

	t.Run("not found", func(t *testing.T) {
		f := newCustomerFixture()
		id := uuid.New()
		f.repo.On("FindByID", ctx, id).Return(nil, partner.ErrCustomerNotFound)

		_, err := f.service.GetByID(ctx, id)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestCustomerService_List(t *testing.T) {
	ctx := context.Background()
	f := newCustomerFixture()
	c := existingCustomer(t)

	expected := shared.Filter{Page: 1, PageSize: 20, OrderBy: "name", OrderDir: "asc", Search: "acme"}
	f.repo.On("FindAll", ctx, expected).Return([]partner.Customer{*c}, nil)
	f.repo.On("Count", ctx, expected).Return(int64(1), nil)

	customers, total, err := f.service.List(ctx, CustomerListFilter{Search: "acme"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, customers, 1)
	assert.Equal(t, "Acme Corp", customers[0].Name)
}

// =============================================================================
// Update
// =============================================================================

func TestCustomerService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update keeps other fields", func(t *testing.T) {
		f := newCustomerFixture()
		c := existingCustomer(t)
		f.repo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.repo.On("Save", ctx, c).Return(nil)
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := f.service.Update(ctx, c.ID, UpdateCustomerRequest{Phone: strPtr("")})

		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", resp.Name)
		assert.Equal(t, "billing@acme.example", resp.Email)
		assert.Empty(t, resp.Phone)
		f.repo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
	})

	t.Run("email change to a taken address", func(t *testing.T) {
		f := newCustomerFixture()
		c := existingCustomer(t)
		f.repo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.repo.On("ExistsByEmail", ctx, "ap@other.example").Return(true, nil)

		_, err := f.service.Update(ctx, c.ID, UpdateCustomerRequest{Email: strPtr("AP@other.example")})

		assert.ErrorIs(t, err, partner.ErrEmailAlreadyExists)
		assert.Equal(t, "billing@acme.example", c.Email)
	})

	t.Run("invalid name leaves customer untouched", func(t *testing.T) {
		f := newCustomerFixture()
		c := existingCustomer(t)
		f.repo.On("FindByID", ctx, c.ID).Return(c, nil)

		_, err := f.service.Update(ctx, c.ID, UpdateCustomerRequest{Name: strPtr("   ")})

		assert.ErrorIs(t, err, partner.ErrInvalidCustomerName)
		assert.Equal(t, "Acme Corp", c.Name)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("version conflict is passed through", func(t *testing.T) {
		f := newCustomerFixture()
		c := existingCustomer(t)
		f.repo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.repo.On("Save", ctx, c).Return(shared.ErrConcurrencyConflict)

		_, err := f.service.Update(ctx, c.ID, UpdateCustomerRequest{Name: strPtr("Acme Inc")})

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

// =============================================================================
// Delete
// =============================================================================

func TestCustomerService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("unreferenced customer", func(t *testing.T) {
		f := newCustomerFixture()
		c := existingCustomer(t)
		f.repo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.invoices.On("ExistsByCustomerID", ctx, c.ID).Return(false, nil)
		f.repo.On("Delete", ctx, c.ID).Return(nil)
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.service.Delete(ctx, c.ID))

		events := f.publisher.Calls[0].Arguments.Get(1).([]shared.DomainEvent)
		require.Len(t, events, 1)
		assert.Equal(t, partner.EventTypeCustomerDeleted, events[0].EventType())
	})

	t.Run("customer with invoices", func(t *testing.T) {
		f := newCustomerFixture()
		c := existingCustomer(t)
		f.repo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.invoices.On("ExistsByCustomerID", ctx, c.ID).Return(true, nil)

		err := f.service.Delete(ctx, c.ID)

		assert.ErrorIs(t, err, partner.ErrCustomerHasInvoices)
		assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))
		f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("invoice created after the reference check", func(t *testing.T) {
		f := newCustomerFixture()
		c := existingCustomer(t)
		f.repo.On("FindByID", ctx, c.ID).Return(c, nil)
		f.invoices.On("ExistsByCustomerID", ctx, c.ID).Return(false, nil)
		f.repo.On("Delete", ctx, c.ID).Return(partner.ErrCustomerHasInvoices)

		err := f.service.Delete(ctx, c.ID)

		assert.ErrorIs(t, err, partner.ErrCustomerHasInvoices)
		assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newCustomerFixture()
		id := uuid.New()
		f.repo.On("FindByID", ctx, id).Return(nil, partner.ErrCustomerNotFound)

		err := f.service.Delete(ctx, id)

		assert.ErrorIs(t, err, partner.ErrCustomerNotFound)
		f.invoices.AssertNotCalled(t, "ExistsByCustomerID", mock.Anything, mock.Anything)
	})
}
