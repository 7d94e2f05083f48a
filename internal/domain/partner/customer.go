package partner

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/invoicing/backend/internal/domain/shared"
)

const (
	MaxCustomerNameLength    = 200
	MaxCustomerEmailLength   = 200
	MaxCustomerPhoneLength   = 50
	MaxCustomerAddressLength = 500
)

var validPhone = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)

// Customer is the party an invoice is billed to.
// Invoices reference it by ID only.
type Customer struct {
	shared.BaseAggregateRoot
	Name    string
	Email   string // stored lowercased, unique
	Phone   string
	Address string
}

// NewCustomer creates a new customer with required fields
func NewCustomer(name, email, phone, address string) (*Customer, error) {
	c := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
	}
	if err := c.apply(name, email, phone, address); err != nil {
		return nil, err
	}

	c.AddDomainEvent(NewCustomerCreatedEvent(c))

	return c, nil
}

// Update replaces the customer's contact details
func (c *Customer) Update(name, email, phone, address string) error {
	if err := c.apply(name, email, phone, address); err != nil {
		return err
	}
	c.UpdatedAt = time.Now()

	c.AddDomainEvent(NewCustomerUpdatedEvent(c))

	return nil
}

// MarkDeleted records the deletion event. The caller has already checked that no
// invoice references the customer.
func (c *Customer) MarkDeleted() {
	c.AddDomainEvent(NewCustomerDeletedEvent(c))
}

func (c *Customer) apply(name, email, phone, address string) error {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	phone = strings.TrimSpace(phone)
	address = strings.TrimSpace(address)

	if err := validateCustomerName(name); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if phone != "" {
		if err := validatePhone(phone); err != nil {
			return err
		}
	}
	if utf8.RuneCountInString(address) > MaxCustomerAddressLength {
		return shared.NewDomainError(ErrInvalidAddress.Code, "Address cannot exceed 500 characters")
	}

	c.Name = name
	c.Email = email
	c.Phone = phone
	c.Address = address
	return nil
}

// NormalizeEmail trims and lowercases an email address for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCustomerName(name string) error {
	if name == "" {
		return shared.NewDomainError(ErrInvalidCustomerName.Code, "Customer name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxCustomerNameLength {
		return shared.NewDomainError(ErrInvalidCustomerName.Code, "Customer name cannot exceed 200 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError(ErrInvalidEmail.Code, "Email cannot be empty")
	}
	if len(email) > MaxCustomerEmailLength {
		return shared.NewDomainError(ErrInvalidEmail.Code, "Email cannot exceed 200 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return shared.NewDomainError(ErrInvalidEmail.Code, "Invalid email format")
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) > MaxCustomerPhoneLength {
		return shared.NewDomainError(ErrInvalidPhone.Code, "Phone number cannot exceed 50 characters")
	}
	if !validPhone.MatchString(phone) {
		return shared.NewDomainError(ErrInvalidPhone.Code, "Invalid phone number format")
	}
	return nil
}
