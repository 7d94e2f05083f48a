package partner

import "github.com/invoicing/backend/internal/domain/shared"

var (
	ErrInvalidCustomerName = shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name is invalid")
	ErrInvalidEmail        = shared.NewDomainError("INVALID_EMAIL", "Email is invalid")
	ErrInvalidPhone        = shared.NewDomainError("INVALID_PHONE", "Phone number is invalid")
	ErrInvalidAddress      = shared.NewDomainError("INVALID_ADDRESS", "Address is invalid")

	ErrCustomerNotFound    = shared.NewNotFoundError("CUSTOMER_NOT_FOUND", "Customer not found")
	ErrEmailAlreadyExists  = shared.NewDomainErrorWithKind(shared.KindConflict, "EMAIL_ALREADY_EXISTS", "A customer with this email already exists")
	ErrCustomerHasInvoices = shared.NewStateConflictError("CUSTOMER_HAS_INVOICES", "Cannot delete a customer that has invoices")
)
