package invoicing

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MaxLineItemDescriptionLength is the longest description a line item may carry
const MaxLineItemDescriptionLength = 500

// QuantityScale is the number of fractional digits a quantity may carry
const QuantityScale int32 = 4

// MaxQuantity is the largest quantity a NUMERIC(12,4) column holds
var MaxQuantity = decimal.RequireFromString("99999999.9999")

// LineItem is one billable quantity x unit price entry.
// It is owned by exactly one Invoice and holds no reference back to it.
type LineItem struct {
	ID          uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   valueobject.Money
	LineTotal   valueobject.Money // UnitPrice * Quantity, rounded
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// newLineItem is only reachable through Invoice.AddLineItem
func newLineItem(description string, quantity decimal.Decimal, unitPrice valueobject.Money) (*LineItem, error) {
	if err := validateLineItem(description, quantity, unitPrice); err != nil {
		return nil, err
	}

	now := time.Now()
	return &LineItem{
		ID:          uuid.New(),
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Multiply(quantity),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// RestoreLineItem rebuilds a persisted line item. The line total is recomputed
// rather than trusted, so a loaded invoice always satisfies its invariants.
func RestoreLineItem(id uuid.UUID, description string, quantity decimal.Decimal, unitPrice valueobject.Money, createdAt, updatedAt time.Time) LineItem {
	return LineItem{
		ID:          id,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Multiply(quantity),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

func (i *LineItem) update(description string, quantity decimal.Decimal, unitPrice valueobject.Money) error {
	if err := validateLineItem(description, quantity, unitPrice); err != nil {
		return err
	}

	i.Description = description
	i.Quantity = quantity
	i.UnitPrice = unitPrice
	i.LineTotal = unitPrice.Multiply(quantity)
	i.UpdatedAt = time.Now()
	return nil
}

func validateLineItem(description string, quantity decimal.Decimal, unitPrice valueobject.Money) error {
	if strings.TrimSpace(description) == "" {
		return shared.NewDomainError(ErrInvalidLineItem.Code, "Line item description cannot be empty")
	}
	if utf8.RuneCountInString(description) > MaxLineItemDescriptionLength {
		return shared.NewDomainError(ErrInvalidLineItem.Code, "Line item description cannot exceed 500 characters")
	}
	if !quantity.IsPositive() {
		return shared.NewDomainError(ErrInvalidLineItem.Code, "Line item quantity must be greater than zero")
	}
	if !quantity.Equal(quantity.Truncate(QuantityScale)) {
		return shared.NewDomainError(ErrInvalidLineItem.Code, "Line item quantity cannot have more than 4 decimal places")
	}
	if quantity.GreaterThan(MaxQuantity) {
		return shared.NewDomainError(ErrInvalidLineItem.Code, "Line item quantity is too large")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError(ErrInvalidLineItem.Code, "Line item unit price cannot be negative")
	}
	return nil
}
