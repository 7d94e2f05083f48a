package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
// Money columns are numeric(12,2); the domain rounds before anything reaches them.
type InvoiceModel struct {
	AggregateModel
	CustomerID    uuid.UUID               `gorm:"type:uuid;not null;index"`
	InvoiceNumber string                  `gorm:"type:varchar(50);not null;uniqueIndex"`
	IssueDate     time.Time               `gorm:"type:date;not null;index"`
	DueDate       time.Time               `gorm:"type:date;not null"`
	Status        invoicing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Subtotal      decimal.Decimal         `gorm:"type:numeric(12,2);not null;default:0"`
	TaxAmount     decimal.Decimal         `gorm:"type:numeric(12,2);not null;default:0"`
	TotalAmount   decimal.Decimal         `gorm:"type:numeric(12,2);not null;default:0"`
	BalanceDue    decimal.Decimal         `gorm:"type:numeric(12,2);not null;default:0"`
	SentAt        *time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	LineItems     []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
// Line items are returned in position order.
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	items := make([]invoicing.LineItem, len(m.LineItems))
	for i := range m.LineItems {
		items[i] = m.LineItems[i].ToDomain()
	}
	return &invoicing.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CustomerID:        m.CustomerID,
		InvoiceNumber:     m.InvoiceNumber,
		IssueDate:         invoicing.DateOf(m.IssueDate),
		DueDate:           invoicing.DateOf(m.DueDate),
		Status:            m.Status,
		LineItems:         items,
		Subtotal:          valueobject.NewMoney(m.Subtotal),
		TaxAmount:         valueobject.NewMoney(m.TaxAmount),
		TotalAmount:       valueobject.NewMoney(m.TotalAmount),
		BalanceDue:        valueobject.NewMoney(m.BalanceDue),
		SentAt:            m.SentAt,
		PaidAt:            m.PaidAt,
		CancelledAt:       m.CancelledAt,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.CustomerID = inv.CustomerID
	m.InvoiceNumber = inv.InvoiceNumber
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.Status = inv.Status
	m.Subtotal = inv.Subtotal.Amount()
	m.TaxAmount = inv.TaxAmount.Amount()
	m.TotalAmount = inv.TotalAmount.Amount()
	m.BalanceDue = inv.BalanceDue.Amount()
	m.SentAt = inv.SentAt
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt

	m.LineItems = make([]InvoiceLineItemModel, len(inv.LineItems))
	for i := range inv.LineItems {
		m.LineItems[i] = InvoiceLineItemModelFromDomain(inv.ID, i, &inv.LineItems[i])
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceLineItemModel is the persistence model for a line item.
// Position keeps the insertion order of the owning invoice.
type InvoiceLineItemModel struct {
	BaseModel
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null;default:0"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain LineItem
func (m *InvoiceLineItemModel) ToDomain() invoicing.LineItem {
	return invoicing.RestoreLineItem(m.ID, m.Description, m.Quantity, valueobject.NewMoney(m.UnitPrice), m.CreatedAt, m.UpdatedAt)
}

// InvoiceLineItemModelFromDomain creates a persistence model for the item at position
func InvoiceLineItemModelFromDomain(invoiceID uuid.UUID, position int, item *invoicing.LineItem) InvoiceLineItemModel {
	return InvoiceLineItemModel{
		BaseModel: BaseModel{
			ID:        item.ID,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		},
		InvoiceID:   invoiceID,
		Position:    position,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice.Amount(),
		LineTotal:   item.LineTotal.Amount(),
	}
}

// PaymentModel is the persistence model for a Payment. Rows are insert-only.
type PaymentModel struct {
	AggregateModel
	InvoiceID       uuid.UUID               `gorm:"type:uuid;not null;index"`
	PaymentDate     time.Time               `gorm:"type:date;not null"`
	Amount          decimal.Decimal         `gorm:"type:numeric(12,2);not null"`
	Method          invoicing.PaymentMethod `gorm:"column:payment_method;type:varchar(20);not null"`
	ReferenceNumber string                  `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *invoicing.Payment {
	return &invoicing.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		InvoiceID:         m.InvoiceID,
		PaymentDate:       invoicing.DateOf(m.PaymentDate),
		Amount:            valueobject.NewMoney(m.Amount),
		Method:            m.Method,
		ReferenceNumber:   m.ReferenceNumber,
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *invoicing.Payment) *PaymentModel {
	m := &PaymentModel{
		InvoiceID:       p.InvoiceID,
		PaymentDate:     p.PaymentDate,
		Amount:          p.Amount.Amount(),
		Method:          p.Method,
		ReferenceNumber: p.ReferenceNumber,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}
