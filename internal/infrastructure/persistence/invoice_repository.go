package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// preloadLineItems loads line items in insertion order
func preloadLineItems(db *gorm.DB) *gorm.DB {
	return db.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := preloadLineItems(r.db.WithContext(ctx)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, invoicing.ErrInvoiceNotFound)
	}
	return model.ToDomain(), nil
}

// FindByInvoiceNumber finds an invoice by its number
func (r *GormInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := preloadLineItems(r.db.WithContext(ctx)).
		Where("invoice_number = ?", invoiceNumber).
		First(&model).Error; err != nil {
		return nil, translateError(err, invoicing.ErrInvoiceNotFound)
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.applyFilter(preloadLineItems(r.db.WithContext(ctx)).Model(&models.InvoiceModel{}), filter)
	query = paginate(query.Order(orderClause(filter.Filter, InvoiceSortFields, "issue_date")), filter.Filter)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter invoicing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindOverdueCandidates returns SENT invoices due strictly before asOf, oldest first
func (r *GormInvoiceRepository) FindOverdueCandidates(ctx context.Context, asOf time.Time) ([]invoicing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := preloadLineItems(r.db.WithContext(ctx)).
		Where("status = ? AND due_date < ?", invoicing.InvoiceStatusSent, invoicing.DateOf(asOf)).
		Order("due_date ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// ExistsByInvoiceNumber checks if an invoice number is taken
func (r *GormInvoiceRepository) ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("invoice_number = ?", invoiceNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LatestInvoiceNumberWithPrefix returns the greatest number starting with prefix
func (r *GormInvoiceRepository) LatestInvoiceNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where(`invoice_number LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &numbers).Error; err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

// ExistsByCustomerID checks if any invoice references the customer
func (r *GormInvoiceRepository) ExistsByCustomerID(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an invoice. Line items are replaced wholesale.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	items := model.LineItems
	model.LineItems = nil

	var updated bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		updated, err = saveVersioned(tx, model, invoice, invoiceColumns(model), invoicing.ErrInvoiceNotFound)
		if err != nil {
			return err
		}

		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return translateError(err, nil)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if updated {
		invoice.IncrementVersion()
	}
	invoice.MarkPersisted()
	return nil
}

// Delete deletes a draft invoice at the given version; line items go with it
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID, version int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ? AND version = ? AND status = ?", id, version, string(invoicing.InvoiceStatusDraft)).
			Delete(&models.InvoiceModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return missOrConflict(tx, &models.InvoiceModel{}, id, invoicing.ErrInvoiceNotFound)
		}
		return nil
	})
}

// applyFilter applies the invoice-specific conditions shared by FindAll and Count
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter invoicing.InvoiceFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.FromDate != nil {
		query = query.Where("issue_date >= ?", invoicing.DateOf(*filter.FromDate))
	}
	if filter.ToDate != nil {
		query = query.Where("issue_date <= ?", invoicing.DateOf(*filter.ToDate))
	}
	if filter.Search != "" {
		query = query.Where(`invoice_number LIKE ? ESCAPE '\'`, "%"+escapeLike(filter.Search)+"%")
	}
	return query
}

func invoiceColumns(m *models.InvoiceModel) map[string]any {
	return map[string]any{
		"customer_id":    m.CustomerID,
		"invoice_number": m.InvoiceNumber,
		"issue_date":     m.IssueDate,
		"due_date":       m.DueDate,
		"status":         m.Status,
		"subtotal":       m.Subtotal,
		"tax_amount":     m.TaxAmount,
		"total_amount":   m.TotalAmount,
		"balance_due":    m.BalanceDue,
		"sent_at":        m.SentAt,
		"paid_at":        m.PaidAt,
		"cancelled_at":   m.CancelledAt,
		"updated_at":     m.UpdatedAt,
	}
}

func toDomainInvoices(invoiceModels []models.InvoiceModel) []invoicing.Invoice {
	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
