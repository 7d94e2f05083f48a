package persistence

import (
	"strings"

	"github.com/invoicing/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"issue_date":     true,
	"due_date":       true,
	"invoice_number": true,
	"total_amount":   true,
	"created_at":     true,
}

// CustomerSortFields contains allowed sort fields for customers
var CustomerSortFields = map[string]bool{
	"name":       true,
	"email":      true,
	"created_at": true,
}

// orderClause builds a whitelisted "field DIR" clause
func orderClause(filter shared.Filter, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(filter.OrderBy, allowed, defaultField) + " " + ValidateSortOrder(filter.OrderDir)
}

// paginate applies offset and limit when both page and page size are set
func paginate(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Paged() {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// escapeLike escapes LIKE wildcards so the value matches literally with ESCAPE '\'
func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
