package persistence

import (
	"testing"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestValidateSortOrder(t *testing.T) {
	cases := map[string]string{
		"":                          "DESC",
		"asc":                       "ASC",
		"  ASC ":                    "ASC",
		"desc":                      "DESC",
		"ascending":                 "DESC",
		"ASC; DROP TABLE invoices;": "DESC",
	}
	for input, want := range cases {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField_Invoices(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "issue_date"},
		{"due_date", "due_date"},
		{" total_amount ", "total_amount"},
		{"invoice_number", "invoice_number"},
		{"balance_due", "issue_date"},
		{"version", "issue_date"},
		{"DUE_DATE", "issue_date"},
		{"due_date, (SELECT 1)", "issue_date"},
		{"issue_date/**/DESC", "issue_date"},
		{"total_amount' OR '1'='1", "issue_date"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, InvoiceSortFields, "issue_date"))
		})
	}
}

func TestValidateSortField_EmptyDefault(t *testing.T) {
	assert.Equal(t, "email", ValidateSortField("email", CustomerSortFields, ""))
	assert.Equal(t, "", ValidateSortField("phone", CustomerSortFields, ""))
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "issue_date DESC", orderClause(shared.Filter{}, InvoiceSortFields, "issue_date"))
	assert.Equal(t, "due_date ASC", orderClause(shared.Filter{OrderBy: "due_date", OrderDir: "asc"}, InvoiceSortFields, "issue_date"))
	assert.Equal(t, "name DESC", orderClause(shared.Filter{OrderBy: "balance", OrderDir: "desc"}, CustomerSortFields, "name"))
}

func TestPaginate(t *testing.T) {
	db := setupSQLiteDB(t)

	tests := []struct {
		name   string
		filter shared.Filter
		want   string
	}{
		{"second page", shared.Filter{Page: 2, PageSize: 20}, "LIMIT 20 OFFSET 20"},
		{"no page size", shared.Filter{Page: 3}, ""},
		{"no page", shared.Filter{PageSize: 10}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []models.InvoiceModel
			stmt := paginate(db.Session(&gorm.Session{DryRun: true}).Model(&models.InvoiceModel{}), tt.filter).Find(&rows).Statement
			require.NoError(t, stmt.Error)
			if tt.want == "" {
				assert.NotContains(t, stmt.SQL.String(), "LIMIT")
				return
			}
			assert.Contains(t, stmt.SQL.String(), tt.want)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "INV-", escapeLike("INV-"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `A\_B`, escapeLike("A_B"))
	assert.Equal(t, `C:\\x`, escapeLike(`C:\x`))
}
