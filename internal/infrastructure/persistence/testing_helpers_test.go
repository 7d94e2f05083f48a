package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupSQLiteDB opens an isolated in-memory database with the invoicing schema
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", DBName: "file::memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.AutoMigrate())
	return db.DB
}

func testDate(day int) time.Time {
	return time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC)
}

// newTestInvoice builds a draft with 2 x 50.00 and 1 x 150.00, so the total is 275.00
func newTestInvoice(t *testing.T, number string) *invoicing.Invoice {
	t.Helper()

	inv, err := invoicing.NewInvoice(uuid.New(), number, testDate(1), testDate(31))
	require.NoError(t, err)
	_, err = inv.AddLineItem("Consulting", decimal.NewFromInt(2), valueobject.MustNewMoneyFromString("50.00"))
	require.NoError(t, err)
	_, err = inv.AddLineItem("Support plan", decimal.NewFromInt(1), valueobject.MustNewMoneyFromString("150.00"))
	require.NoError(t, err)
	return inv
}

func newTestCustomer(t *testing.T, name, email string) *partner.Customer {
	t.Helper()

	customer, err := partner.NewCustomer(name, email, "+1 555 0100", "1 Main St")
	require.NoError(t, err)
	return customer
}
