package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

// useSQLite points configuration at a fresh sqlite file and returns its path
func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoicing.db")
	t.Setenv("INVOICING_DATABASE_DRIVER", "sqlite")
	t.Setenv("INVOICING_DATABASE_DBNAME", path)
	return path
}

// seedSentInvoice stores a SENT invoice of 275.00 due on dueDay
func seedSentInvoice(t *testing.T, path, number string, dueDay int) {
	t.Helper()
	ctx := context.Background()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", DBName: path}, nil)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.AutoMigrate())

	customer, err := partner.NewCustomer("Acme Corp", number+"@acme.test", "", "")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormCustomerRepository(db.DB).Save(ctx, customer))

	inv, err := invoicing.NewInvoice(customer.ID, number, day(1), day(dueDay))
	require.NoError(t, err)
	_, err = inv.AddLineItem("Consulting", decimal.NewFromInt(2), valueobject.MustNewMoneyFromString("50.00"))
	require.NoError(t, err)
	_, err = inv.AddLineItem("Setup fee", decimal.NewFromInt(1), valueobject.MustNewMoneyFromString("150.00"))
	require.NoError(t, err)
	require.NoError(t, inv.Send())
	require.NoError(t, persistence.NewGormInvoiceRepository(db.DB).Save(ctx, inv))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.Execute()
	return out.String(), err
}

func TestOverdueCommand(t *testing.T) {
	path := useSQLite(t)
	seedSentInvoice(t, path, "INV-EARLY", 10)
	seedSentInvoice(t, path, "INV-LATE", 31)

	out, err := execute(t, "overdue", "--as-of", "2024-03-20", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "INV-EARLY\tdue 2024-03-10\tbalance 275.00")
	assert.NotContains(t, out, "INV-LATE")
	assert.Contains(t, out, "1 invoice(s) would become overdue as of 2024-03-20")

	out, err = execute(t, "overdue", "--as-of", "2024-03-20")
	require.NoError(t, err)
	assert.Contains(t, out, "1 invoice(s) marked overdue as of 2024-03-20")

	out, err = execute(t, "overdue", "--as-of", "2024-03-20")
	require.NoError(t, err)
	assert.Contains(t, out, "0 invoice(s) marked overdue")

	out, err = execute(t, "balance", "INV-EARLY")
	require.NoError(t, err)
	var balance map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &balance))
	assert.Equal(t, "OVERDUE", balance["status"])
	assert.Equal(t, "275.00", balance["balance_due"])
}

func TestOverdueCommand_RejectsBadDate(t *testing.T) {
	useSQLite(t)

	_, err := execute(t, "overdue", "--as-of", "20.03.2024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--as-of must be YYYY-MM-DD")
}

func TestNumberCommand(t *testing.T) {
	useSQLite(t)
	t.Setenv("INVOICING_INVOICE_NUMBER_PREFIX", "INV")

	out, err := execute(t, "number", "--date", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "INV20240301-00001", strings.TrimSpace(out))
}

func TestBalanceCommand_UnknownInvoice(t *testing.T) {
	useSQLite(t)

	_, err := execute(t, "balance", "INV-MISSING")
	require.Error(t, err)
	assert.ErrorIs(t, err, invoicing.ErrInvoiceNotFound)
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing default file is ignored", func(t *testing.T) {
		require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), ".env"), false))
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		require.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "prod.env"), true))
	})

	t.Run("loads variables without overriding", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("INVOICECTL_TEST_A=from-file\nINVOICECTL_TEST_B=from-file\n"), 0o600))
		t.Setenv("INVOICECTL_TEST_B", "from-env")
		t.Cleanup(func() { _ = os.Unsetenv("INVOICECTL_TEST_A") })

		require.NoError(t, loadEnvFile(path, true))
		assert.Equal(t, "from-file", os.Getenv("INVOICECTL_TEST_A"))
		assert.Equal(t, "from-env", os.Getenv("INVOICECTL_TEST_B"))
	})
}
