// Package integration runs the invoicing services against a real PostgreSQL
// database started with testcontainers and migrated with the embedded schema.
package integration

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/migration"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/invoicing/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm/logger"
)

const (
	testDBName     = "invoicing_test"
	testDBUser     = "postgres"
	testDBPassword = "postgres"
)

// TestDB is a migrated PostgreSQL database owned by one test
type TestDB struct {
	*persistence.Database
	Container testcontainers.Container
	Config    config.DatabaseConfig
	t         *testing.T
}

// NewTestDB starts a PostgreSQL container, applies the migrations and opens it
// through persistence.NewDatabase. Everything is torn down on test cleanup.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(testDBName),
		tcpostgres.WithUsername(testDBUser),
		tcpostgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Driver:       "postgres",
		Host:         host,
		Port:         portNum,
		User:         testDBUser,
		Password:     testDBPassword,
		DBName:       testDBName,
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}

	runMigrations(t, cfg)

	gormLogger := logger.Default.LogMode(logger.Silent)
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}
	db, err := persistence.NewDatabase(&cfg, gormLogger)
	require.NoError(t, err, "Failed to connect to database")
	t.Cleanup(func() { _ = db.Close() })

	return &TestDB{Database: db, Container: container, Config: cfg, t: t}
}

// CleanTables empties every application table, keeping the migration history
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	err := tdb.DB.Exec("TRUNCATE TABLE payments, invoice_line_items, invoices, customers CASCADE").Error
	require.NoError(tdb.t, err, "Failed to truncate tables")
}

// runMigrations applies the embedded migrations on a dedicated connection;
// the migrator closes the handle it is given.
func runMigrations(t *testing.T, cfg config.DatabaseConfig) {
	t.Helper()

	sqlDB, err := sql.Open("postgres", cfg.DSN())
	require.NoError(t, err)

	m, err := migration.New(sqlDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err, "Failed to create migrator")
	defer m.Close()

	require.NoError(t, m.Up(), "Failed to run migrations")
}
