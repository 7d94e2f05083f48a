package main

import (
	"fmt"
	"time"

	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	partnerapp "github.com/invoicing/backend/internal/application/partner"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// app holds the services a command needs. Commands open it in RunE and close
// it when they return.
type app struct {
	log         *zap.Logger
	db          *persistence.Database
	invoiceRepo *persistence.GormInvoiceRepository
	invoices    *invoicingapp.InvoiceService
	overdue     *invoicingapp.OverdueService
	numbers     *invoicingapp.NumberGenerator
}

func openApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{Level: opts.logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		logger.NewSQLLogger(log, logger.MapGormLogLevel(opts.logLevel)))
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare sqlite schema: %w", err)
		}
	}

	serviceCfg := invoicingapp.ServiceConfig{
		DefaultDueDays:  cfg.Invoice.DefaultDueDays,
		ConflictRetries: cfg.Invoice.ConflictRetries,
	}
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	customers := partnerapp.NewCustomerService(persistence.NewGormCustomerRepository(db.DB), invoiceRepo, log)
	numbers := invoicingapp.NewNumberGenerator(invoiceRepo, cfg.Invoice.NumberPrefix)

	return &app{
		log:         log,
		db:          db,
		invoiceRepo: invoiceRepo,
		invoices:    invoicingapp.NewInvoiceService(invoiceRepo, customers, numbers, serviceCfg, log),
		overdue:     invoicingapp.NewOverdueService(invoiceRepo, serviceCfg, log),
		numbers:     numbers,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("Error closing database", zap.Error(err))
	}
	_ = a.log.Sync()
}

// parseDateFlag reads a YYYY-MM-DD flag value, defaulting to today in UTC
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return t, nil
}
