package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound query variables in span statements. Never enable in production.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	// DBSystem names the database in span attributes, see DBSystemFor.
	DBSystem string
}

// DefaultDBTracingConfig returns tracing disabled with a 200ms slow query threshold.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBSystemFor maps a configured database driver to its semantic-convention name.
func DBSystemFor(driver string) string {
	switch driver {
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return "postgresql"
	}
}

// DBTracingPlugin installs otelgorm spans on a gorm handle and decorates them
// with row counts, table names, error status and slow query markers.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new DBTracingPlugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register installs the plugin on db. It is a no-op when tracing is disabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerTiming(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.String("db_system", p.config.DBSystem),
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) registerTiming(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:before_create", p.before),
		cb.Create().After("gorm:create").Register("telemetry:after_create", p.after),
		cb.Query().Before("gorm:query").Register("telemetry:before_query", p.before),
		cb.Query().After("gorm:query").Register("telemetry:after_query", p.after),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", p.before),
		cb.Update().After("gorm:update").Register("telemetry:after_update", p.after),
		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", p.before),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", p.after),
		cb.Row().Before("gorm:row").Register("telemetry:before_row", p.before),
		cb.Row().After("gorm:row").Register("telemetry:after_row", p.after),
		cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", p.before),
		cb.Raw().After("gorm:raw").Register("telemetry:after_raw", p.after),
	)
}

type queryStartKey struct{}

func withQueryStart(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, queryStartKey{}, start)
}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = withQueryStart(db.Statement.Context, time.Now())
	}
}

func (p *DBTracingPlugin) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	var elapsed time.Duration
	start, timed := ctx.Value(queryStartKey{}).(time.Time)
	if timed {
		elapsed = time.Since(start)
	}
	slow := timed && elapsed > p.config.SlowQueryThresh
	if slow {
		p.logger.Warn("slow query",
			zap.String("table", db.Statement.Table),
			zap.Duration("duration", elapsed),
			zap.Duration("threshold", p.config.SlowQueryThresh),
		)
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
