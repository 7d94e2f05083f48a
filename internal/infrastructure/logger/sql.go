package logger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowStatement is the slow statement threshold when none is configured
const DefaultSlowStatement = 200 * time.Millisecond

// statementTable finds the first table a statement reads or writes
var statementTable = regexp.MustCompile(`(?i)\b(?:from|into|update)\s+["` + "`" + `]?(\w+)`)

// SQLLogger is the gorm logger of the invoice store. Every statement is
// tagged with the table it touched and the request that issued it.
//
// Rejections the repositories turn into domain errors (missing rows, duplicate
// emails, a customer still referenced by invoices, failed CHECKs) are logged
// at debug as outcomes, not as SQL errors. Bound values such as amounts and
// customer emails are left out of the logged statement unless WithParams(true).
type SQLLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	showParams    bool
}

// SQLLoggerOption configures a SQLLogger
type SQLLoggerOption func(*SQLLogger)

// WithSlowThreshold sets the duration above which statements warn. Zero disables it.
func WithSlowThreshold(threshold time.Duration) SQLLoggerOption {
	return func(l *SQLLogger) {
		l.slowThreshold = threshold
	}
}

// WithParams interpolates bound values into logged statements
func WithParams(show bool) SQLLoggerOption {
	return func(l *SQLLogger) {
		l.showParams = show
	}
}

// NewSQLLogger creates a SQLLogger writing to the "sql" child of zapLogger
func NewSQLLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...SQLLoggerOption) *SQLLogger {
	l := &SQLLogger{
		logger:        zapLogger.Named("sql"),
		level:         level,
		slowThreshold: DefaultSlowStatement,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	copied := *l
	copied.level = level
	return &copied
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		WithTraceContext(ctx, l.logger).Sugar().Infof(msg, data...)
	}
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		WithTraceContext(ctx, l.logger).Sugar().Warnf(msg, data...)
	}
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		WithTraceContext(ctx, l.logger).Sugar().Errorf(msg, data...)
	}
}

// ParamsFilter implements gorm.ParamsFilter. Dropping the values leaves the
// placeholders in the statement gorm hands to Trace.
func (l *SQLLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.showParams {
		return sql, params
	}
	return sql, nil
}

func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("table", tableOf(sql)),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	log := WithTraceContext(ctx, l.logger)

	if err != nil {
		if outcome := rejection(err); outcome != "" {
			if l.level >= gormlogger.Info {
				log.Debug("SQL rejected", append(fields, zap.String("outcome", outcome))...)
			}
			return
		}
		if l.level >= gormlogger.Error {
			log.Error("SQL error", append(fields, zap.Error(err))...)
		}
		return
	}

	switch {
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		log.Warn("Slow SQL", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormlogger.Info:
		if rows == 0 && isGuardedUpdate(sql) {
			fields = append(fields, zap.Bool("version_guard_missed", true))
		}
		log.Debug("SQL", fields...)
	}
}

// rejection names errors the repositories map onto domain errors
func rejection(err error) string {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return "duplicate"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return "still_referenced"
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return "check_failed"
	}
	return ""
}

func tableOf(sql string) string {
	if m := statementTable.FindStringSubmatch(sql); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// isGuardedUpdate matches the optimistic-lock writes on invoices and customers
func isGuardedUpdate(sql string) bool {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	return (strings.HasPrefix(upper, "UPDATE") || strings.HasPrefix(upper, "DELETE")) &&
		strings.Contains(upper, "VERSION =")
}

// MapGormLogLevel maps the configured database log level onto gorm's. Only
// "debug" surfaces every statement.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

var (
	_ gormlogger.Interface = (*SQLLogger)(nil)
	_ gorm.ParamsFilter    = (*SQLLogger)(nil)
)
