package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/neline/marketplace-backend/pkg/logger"
)

// SlowQueryThreshold is the duration past which a statement is logged as slow.
const SlowQueryThreshold = 500 * time.Millisecond

// queryLogger routes gorm's statement trace into the service logger. Only
// failed and slow statements are written; the SQL text is kept but its
// bound values are not.
type queryLogger struct {
	logg *logger.Logger
}

func newQueryLogger(logg *logger.Logger) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return queryLogger{logg: logg}
}

func (q queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return q }

// ParamsFilter drops bound values before gorm renders the statement.
func (q queryLogger) ParamsFilter(_ context.Context, sql string, _ ...any) (string, []any) {
	return sql, nil
}

func (q queryLogger) Info(ctx context.Context, msg string, _ ...any) {
	q.logg.Debug(q.logg.WithField(ctx, "gorm_message", msg), "db.info")
}

func (q queryLogger) Warn(ctx context.Context, msg string, _ ...any) {
	q.logg.Warn(q.logg.WithField(ctx, "gorm_message", msg), "db.warning")
}

func (q queryLogger) Error(ctx context.Context, msg string, _ ...any) {
	q.logg.Error(ctx, "db.error", errors.New(msg))
}

func (q queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	if !failed && elapsed < SlowQueryThreshold {
		return
	}

	sql, rows := fc()
	ctx = q.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	if failed {
		q.logg.Error(ctx, "db.query_failed", err)
		return
	}
	q.logg.Warn(ctx, "db.slow_query")
}
