package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// defaultSlowQuery is the threshold above which a playlist query is reported
const defaultSlowQuery = 250 * time.Millisecond

// GormAdapter routes gorm's logging through a Logger
type GormAdapter struct {
	logger    *Logger
	level     gormlogger.LogLevel
	slowQuery time.Duration
}

// NewGormAdapter creates a GORM logger adapter for a config level string
func NewGormAdapter(logger *Logger, level string) *GormAdapter {
	return &GormAdapter{
		logger:    logger,
		level:     GormLevel(level),
		slowQuery: defaultSlowQuery,
	}
}

// LogMode returns a copy of the adapter at the given level
func (g *GormAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

// Info logs info level messages
func (g *GormAdapter) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Info {
		g.logger.WithContext(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

// Warn logs warn level messages
func (g *GormAdapter) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.logger.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

// Error logs error level messages
func (g *GormAdapter) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Error {
		g.logger.WithContext(ctx).Error(fmt.Sprintf(msg, data...), nil)
	}
}

// Trace reports failed and slow statements, and every statement at info level
func (g *GormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fl := g.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"elapsed_ms": float64(elapsed.Microseconds()) / 1e3,
		"rows":       rows,
		"sql":        sql,
	})

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		fl.Error("database query error", err)
	case g.slowQuery > 0 && elapsed > g.slowQuery && g.level >= gormlogger.Warn:
		fl.Warn("slow database query")
	case g.level >= gormlogger.Info:
		fl.Debug("database query executed")
	}
}

// GormLevel maps a config log level onto gorm's levels
func GormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	case "silent":
		return gormlogger.Silent
	default:
		return gormlogger.Warn
	}
}
