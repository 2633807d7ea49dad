package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"

	appLog "feastsched/internal/log"
)

// gormLog routes gorm's output to the application logger.
type gormLog struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func newGormLogger() gormLogger.Interface {
	return &gormLog{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      gormLogger.Info,
	}
}

func (l *gormLog) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	nl := *l
	nl.LogLevel = level
	return &nl
}

func (l *gormLog) Info(_ context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		appLog.Debug(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLog) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		appLog.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLog) Error(_ context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		appLog.Error(fmt.Sprintf(msg, data...), nil)
	}
}

func (l *gormLog) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.LogLevel >= gormLogger.Error:
		sql, rows := fc()
		appLog.Error("sql failed", err, "file", utils.FileWithLineNum(), "elapsed", elapsed, "rows", rows, "sql", sql)
	case elapsed > l.SlowThreshold && l.LogLevel >= gormLogger.Warn:
		sql, rows := fc()
		appLog.Warn("slow sql", "file", utils.FileWithLineNum(), "elapsed", elapsed, "rows", rows, "sql", sql)
	case l.LogLevel >= gormLogger.Info && appLog.Enabled(appLog.LevelDebug):
		sql, rows := fc()
		appLog.Debug("sql", "elapsed", elapsed, "rows", rows, "sql", sql)
	}
}
