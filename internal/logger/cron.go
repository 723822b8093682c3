package logger

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronLogger adapts a zap logger to cron.Logger.
type CronLogger struct {
	logger *zap.SugaredLogger
}

var _ cron.Logger = (*CronLogger)(nil)

func NewCronLogger(logger *zap.Logger) *CronLogger {
	return &CronLogger{logger: logger.Named("cron").Sugar()}
}

// Info is logged at debug level; cron reports every wake-up through it.
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
