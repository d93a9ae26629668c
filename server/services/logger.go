package services

import "log/slog"

// LoggerInterface is the logging abstraction shared by the services. It keeps
// the services testable with a recording logger.
type LoggerInterface interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// defaultLogger forwards to slog.
type defaultLogger struct {
	logger *slog.Logger
}

func newDefaultLogger() *defaultLogger {
	return &defaultLogger{logger: slog.Default()}
}

func (l *defaultLogger) Info(msg string, args ...interface{}) {
	l.logger.Info(msg, args...)
}

func (l *defaultLogger) Error(msg string, args ...interface{}) {
	l.logger.Error(msg, args...)
}

func (l *defaultLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warn(msg, args...)
}
