package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop().Sugar()

// InitLogging initializes logging
func InitLogging(level string) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return err
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)
	logger = l.Sugar()
	return nil
}

// ReplaceLogger swaps the package logger and returns a func restoring the
// previous one.
func ReplaceLogger(l *zap.Logger) func() {
	prev := logger
	logger = l.Sugar()
	return func() { logger = prev }
}

// Sync flushes buffered log entries
func Sync() {
	_ = logger.Sync()
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

// Warnf logs warning level messages
func Warnf(format string, v ...interface{}) {
	logger.Warnf(format, v...)
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	logger.Errorf(format, v...)
}
