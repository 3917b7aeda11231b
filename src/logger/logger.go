package logger

import (
	"fmt"
	"os"
	"strings"

	"market-stream/src/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name   string
	logger *zap.SugaredLogger
	base   *zap.Logger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance writing JSON to stdout and, when
// configured, to a rotating file.
func NewLogger(config *models.MConfig, name string) *Logger {
	level := zapcore.InfoLevel
	var fileCfg models.MLoggingConfig
	if config != nil {
		level = parseLevel(config.LogLevel)
		fileCfg = config.Logging
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}
	if fileCfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   fileCfg.File,
			MaxSize:    fileCfg.MaxSizeMB,
			MaxBackups: fileCfg.MaxBackups,
			MaxAge:     fileCfg.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotating), level))
	}

	base := zap.New(zapcore.NewTee(cores...)).Named(name)
	return &Logger{name: name, logger: base.Sugar(), base: base}
}

// NewFromZap wraps an existing zap logger (tests use zaptest).
func NewFromZap(z *zap.Logger, name string) *Logger {
	base := z.Named(name)
	return &Logger{name: name, logger: base.Sugar(), base: base}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return NewFromZap(zap.NewNop(), "nop")
}

// -----------------------------------------------------------------------------

// Named returns a child logger sharing the same outputs.
func (l *Logger) Named(name string) *Logger {
	base := l.base.Named(name)
	return &Logger{name: l.name + "." + name, logger: base.Sugar(), base: base}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Error("CRITICAL: " + msg)
	_ = l.base.Sync()
	os.Exit(1)
}

// -----------------------------------------------------------------------------

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// -----------------------------------------------------------------------------

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
