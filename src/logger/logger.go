package logger

import (
	"os"
	"strings"
	"sync"

	"price-scout/src/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------

// Logger is a named, printf-style logger backed by zap.
type Logger struct {
	name  string
	sugar *zap.SugaredLogger
}

var (
	baseMu    sync.Mutex
	baseCores = map[zapcore.Level]*zap.Logger{}
)

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. cfg may be nil, in which case the
// INFO level is used.
func NewLogger(cfg *models.MConfig, name string) *Logger {
	level := zapcore.InfoLevel
	if cfg != nil {
		level = parseLevel(cfg.LogLevel)
	}
	return &Logger{
		name:  name,
		sugar: base(level).Named(name).Sugar(),
	}
}

// -----------------------------------------------------------------------------

// NewNopLogger discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{name: "nop", sugar: zap.NewNop().Sugar()}
}

// -----------------------------------------------------------------------------

// Named returns a child logger, e.g. "Orchestrator.scorptec".
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: l.name + "." + name, sugar: l.sugar.Named(name)}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

// -----------------------------------------------------------------------------

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

// -----------------------------------------------------------------------------

func base(level zapcore.Level) *zap.Logger {
	baseMu.Lock()
	defer baseMu.Unlock()

	if lg, ok := baseCores[level]; ok {
		return lg
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		zap.NewAtomicLevelAt(level),
	)
	lg := zap.New(core)
	baseCores[level] = lg
	return lg
}

// -----------------------------------------------------------------------------

func parseLevel(s string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "CRITICAL", "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
