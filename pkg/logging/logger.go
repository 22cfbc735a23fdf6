package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the process-wide log output.
type Config struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`

	// Format is "console" for human-readable output or "json"
	Format string `mapstructure:"format" yaml:"format"`

	// LogFile enables an additional rotated JSON log file when set
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

var (
	// root holds the initialized base logger; nil until Initialize runs
	root     atomic.Pointer[zap.Logger]
	initOnce sync.Once
)

// Initialize sets up the process-wide logger writing to stderr.
// Only the first call has any effect.
func Initialize(cfg Config) {
	InitializeWithWriter(cfg, zapcore.Lock(os.Stderr))
}

// InitializeWithWriter is Initialize with an explicit console sink.
func InitializeWithWriter(cfg Config, console zapcore.WriteSyncer) {
	initOnce.Do(func() {
		level := zap.NewAtomicLevel()
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		cores := []zapcore.Core{zapcore.NewCore(newEncoder(cfg.Format), console, level)}

		if cfg.LogFile != "" {
			file := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			})
			cores = append(cores, zapcore.NewCore(newEncoder("json"), file, level))
		}

		logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).Named("webpilot")
		root.Store(logger)
	})
}

// ResetForTest clears the process-wide logger so a test can initialize its own.
func ResetForTest() {
	root.Store(nil)
	initOnce = sync.Once{}
}

func newEncoder(format string) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	if strings.EqualFold(format, "console") {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(name + ".")
		}
		return zapcore.NewConsoleEncoder(encCfg)
	}

	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encCfg)
}

// Logger is a component-scoped logger.
//
// Loggers may be created before Initialize; they resolve the process-wide
// logger on every call, and discard output until Initialize has run.
type Logger struct {
	component string
	fields    []zap.Field
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// With returns a child logger carrying additional structured fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	merged := make([]zap.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{component: l.component, fields: merged}
}

// Zap exposes the underlying zap logger for structured call sites.
func (l *Logger) Zap() *zap.Logger {
	base := root.Load()
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(l.component).With(l.fields...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.Zap().Debug(fmt.Sprintf(format, v...))
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.Zap().Info(fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.Zap().Warn(fmt.Sprintf(format, v...))
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.Zap().Error(fmt.Sprintf(format, v...))
}

// Sync flushes buffered log entries of the process-wide logger.
func Sync() error {
	if base := root.Load(); base != nil {
		return base.Sync()
	}
	return nil
}
