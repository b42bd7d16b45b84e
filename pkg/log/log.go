// Package log wraps zap behind a process-wide logger so that every package
// logs through the same core. The logger is replaced once at startup after
// configuration is loaded; before that a sane console default is in place.
package log

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and at what level the process logs.
type Config struct {
	// Level is a zap level name: debug, info, warn, error. Empty means info.
	Level string
	// File, when set, routes output to a size-rotated file instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.Must(newLogger(Config{})))
}

func newLogger(cfg Config) (*zap.Logger, error) {
	level := zap.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if cfg.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, level)
	return zap.New(core, zap.AddCaller()), nil
}

// New builds a logger from cfg. The caller decides whether to install it
// globally via ReplaceGlobals.
func New(cfg Config) (*zap.Logger, error) {
	return newLogger(cfg)
}

// L returns the current process-wide logger.
func L() *zap.Logger {
	return global.Load()
}

// ReplaceGlobals installs l as the process-wide logger.
func ReplaceGlobals(l *zap.Logger) {
	global.Store(l)
}

// Debug logs at debug level through the process-wide logger.
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Info logs at info level through the process-wide logger.
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn logs at warn level through the process-wide logger.
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error logs at error level through the process-wide logger.
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Fatal logs at fatal level and exits.
func Fatal(msg string, fields ...zap.Field) {
	L().Fatal(msg, fields...)
}
