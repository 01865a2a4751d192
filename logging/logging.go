// Package logging is the zap-backed structured logger used by the bring-up daemon and its
// devices.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalMu     sync.RWMutex
	globalLogger = NewDebugLogger("startup")
)

// ReplaceGlobal replaces the global loggers.
func ReplaceGlobal(logger Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the global logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// NewZapLoggerConfig is the console config behind AsZap and the stdout appender: prod keys,
// colored levels, ISO8601 times and no stack traces.
func NewZapLoggerConfig() zap.Config {
	encoder := zap.NewProductionEncoderConfig()
	encoder.FunctionKey = zapcore.OmitKey
	encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder
	return zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding:          "console",
		EncoderConfig:     encoder,
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

func newLogger(name string, level Level, appenders ...Appender) Logger {
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		inUTC:     true,
		appenders: appenders,
	}
}

// NewLogger logs INFO and above to stdout.
func NewLogger(name string) Logger {
	return newLogger(name, INFO, NewStdoutAppender())
}

// NewDebugLogger logs everything to stdout.
func NewDebugLogger(name string) Logger {
	return newLogger(name, DEBUG, NewStdoutAppender())
}

// NewBlankLogger logs everything but has nowhere to write until an appender is added.
func NewBlankLogger(name string) Logger {
	return newLogger(name, DEBUG)
}
