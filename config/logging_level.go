package config

import (
	"sync"

	"go.uber.org/zap/zapcore"

	"go.viam.com/bringup/logging"
)

// debugSources tracks the two ways debug logging gets turned on: the --debug flag, fixed for the
// life of the process, and the "debug" key of the config file, which changes on every reload.
type debugSources struct {
	mu     sync.Mutex
	logger logging.Logger
	flag   bool
	file   bool
}

var debugState debugSources

// apply sets the global level from the two sources. Must be called with mu held.
func (d *debugSources) apply() {
	want := zapcore.InfoLevel
	if d.flag || d.file {
		want = zapcore.DebugLevel
	}
	if logging.GlobalLogLevel.Level() == want {
		return
	}
	logging.GlobalLogLevel.SetLevel(want)
	if d.logger != nil {
		d.logger.Infow("global log level changed", "level", want)
	}
}

// InitLoggingSettings records the --debug flag and sets the starting global level.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	debugState.mu.Lock()
	defer debugState.mu.Unlock()
	debugState.logger = logger
	debugState.flag = cmdLineDebugFlag
	debugState.file = false
	debugState.apply()
	logger.Infow("log level initialized", "level", logging.GlobalLogLevel.Level())
}

// UpdateFileConfigDebug records the "debug" key of a freshly read config.
func UpdateFileConfigDebug(fileDebug bool) {
	debugState.mu.Lock()
	defer debugState.mu.Unlock()
	debugState.file = fileDebug
	debugState.apply()
}

// ApplyLogConfig applies the debug key and the logger patterns of cfg. With --debug every logger
// starts at debug and the file patterns refine it.
func ApplyLogConfig(cfg *Config, logger logging.Logger) error {
	UpdateFileConfigDebug(cfg.Debug)
	patterns := cfg.LogPatterns()

	debugState.mu.Lock()
	flag := debugState.flag
	debugState.mu.Unlock()
	if flag {
		patterns = append([]logging.LoggerPatternConfig{{Pattern: "*", Level: "debug"}}, patterns...)
	}
	return logging.UpdateLoggerRegistry(patterns, logger)
}
