package logging

import (
	"regexp"
	"sync"

	"github.com/pkg/errors"
)

// levelRule is a compiled LoggerPatternConfig.
type levelRule struct {
	match *regexp.Regexp
	level Level
}

// Registry holds the named loggers of a running daemon together with the level rules from the
// "log" section of its config.
type Registry struct {
	mu      sync.Mutex
	loggers map[string]Logger
	rules   []levelRule
}

var globalLoggerRegistry = newRegistry()

func newRegistry() *Registry {
	return &Registry{loggers: map[string]Logger{}}
}

// RegisterLogger adds logger to the global registry under name, replacing any earlier logger of
// that name. If a configured pattern matches name the logger takes its level.
func RegisterLogger(name string, logger Logger) {
	globalLoggerRegistry.register(name, logger)
}

// DeregisterLogger removes name from the global registry.
func DeregisterLogger(name string) bool {
	return globalLoggerRegistry.deregister(name)
}

// UpdateLoggerRegistry installs new level patterns in the global registry. Invalid patterns are
// reported to errorLogger and skipped.
func UpdateLoggerRegistry(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	return globalLoggerRegistry.Update(logConfig, errorLogger)
}

func compileRules(logConfig []LoggerPatternConfig, errorLogger Logger) ([]levelRule, error) {
	rules := make([]levelRule, 0, len(logConfig))
	for _, lpc := range logConfig {
		if !ValidatePattern(lpc.Pattern) {
			errorLogger.Warnw("skipping invalid logger pattern", "pattern", lpc.Pattern)
			continue
		}
		level, err := LevelFromString(lpc.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %q", lpc.Pattern)
		}
		match, err := regexp.Compile(buildRegexFromPattern(lpc.Pattern))
		if err != nil {
			return nil, err
		}
		rules = append(rules, levelRule{match: match, level: level})
	}
	return rules, nil
}

// levelFor returns the level of the last rule matching name.
func (lr *Registry) levelFor(name string) (Level, bool) {
	for i := len(lr.rules) - 1; i >= 0; i-- {
		if lr.rules[i].match.MatchString(name) {
			return lr.rules[i].level, true
		}
	}
	return INFO, false
}

func (lr *Registry) register(name string, logger Logger) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = logger
	if level, ok := lr.levelFor(name); ok {
		logger.SetLevel(level)
	}
}

func (lr *Registry) deregister(name string) bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if _, ok := lr.loggers[name]; !ok {
		return false
	}
	delete(lr.loggers, name)
	return true
}

func (lr *Registry) loggerNamed(name string) (Logger, bool) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// Update replaces the level rules and re-levels every registered logger. Later patterns win, and
// a logger no pattern matches goes back to INFO. On error nothing changes.
func (lr *Registry) Update(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	rules, err := compileRules(logConfig, errorLogger)
	if err != nil {
		return err
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.rules = rules
	for name, logger := range lr.loggers {
		level, _ := lr.levelFor(name)
		logger.SetLevel(level)
	}
	return nil
}
