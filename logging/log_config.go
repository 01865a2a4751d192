package logging

import (
	"regexp"
	"strings"
)

// LoggerPatternConfig is an instance of a level specification for a given logger.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern" yaml:"pattern" mapstructure:"pattern"`
	Level   string `json:"level" yaml:"level" mapstructure:"level"`
}

const (
	// e.g. "fm34" or "tc358768-bridge".
	validLoggerSectionName = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	// e.g. "fm34" or "*".
	validLoggerSectionNameWithWildcard = `(` + validLoggerSectionName + `|\*)`
	// e.g. "bringupd.*.retry".
	validLoggerName = `^` + validLoggerSectionNameWithWildcard + `(\.` + validLoggerSectionNameWithWildcard + `)*$`
)

var loggerPatternRegexp = regexp.MustCompile(validLoggerName)

// ValidatePattern reports whether the pattern is a dot separated logger name where any section
// may be the `*` wildcard.
func ValidatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern)
}

func buildRegexFromPattern(pattern string) string {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}
