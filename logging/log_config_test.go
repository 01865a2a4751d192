package logging

import (
	"strings"
	"testing"

	"go.viam.com/test"
)

func verifySetLevels(registry *Registry, expectedMatches map[string]string) bool {
	for name, level := range expectedMatches {
		logger, ok := registry.loggerNamed(name)
		if !ok || !strings.EqualFold(level, logger.GetLevel().String()) {
			return false
		}
	}
	return true
}

func createTestRegistry(loggerNames []string) *Registry {
	registry := newRegistry()
	for _, name := range loggerNames {
		registry.register(name, NewBlankLogger(name))
	}
	return registry
}

func TestValidatePattern(t *testing.T) {
	t.Parallel()

	type testCfg struct {
		pattern string
		isValid bool
	}

	tests := []testCfg{
		{"bringupd.fm34", true},
		{"bringupd.fm34.*", true},
		{"bringupd.*.retry", true},
		{"bringupd.*.*", true},
		{"*.tc358768-bridge", true},
		{"*", true},

		{"bringupd..fm34", false},
		{"bringupd.fm34.", false},
		{".bringupd.fm34", false},
		{"bringupd.fm34.**", false},
		{"bringupd.**.fm34", false},
		{"_.bringupd.fm34", false},
		{"-.bringupd", false},
		{"bringupd.-", false},
		{"bringupd fm34", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.pattern, func(t *testing.T) {
			t.Parallel()
			test.That(t, ValidatePattern(tc.pattern), test.ShouldEqual, tc.isValid)
		})
	}
}

func TestUpdateLoggerRegistry(t *testing.T) {
	type testCfg struct {
		loggerConfig    []LoggerPatternConfig
		loggerNames     []string
		expectedMatches map[string]string
	}

	tests := []testCfg{
		{
			loggerConfig: []LoggerPatternConfig{{Pattern: "bringupd.fm34", Level: "WARN"}},
			loggerNames:  []string{"bringupd.fm34", "bringupd.fm34.retry", "bringupd.panel"},
			expectedMatches: map[string]string{
				"bringupd.fm34":       "WARN",
				"bringupd.fm34.retry": "INFO",
				"bringupd.panel":      "INFO",
			},
		},
		{
			loggerConfig: []LoggerPatternConfig{{Pattern: "bringupd.*", Level: "DEBUG"}},
			loggerNames:  []string{"bringupd.fm34", "bringupd.panel.tc358768", "config"},
			expectedMatches: map[string]string{
				"bringupd.fm34":           "DEBUG",
				"bringupd.panel.tc358768": "DEBUG",
				"config":                  "INFO",
			},
		},
		{
			loggerConfig: []LoggerPatternConfig{{Pattern: "bringupd.*.retry", Level: "ERROR"}},
			loggerNames:  []string{"bringupd.fm34.retry", "bringupd.panel.retry", "bringupd.panel.sequence"},
			expectedMatches: map[string]string{
				"bringupd.fm34.retry":     "ERROR",
				"bringupd.panel.retry":    "ERROR",
				"bringupd.panel.sequence": "INFO",
			},
		},
		{
			// Later patterns win.
			loggerConfig: []LoggerPatternConfig{
				{Pattern: "bringupd.*", Level: "DEBUG"},
				{Pattern: "bringupd.fm34", Level: "WARN"},
			},
			loggerNames:     []string{"bringupd.fm34"},
			expectedMatches: map[string]string{"bringupd.fm34": "WARN"},
		},
		{
			loggerConfig:    []LoggerPatternConfig{{Pattern: "_.*.fm34", Level: "DEBUG"}},
			loggerNames:     []string{"bringupd.fm34"},
			expectedMatches: map[string]string{"bringupd.fm34": "INFO"},
		},
		{
			loggerConfig:    []LoggerPatternConfig{{Pattern: "a.b", Level: "DEBUG"}},
			loggerNames:     []string{"a.b.c"},
			expectedMatches: map[string]string{"a.b.c": "INFO"},
		},
	}

	for _, tc := range tests {
		testRegistry := createTestRegistry(tc.loggerNames)

		err := testRegistry.Update(tc.loggerConfig, NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, verifySetLevels(testRegistry, tc.expectedMatches), test.ShouldBeTrue)
	}
}

func TestUpdateLoggerRegistryBadLevel(t *testing.T) {
	registry := createTestRegistry([]string{"bringupd.fm34"})
	err := registry.Update([]LoggerPatternConfig{{Pattern: "*", Level: "loud"}}, NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `pattern "*"`)
	test.That(t, verifySetLevels(registry, map[string]string{"bringupd.fm34": "DEBUG"}), test.ShouldBeTrue)
}

func TestRegisterAppliesCurrentConfig(t *testing.T) {
	registry := createTestRegistry(nil)
	test.That(t, registry.Update([]LoggerPatternConfig{{Pattern: "*.fm34", Level: "error"}}, NewTestLogger(t)),
		test.ShouldBeNil)

	logger := NewBlankLogger("bringupd.fm34")
	registry.register("bringupd.fm34", logger)
	test.That(t, logger.GetLevel(), test.ShouldEqual, ERROR)

	panel := NewBlankLogger("bringupd.panel")
	registry.register("bringupd.panel", panel)
	test.That(t, panel.GetLevel(), test.ShouldEqual, DEBUG)

	test.That(t, registry.deregister("bringupd.fm34"), test.ShouldBeTrue)
	test.That(t, registry.deregister("bringupd.fm34"), test.ShouldBeFalse)
}
