package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"go.viam.com/test"
)

type registerWrite struct {
	Addr  uint16
	Val   uint16
	index int
}

type busTarget struct {
	Bus  string
	Addr byte
}

type writeOnBus struct {
	attempt int
	Target  busTarget
	Write   registerWrite
}

// assertLogMatches will fuzzy match log lines. Notably, this checks the time format, but ignores
// the exact time. And it expects a match on the filename, but the exact line number can be wrong.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualTrimmed := strings.TrimSuffix(output, "\n")
	actualParts := strings.Split(actualTrimmed, "\t")
	expectedParts := strings.Split(expected, "\t")
	// Use the length of the first string as a weak verification of checking that the result looks like a date.
	test.That(t, len(actualParts[0]), test.ShouldEqual, len(expectedParts[0]))
	// Log level.
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])

	// Filename:line_number.
	actualFilename, actualLineNumber, found := strings.Cut(actualParts[2], ":")
	test.That(t, found, test.ShouldBeTrue)
	// Verify the filename matches exactly.
	expectedFilename, _, found := strings.Cut(expectedParts[2], ":")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)
	// Verify the line number is in fact a number, but no more.
	_, err = strconv.Atoi(actualLineNumber)
	test.That(t, err, test.ShouldBeNil)

	// Log message.
	test.That(t, actualParts[3], test.ShouldEqual, expectedParts[3])

	// Structured logging with the "w" API. E.g: `Debugw` has an extra tab delimited output.
	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))
	if len(actualParts) == 4 {
		return
	}

	// JSON encoding of maps can be unpredictable because map iteration order can change between
	// runs. Parse the output into maps and assert on map equality.
	expectedMap := make(map[string]any)
	err = json.Unmarshal([]byte(expectedParts[4]), &expectedMap)
	test.That(t, err, test.ShouldBeNil)

	actualMap := make(map[string]any)
	err = json.Unmarshal([]byte(actualParts[4]), &actualMap)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, actualMap, test.ShouldResemble, expectedMap)
}

func TestConsoleOutputFormat(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := &impl{
		name:      "",
		level:     NewAtomicLevelAt(DEBUG),
		inUTC:     false,
		appenders: []Appender{NewWriterAppender(notStdout)},
	}

	logger.Info("bridge configured")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459-0400	INFO	logging/impl_test.go:67	bridge configured`)

	logger.Infof("selected %s table", "hydis")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:45:20.764-0400	INFO	logging/impl_test.go:131	selected hydis table`)

	logger.Warnw("i2c write failed", "attempt", 2, "max", 5)
	assertLogMatches(t, notStdout,
		`2023-10-30T13:19:45.806-0400	WARN	logging/impl_test.go:132	i2c write failed	{"attempt":2,"max":5}`)

	// Only exported fields are serialized.
	logger.Infow("write", "entry", registerWrite{Addr: 0x0002, Val: 0x0001, index: 3})
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129-0400	INFO	logging/impl_test.go:121	write	{"entry":{"Addr":2,"Val":1}}`)

	logger.Debugw("nested", "key", "val", "w", writeOnBus{1, busTarget{"0", 0x07}, registerWrite{Addr: 4}})
	//nolint:lll
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129-0400	DEBUG	logging/impl_test.go:123	nested	{"w":{"Target":{"Bus":"0","Addr":7},"Write":{"Addr":4,"Val":0}},"key":"val"}`)

	logger.Infow("unpaired", "dangling")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129-0400	INFO	logging/impl_test.go:125	unpaired	{"dangling":"unpaired log key"}`)
}

func TestLevelFiltering(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := &impl{
		name:      "",
		level:     NewAtomicLevelAt(WARN),
		inUTC:     true,
		appenders: []Appender{NewWriterAppender(notStdout)},
	}

	logger.Info("dropped")
	logger.Debugf("dropped %d", 1)
	test.That(t, notStdout.Len(), test.ShouldEqual, 0)

	logger.Error("kept")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459-0400	ERROR	logging/impl_test.go:1	kept`)

	// A traced context bypasses the level and tags the line.
	ctx := WithTrace(context.Background(), "reconfigure")
	test.That(t, TraceTag(ctx), test.ShouldEqual, "reconfigure")
	logger.CDebugf(ctx, "fm34 probe %#x", 0xc0)
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459-0400	DEBUG	logging/impl_test.go:1	fm34 probe 0xc0	{"trace":"reconfigure"}`)
	logger.CDebugw(context.Background(), "dropped")
	test.That(t, notStdout.Len(), test.ShouldEqual, 0)
	test.That(t, TraceTag(WithTrace(context.Background(), "")), test.ShouldHaveLength, 6)

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
}

func TestSubloggerNames(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	sub := logger.Sublogger("fm34").Sublogger("retry")
	sub.Warnw("write failed", "attempt", 1)

	entries := observed.All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "fm34.retry")
	test.That(t, entries[0].ContextMap()["attempt"], test.ShouldEqual, int64(1))
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"error"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, ERROR)
	out, err := json.Marshal(WARN)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"Warn"`)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bringupd.log")
	appender := NewFileAppender(path)
	logger := NewBlankLogger("bringupd")
	logger.AddAppender(appender)

	logger.Infow("configured", "device", "fm34")
	test.That(t, appender.Close(), test.ShouldBeNil)

	//nolint:gosec
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "INFO\tbringupd")
	test.That(t, string(data), test.ShouldContainSubstring, "configured")
	test.That(t, string(data), test.ShouldContainSubstring, `{"device":"fm34"}`)
}
