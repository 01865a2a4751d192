package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the timestamp layout of every text line.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is where a logger writes its entries. zapcore.Core satisfies it.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync flushes buffered lines, e.g. at shutdown.
	Sync() error
}

// ConsoleAppender writes one tab separated line per entry.
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender writes to stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewWriterAppender writes to w.
func NewWriterAppender(w io.Writer) ConsoleAppender {
	return ConsoleAppender{w}
}

func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatLine(entry, fields)
	if _, werr := fmt.Fprintln(appender.Writer, line); werr != nil {
		return werr
	}
	return err
}

// Sync is a no-op.
func (appender ConsoleAppender) Sync() error {
	return nil
}

// formatLine renders "time LEVEL name file:line message {fields}". Fields keep their order
// because zap's JSON encoder is given an empty entry and only sees them. On an encoding error the
// line is returned without fields.
func formatLine(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	parts := []string{entry.Time.Format(DefaultTimeFormatStr), strings.ToUpper(entry.Level.String())}
	if entry.LoggerName != "" {
		parts = append(parts, entry.LoggerName)
	}
	if entry.Caller.Defined {
		parts = append(parts, entry.Caller.TrimmedPath())
	}
	parts = append(parts, entry.Message)
	if len(fields) > 0 {
		encoded, err := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true}).
			EncodeEntry(zapcore.Entry{}, fields)
		if err != nil {
			return strings.Join(parts, "\t"), err
		}
		parts = append(parts, encoded.String())
		encoded.Free()
	}
	return strings.Join(parts, "\t"), nil
}
