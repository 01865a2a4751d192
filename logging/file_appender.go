package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileAppender writes the same lines as a ConsoleAppender to a file that is rotated by size.
type FileAppender struct {
	ConsoleAppender
	file *lumberjack.Logger
}

// NewFileAppender returns an appender writing to filename. The file is rotated at 10 MB and three
// compressed backups are kept.
func NewFileAppender(filename string) *FileAppender {
	file := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   true,
	}
	return &FileAppender{ConsoleAppender: NewWriterAppender(file), file: file}
}

// Close closes the current file.
func (fa *FileAppender) Close() error {
	return fa.file.Close()
}
