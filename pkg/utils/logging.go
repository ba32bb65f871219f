package utils

import (
	"io"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/discard"
)

// NewLogger creates a leveled logger writing human readable lines to w.
// Verbose mode enables debug output.
func NewLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return &log.Logger{
		Handler: cli.New(w),
		Level:   level,
	}
}

// NewDiscardLogger creates a logger that drops every entry
func NewDiscardLogger() *log.Logger {
	return &log.Logger{
		Handler: discard.New(),
		Level:   log.FatalLevel,
	}
}

// LoggerOrDiscard returns logger, or a discarding logger when logger is nil
func LoggerOrDiscard(logger log.Interface) log.Interface {
	if logger == nil {
		return NewDiscardLogger()
	}
	return logger
}
