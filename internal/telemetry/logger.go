// Package telemetry builds the structured logger shared by every command.
package telemetry

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	// Debug lowers the level to debug.
	Debug bool
	// Quiet limits the console sink to warnings and errors. The log file
	// still receives every entry at the configured level.
	Quiet bool
	// File, when set, receives a copy of every entry and is rotated.
	File string
	// Output replaces stderr as the console sink. Tests use it.
	Output io.Writer
}

// NewLogger creates a JSON logger writing to stderr and, when a log file is
// configured, to a size-rotated file.
func NewLogger(opts Options) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level := logrus.InfoLevel
	if opts.Debug {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	var console io.Writer = os.Stderr
	if opts.Output != nil {
		console = opts.Output
	}

	if !opts.Quiet && opts.File == "" {
		logger.SetOutput(console)
		return logger
	}

	// Sinks with different levels are hooks; the logger output itself is
	// discarded.
	logger.SetOutput(io.Discard)
	consoleLevel := level
	if opts.Quiet {
		consoleLevel = logrus.WarnLevel
	}
	logger.AddHook(newSinkHook(console, consoleLevel))
	if opts.File != "" {
		logger.AddHook(newSinkHook(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}, level))
	}
	return logger
}

// sinkHook writes formatted entries at or above a level to one writer.
type sinkHook struct {
	mu        sync.Mutex
	out       io.Writer
	levels    []logrus.Level
	formatter logrus.Formatter
}

func newSinkHook(out io.Writer, threshold logrus.Level) *sinkHook {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= threshold {
			levels = append(levels, l)
		}
	}
	return &sinkHook{out: out, levels: levels, formatter: &logrus.JSONFormatter{}}
}

func (h *sinkHook) Levels() []logrus.Level { return h.levels }

func (h *sinkHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.out.Write(line)
	return err
}

// Discard returns a logger that drops everything. Components fall back to it
// when no logger is injected.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
