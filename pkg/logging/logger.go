// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// File, when set, additionally writes JSON logs to a size-rotated file.
	File string

	// MaxSizeMB is the rotation threshold for File.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept.
	MaxBackups int
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Pretty:     false,
		Output:     os.Stderr,
		MaxSizeMB:  50,
		MaxBackups: 3,
	}
}

// Setup configures the global zerolog logger.
// The returned closer releases the log file, if any.
func Setup(cfg Config) (zerolog.Logger, io.Closer) {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		output = zerolog.MultiLevelWriter(output, rotator)
		closer = rotator
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	log.Logger = logger

	return logger, closer
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithRunID tags every subsequent global log line with run_id.
func WithRunID(runID string) zerolog.Logger {
	log.Logger = log.With().Str("run_id", runID).Logger()
	return log.Logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Per-reference resolution
//   - Chunk dispatch and persistence scheduling
//
// Info: Normal operation events
//   - Run start/finish and summary stats
//   - Schema reset
//   - Committed batches
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts
//   - Cache errors (fallback to direct request)
//   - Invalid numeric configuration (default used)
//
// Error: Error conditions requiring attention
//   - Skipped records (malformed or transport failure)
//   - Failed batch commits
//   - Startup failures
//
// Context Fields:
//   - run_id: Identifier of one loader run
//   - person_id: Identifier from the fetch range
//   - chunk: Chunk index
//   - url: Upstream URL
//   - status_code: HTTP status code
//   - error_class: Error classification (client, server, rate_limit, network)
//   - rows: Number of rows in a batch
