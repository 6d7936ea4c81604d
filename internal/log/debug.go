// Package log provides the leveled logger shared by every seu command.
//
// Messages go to stderr through a zerolog console writer, filtered by the
// configured level. Independently, every message at debug level or above is
// copied to a debug sink: buffered until SetFile is called, then flushed to
// the file (or discarded when no file is configured).
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DebugLogger handles debug logging to file and/or buffering.
type DebugLogger struct {
	mu      sync.Mutex
	file    *os.File
	buffer  []byte
	discard bool
}

// Write implements io.Writer.
// It writes to the file if set, otherwise appends to the buffer.
func (l *DebugLogger) Write(p []byte) (n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.discard {
		return len(p), nil
	}

	if l.file != nil {
		n, err = l.file.Write(p)
		_ = l.file.Sync()
		return n, err
	}

	// p might be reused by the caller
	b := make([]byte, len(p))
	copy(b, p)
	l.buffer = append(l.buffer, b...)
	return len(p), nil
}

// levelWriter only forwards events at or above min.
type levelWriter struct {
	w   io.Writer
	min func() zerolog.Level
}

func (lw levelWriter) Write(p []byte) (int, error) {
	return lw.w.Write(p)
}

func (lw levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < lw.min() {
		return len(p), nil
	}
	return lw.w.Write(p)
}

var (
	globalDebugLogger = &DebugLogger{}

	levelMu      sync.RWMutex
	consoleLevel = zerolog.WarnLevel

	logger zerolog.Logger
)

func init() {
	Configure(os.Stderr, false)
}

func currentLevel() zerolog.Level {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return consoleLevel
}

func debugLevel() zerolog.Level {
	return zerolog.DebugLevel
}

// Configure rebuilds the logger writing console output to out.
func Configure(out io.Writer, noColor bool) {
	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
	}
	sink := zerolog.MultiLevelWriter(
		levelWriter{w: console, min: currentLevel},
		levelWriter{w: globalDebugLogger, min: debugLevel},
	)
	logger = zerolog.New(sink).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// SetVerbose switches console output between warn (default) and debug.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(zerolog.DebugLevel)
		return
	}
	SetLevel(zerolog.WarnLevel)
}

// SetLevel sets the minimum level printed on the console.
func SetLevel(level zerolog.Level) {
	levelMu.Lock()
	defer levelMu.Unlock()
	consoleLevel = level
}

// ParseLevel converts a config value such as "info" to a level, defaulting to warn.
func ParseLevel(value string) zerolog.Level {
	level, err := zerolog.ParseLevel(value)
	if err != nil || value == "" {
		return zerolog.WarnLevel
	}
	return level
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return &logger
}

// SetFile sets the debug log file path. Creates the file if it doesn't exist.
// If path is empty, discards all buffered logs and future logs.
func SetFile(path string) error {
	globalDebugLogger.mu.Lock()
	defer globalDebugLogger.mu.Unlock()

	if globalDebugLogger.file != nil {
		_ = globalDebugLogger.file.Close()
		globalDebugLogger.file = nil
	}

	if path == "" {
		globalDebugLogger.discard = true
		globalDebugLogger.buffer = nil
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec
	if err != nil {
		globalDebugLogger.discard = true
		globalDebugLogger.buffer = nil
		return err
	}

	globalDebugLogger.file = f
	globalDebugLogger.discard = false

	if len(globalDebugLogger.buffer) > 0 {
		_, _ = f.Write(globalDebugLogger.buffer)
		_ = f.Sync()
		globalDebugLogger.buffer = nil
	}

	return nil
}

// Debugf writes a formatted debug message.
func Debugf(format string, args ...any) {
	logger.Debug().Msgf(format, args...)
}

// Printf is an alias of Debugf.
func Printf(format string, args ...any) {
	Debugf(format, args...)
}

// Infof writes a formatted info message.
func Infof(format string, args ...any) {
	logger.Info().Msgf(format, args...)
}

// Warnf writes a formatted warning.
func Warnf(format string, args ...any) {
	logger.Warn().Msgf(format, args...)
}

// Errorf writes a formatted error message.
func Errorf(format string, args ...any) {
	logger.Error().Msgf(format, args...)
}

// Close closes the debug log file if open.
func Close() error {
	globalDebugLogger.mu.Lock()
	defer globalDebugLogger.mu.Unlock()

	if globalDebugLogger.file == nil {
		return nil
	}

	err := globalDebugLogger.file.Close()
	globalDebugLogger.file = nil
	return err
}
