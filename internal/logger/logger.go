// Package logger provides structured logging with file rotation support.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// asyncWriter wraps an io.Writer to make writes non-blocking.
// If the underlying writer blocks (e.g., Windows cmd Quick Edit mode),
// the caller's Write returns immediately. Messages are buffered and
// delivered by a background goroutine. If the buffer is full, messages are dropped.
type asyncWriter struct {
	ch     chan []byte
	w      io.Writer
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func newAsyncWriter(w io.Writer, bufSize int) *asyncWriter {
	aw := &asyncWriter{
		ch:   make(chan []byte, bufSize),
		w:    w,
		done: make(chan struct{}),
	}
	go aw.drain()
	return aw
}

func (aw *asyncWriter) Write(p []byte) (int, error) {
	aw.mu.RLock()
	defer aw.mu.RUnlock()
	if aw.closed {
		return len(p), nil // Silently discard after Close
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case aw.ch <- cp:
	default:
		// Drop if buffer full - prevents blocking the caller
	}
	return len(p), nil
}

func (aw *asyncWriter) drain() {
	defer close(aw.done)
	for p := range aw.ch {
		aw.w.Write(p)
	}
}

func (aw *asyncWriter) Close() {
	aw.once.Do(func() {
		aw.mu.Lock()
		aw.closed = true
		aw.mu.Unlock()
		close(aw.ch)
		<-aw.done // Wait for drain to finish
	})
}

// Output formats for the log file.
const (
	FormatJSON  = "json"
	FormatFixed = "fixed"
)

// Config holds the logger configuration.
type Config struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	Format     string `json:"Format"` // "json" (default) or "fixed"
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		FilePath:   "log/WorkService/workservice.log",
		Format:     FormatJSON,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
		Console:    true,
	}
}

var (
	mu               sync.Mutex
	globalLogger     = zerolog.Nop()
	prevFileWriter   io.Closer    // Previous file writer to close on re-init
	prevConsoleAsync *asyncWriter // Previous async console writer to close on re-init
	serviceMode      atomic.Bool
)

// SetServiceMode suppresses console output. Under a service supervisor there
// is no console, and writes to the detached stdout handle may fail or block.
func SetServiceMode(enabled bool) {
	serviceMode.Store(enabled)
}

// Init initializes the global logger with the given configuration.
// It may be called again to apply a reloaded configuration.
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	mu.Lock()
	defer mu.Unlock()

	// Close previous writers from prior Init call (hot reload)
	if prevFileWriter != nil {
		prevFileWriter.Close()
		prevFileWriter = nil
	}
	if prevConsoleAsync != nil {
		prevConsoleAsync.Close()
		prevConsoleAsync = nil
	}

	var writers []io.Writer

	// File output with rotation
	if cfg.FilePath != "" {
		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		prevFileWriter = fileWriter

		if strings.EqualFold(cfg.Format, FormatFixed) {
			writers = append(writers, NewFixedFormatWriter(fileWriter))
		} else {
			writers = append(writers, fileWriter)
		}
	}

	// Console output (async to prevent stdout blocking from cascading to file writes)
	if cfg.Console && !serviceMode.Load() {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		aw := newAsyncWriter(consoleWriter, 1000)
		prevConsoleAsync = aw
		writers = append(writers, aw)
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		if serviceMode.Load() {
			output = io.Discard
		} else {
			output = os.Stdout
		}
	case 1:
		output = writers[0]
	default:
		output = zerolog.MultiLevelWriter(writers...)
	}

	globalLogger = zerolog.New(output).With().Timestamp().Caller().Logger()
	return nil
}

// Close flushes and releases the writers opened by Init.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if prevConsoleAsync != nil {
		prevConsoleAsync.Close()
		prevConsoleAsync = nil
	}
	if prevFileWriter != nil {
		prevFileWriter.Close()
		prevFileWriter = nil
	}
	globalLogger = zerolog.Nop()
}

func current() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger
}

// Debug logs a debug message.
func Debug() *zerolog.Event {
	l := current()
	return l.Debug()
}

// Info logs an info message.
func Info() *zerolog.Event {
	l := current()
	return l.Info()
}

// Warn logs a warning message.
func Warn() *zerolog.Event {
	l := current()
	return l.Warn()
}

// Error logs an error message.
func Error() *zerolog.Event {
	l := current()
	return l.Error()
}

// WithComponent returns a logger with component field.
func WithComponent(component string) zerolog.Logger {
	return current().With().Str("component", component).Logger()
}
