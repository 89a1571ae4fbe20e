// Package logging implements the domain Logger as a leveled line logger.
// Output never goes to stdout, which carries the hook protocol.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ochairo/patchpilot/internal/domain/interfaces"
)

// Level represents log level
type Level int

// Log levels in increasing severity
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	styleDebug = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0C674"))
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8B545"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD93D"))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("#E05A3A"))
	styleFaint = lipgloss.NewStyle().Faint(true)
)

// ParseLevel converts a string to a Level, returning an error if unrecognized.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning", "":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
}

// Logger provides leveled logging to a single writer
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	level   Level
	colored bool
	prefix  string
	now     func() time.Time
}

// New creates a logger writing to out. Colored output is meant for terminals only.
func New(out io.Writer, level Level, colored bool) *Logger {
	return &Logger{
		out:     out,
		level:   level,
		colored: colored,
		prefix:  "patchpilot",
		now:     time.Now,
	}
}

// Open creates a logger appending to path, or to stderr when path is empty.
// The returned close function releases the file.
func Open(path string, level Level) (*Logger, func() error, error) {
	if path == "" {
		return New(os.Stderr, level, false), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	//nolint:gosec // G304: log path comes from the operator's configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(f, level, false), f.Close, nil
}

func (l *Logger) log(level Level, levelStr string, style lipgloss.Style, msg string, fields []interfaces.Field) {
	if level < l.level {
		return
	}

	var b strings.Builder
	timestamp := l.now().Format(time.RFC3339)
	if l.colored {
		b.WriteString(styleFaint.Render(timestamp))
		b.WriteString(" ")
		b.WriteString(style.Render("[" + levelStr + "]"))
		b.WriteString(" ")
		b.WriteString(styleFaint.Render("[" + l.prefix + "]"))
	} else {
		fmt.Fprintf(&b, "%s [%s] [%s]", timestamp, levelStr, l.prefix)
	}
	b.WriteString(" ")
	b.WriteString(msg)

	for _, field := range fields {
		b.WriteString(" ")
		key := field.Key + "="
		if l.colored {
			key = styleFaint.Render(key)
		}
		b.WriteString(key)
		b.WriteString(formatValue(field.Value))
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

// formatValue quotes values containing spaces so lines stay parseable
func formatValue(v interface{}) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.log(LevelDebug, "DEBUG", styleDebug, msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.log(LevelInfo, "INFO", styleInfo, msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.log(LevelWarn, "WARN", styleWarn, msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.log(LevelError, "ERROR", styleError, msg, fields)
}
