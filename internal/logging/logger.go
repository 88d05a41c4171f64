package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/relalias/internal/config"
)

// Logger prints diagnostics to the console with the plugin prefix and, when
// a project log is attached, appends timestamped copies to
// .relalias/logs/relalias.log.
type Logger struct {
	mu      sync.Mutex
	prefix  string
	console io.Writer
	file    *os.File
}

// NewConsole returns a logger that writes "<prefix> - <message>" lines to w.
func NewConsole(w io.Writer, prefix string) *Logger {
	return &Logger{console: w, prefix: strings.TrimSpace(prefix)}
}

// New creates a logger writing to w and to the project log file.
func New(w io.Writer, projectDir, prefix string) (*Logger, error) {
	l := NewConsole(w, prefix)
	if err := l.Attach(projectDir); err != nil {
		return nil, err
	}
	return l, nil
}

// Attach opens (or reuses) the log file for the project directory.
func (l *Logger) Attach(projectDir string) error {
	logDir := filepath.Join(projectDir, config.Dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "relalias.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open log file: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	return nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Printf writes a single line to the console and the log file.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.console != nil {
		if l.prefix != "" {
			fmt.Fprintf(l.console, "%s - %s\n", l.prefix, line)
		} else {
			fmt.Fprintln(l.console, line)
		}
	}
	if l.file != nil {
		timestamp := time.Now().Format(time.RFC3339)
		fmt.Fprintf(l.file, "[%s] %s\n", timestamp, line)
	}
}
