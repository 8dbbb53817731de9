package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is a simple leveled logger. The dashboard owns the terminal, so the
// default sink discards output until Init or SetOutput points it somewhere.
type Logger struct {
	mu     sync.Mutex
	level  Level
	output io.Writer
	file   *os.File
}

var defaultLogger = &Logger{
	level:  LevelInfo,
	output: io.Discard,
}

// Init opens the daily log file under ~/.vulndash/logs. With toFile false
// logs go to stderr, which is what non-interactive commands want.
func Init(toFile bool) error {
	if !toFile {
		SetOutput(os.Stderr)
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	logDir := filepath.Join(home, ".vulndash", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	logFile := filepath.Join(logDir, fmt.Sprintf("vulndash-%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	defaultLogger.mu.Lock()
	defaultLogger.file = f
	defaultLogger.output = f
	defaultLogger.mu.Unlock()
	return nil
}

// Close closes the log file
func Close() {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	if defaultLogger.file != nil {
		defaultLogger.file.Close()
		defaultLogger.file = nil
		defaultLogger.output = io.Discard
	}
}

// SetOutput redirects log output
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.output = w
}

// SetLevel sets the log level
func SetLevel(level Level) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.level = level
}

// SetLevelFromString sets log level from string
func SetLevelFromString(level string) {
	switch level {
	case "debug":
		SetLevel(LevelDebug)
	case "info":
		SetLevel(LevelInfo)
	case "warn":
		SetLevel(LevelWarn)
	case "error":
		SetLevel(LevelError)
	}
}

func log(level Level, prefix, format string, args ...interface{}) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	if level < defaultLogger.level {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(defaultLogger.output, "[%s] %s %s\n", timestamp, prefix, msg)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	log(LevelDebug, "DEBUG", format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	log(LevelInfo, "INFO ", format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	log(LevelWarn, "WARN ", format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	log(LevelError, "ERROR", format, args...)
}
