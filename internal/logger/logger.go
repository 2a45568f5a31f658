package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level is the logging level.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// Logger is a basic logger wrapper.
type Logger struct {
	level   Level
	logger  *log.Logger
	enabled bool
}

var globalLogger *Logger

// Init initializes the logger from the process configuration.
func Init(enabled bool, levelStr, logFile string, console bool) error {
	if !enabled {
		globalLogger = &Logger{enabled: false}
		return nil
	}

	level := parseLevel(levelStr)
	var writers []io.Writer

	if logFile != "" {
		dir := filepath.Dir(logFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
	}

	if console || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	globalLogger = &Logger{
		level:   level,
		logger:  log.New(io.MultiWriter(writers...), "", 0),
		enabled: true,
	}

	return nil
}

func parseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func formatMessage(level Level, format string, args ...interface{}) string {
	levelStr := "INFO"
	switch level {
	case Debug:
		levelStr = "DEBUG"
	case Info:
		levelStr = "INFO"
	case Warn:
		levelStr = "WARN"
	case Error:
		levelStr = "ERROR"
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	return fmt.Sprintf("[%s] [%s] %s", ts, levelStr, msg)
}

func log_(level Level, format string, args ...interface{}) {
	if globalLogger == nil || !globalLogger.enabled || globalLogger.level > level {
		return
	}
	globalLogger.logger.Println(formatMessage(level, format, args...))
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { log_(Debug, format, args...) }

// Infof logs an info message.
func Infof(format string, args ...interface{}) { log_(Info, format, args...) }

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) { log_(Warn, format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) { log_(Error, format, args...) }

// Fatalf logs an error message and terminates the process. Reserved for
// the Fatal error class of §7 (unrecoverable runtime conditions).
func Fatalf(format string, args ...interface{}) {
	log_(Error, format, args...)
	os.Exit(1)
}
