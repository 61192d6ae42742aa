package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity level of log messages.
type LogLevel int

// Log level constants defining message severity.
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelTags = [...]string{"[DEBUG] ", "[INFO] ", "[WARN] ", "[ERROR] ", "[FATAL] "}

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	if l < DEBUG || l > FATAL {
		return "UNKNOWN"
	}
	return strings.Trim(levelTags[l], "[] ")
}

// ParseLogLevel converts a string log level to its LogLevel constant.
// Unrecognized values default to INFO.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Logger provides level-filtered logging with rotation, writing to both
// stdout and a rotating log file.
type Logger struct {
	out   *log.Logger
	level LogLevel
	mu    sync.RWMutex
}

var instance *Logger
var once sync.Once

// Init initializes the global logger instance with default configuration at INFO level.
func Init(logPath string) {
	once.Do(func() {
		instance = NewLogger(logPath, INFO)
	})
}

// InitWithConfig initializes the global logger instance with custom log rotation configuration.
func InitWithConfig(logPath string, level LogLevel, maxSize, maxBackups, maxAge int, compress bool) {
	once.Do(func() {
		instance = NewLoggerWithConfig(logPath, level, maxSize, maxBackups, maxAge, compress)
	})
}

// NewLogger creates a new logger instance with default log rotation settings.
func NewLogger(logPath string, level LogLevel) *Logger {
	return NewLoggerWithConfig(logPath, level, 10, 3, 28, true)
}

// NewLoggerWithConfig creates a new logger instance with custom log rotation configuration.
func NewLoggerWithConfig(logPath string, level LogLevel, maxSize, maxBackups, maxAge int, compress bool) *Logger {
	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("cannot create directory log: %v", err)
	}

	if err := os.Chmod(dir, 0755); err != nil {
		log.Fatalf("cannot set privilege directory log: %v", err)
	}

	logFile := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   compress,
	}

	return &Logger{
		out:   log.New(io.MultiWriter(os.Stdout, logFile), "", log.LstdFlags|log.Lshortfile),
		level: level,
	}
}

// SetLevel changes the minimum log level for filtering messages.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current minimum log level.
func (l *Logger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// write emits one record when the level passes the filter. calldepth is
// relative to the caller of the exported method so Lshortfile points at
// application code.
func (l *Logger) write(level LogLevel, msg string) {
	l.mu.RLock()
	enabled := level >= l.level
	l.mu.RUnlock()
	if !enabled {
		return
	}
	l.out.Output(3, levelTags[level]+msg)
	if level == FATAL {
		os.Exit(1)
	}
}

// Debug logs a debug-level message.
func (l *Logger) Debug(v ...interface{}) { l.write(DEBUG, fmt.Sprint(v...)) }

// Debugf logs a formatted debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.write(DEBUG, fmt.Sprintf(format, v...)) }

// Info logs an info-level message.
func (l *Logger) Info(v ...interface{}) { l.write(INFO, fmt.Sprint(v...)) }

// Infof logs a formatted info-level message.
func (l *Logger) Infof(format string, v ...interface{}) { l.write(INFO, fmt.Sprintf(format, v...)) }

// Warn logs a warning-level message.
func (l *Logger) Warn(v ...interface{}) { l.write(WARN, fmt.Sprint(v...)) }

// Warnf logs a formatted warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.write(WARN, fmt.Sprintf(format, v...)) }

// Error logs an error-level message.
func (l *Logger) Error(v ...interface{}) { l.write(ERROR, fmt.Sprint(v...)) }

// Errorf logs a formatted error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.write(ERROR, fmt.Sprintf(format, v...)) }

// Fatal logs a fatal-level message and exits the program.
func (l *Logger) Fatal(v ...interface{}) { l.write(FATAL, fmt.Sprint(v...)) }

// Fatalf logs a formatted fatal-level message and exits the program.
func (l *Logger) Fatalf(format string, v ...interface{}) { l.write(FATAL, fmt.Sprintf(format, v...)) }

// Global convenience functions

// Debugf logs a formatted debug-level message using the global logger instance.
func Debugf(format string, v ...interface{}) {
	if instance != nil {
		instance.Debugf(format, v...)
	}
}

// Infof logs a formatted info-level message using the global logger instance.
func Infof(format string, v ...interface{}) {
	if instance != nil {
		instance.Infof(format, v...)
	}
}

// Warnf logs a formatted warning-level message using the global logger instance.
func Warnf(format string, v ...interface{}) {
	if instance != nil {
		instance.Warnf(format, v...)
	}
}

// Errorf logs a formatted error-level message using the global logger instance.
func Errorf(format string, v ...interface{}) {
	if instance != nil {
		instance.Errorf(format, v...)
	}
}

// Fatalf logs a formatted fatal-level message and exits the program using the global logger instance.
func Fatalf(format string, v ...interface{}) {
	if instance != nil {
		instance.Fatalf(format, v...)
	}
}

// SetLevel changes the minimum log level for the global logger instance.
func SetLevel(level LogLevel) {
	if instance != nil {
		instance.SetLevel(level)
	}
}

// GetLevel returns the current minimum log level of the global logger instance.
func GetLevel() LogLevel {
	if instance != nil {
		return instance.GetLevel()
	}
	return INFO
}
