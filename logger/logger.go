// logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// ParseLevel maps a level name to a LogLevel. Unknown names fall back to INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

type Logger struct {
	loggers        [4]*log.Logger
	loggersNoColor [4]*log.Logger
	file           *os.File
	consoleOutput  io.Writer
	fileOutput     io.Writer
	minLevel       LogLevel
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// ensureInitialized creates a default logger if one doesn't exist
func ensureInitialized() {
	mu.RLock()
	ready := defaultLogger != nil
	mu.RUnlock()
	if ready {
		return
	}

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = &Logger{
			consoleOutput: os.Stdout,
			minLevel:      DEBUG,
		}
		defaultLogger.setupLoggers()
	}
}

// Init initializes the logger with optional file and console output
// If filename is empty, logs only to console
// If console is false, logs only to file
func Init(filename string, console bool) error {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
	}

	next := &Logger{minLevel: DEBUG}

	if filename != "" {
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		next.file = file
		next.fileOutput = file
	}

	if console {
		next.consoleOutput = os.Stdout
	}

	if next.fileOutput == nil && next.consoleOutput == nil {
		return fmt.Errorf("no output destination specified")
	}

	next.setupLoggers()
	defaultLogger = next
	return nil
}

// SetOutput redirects console output, mostly for tests.
func SetOutput(w io.Writer) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.consoleOutput = w
	defaultLogger.setupLoggers()
}

// SetLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR)
// Messages below this level will not be logged
func SetLevel(level LogLevel) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.minLevel = level
}

func (l *Logger) setupLoggers() {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	prefixes := [4]string{"[DEBUG] ", "[INFO]  ", "[WARN]  ", "[ERROR] "}
	colors := [4]string{colorGray, colorReset, colorYellow, colorRed}

	for i := range prefixes {
		l.loggers[i] = nil
		l.loggersNoColor[i] = nil
		if l.consoleOutput != nil {
			l.loggers[i] = log.New(l.consoleOutput, colors[i]+prefixes[i]+colorReset, flags)
		}
		if l.fileOutput != nil {
			l.loggersNoColor[i] = log.New(l.fileOutput, prefixes[i], flags)
		}
	}
}

// Close closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
		defaultLogger.file = nil
		defaultLogger.fileOutput = nil
		defaultLogger.setupLoggers()
	}
}

// output writes msg at level. depth is the caller depth handed to log.Logger.Output.
func output(level LogLevel, depth int, msg string) {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()

	l := defaultLogger
	if level < l.minLevel {
		return
	}
	if c := l.loggers[level]; c != nil {
		c.Output(depth, msg)
	}
	if f := l.loggersNoColor[level]; f != nil {
		f.Output(depth, msg)
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) { output(DEBUG, 3, fmt.Sprint(v...)) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { output(DEBUG, 3, fmt.Sprintf(format, v...)) }

// Info logs an info message
func Info(v ...interface{}) { output(INFO, 3, fmt.Sprint(v...)) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { output(INFO, 3, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...interface{}) { output(WARN, 3, fmt.Sprint(v...)) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { output(WARN, 3, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...interface{}) { output(ERROR, 3, fmt.Sprint(v...)) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { output(ERROR, 3, fmt.Sprintf(format, v...)) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	output(ERROR, 3, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	output(ERROR, 3, fmt.Sprintf(format, v...))
	os.Exit(1)
}
