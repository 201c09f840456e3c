package attack

import (
	"fmt"
	"log"
	"os"
)

// Logger provides the engine's leveled logging. The zero-value-style
// silent logger keeps tests quiet; NewLogger writes to stdout.
type Logger struct {
	debug  bool
	logger *log.Logger
	silent bool
}

// NewLogger creates a stdout logger; debug enables Debug output.
func NewLogger(debug bool) *Logger {
	return &Logger{debug: debug, logger: log.New(os.Stdout, "", log.LstdFlags)}
}

// NewSilentLogger creates a logger that discards everything.
func NewSilentLogger() *Logger {
	return &Logger{silent: true}
}

// Debug logs debug messages when enabled.
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.debug {
		l.log("DEBUG", format, v...)
	}
}

// Info logs informational messages.
func (l *Logger) Info(format string, v ...interface{}) {
	l.log("INFO", format, v...)
}

// Warn logs warnings.
func (l *Logger) Warn(format string, v ...interface{}) {
	l.log("WARN", format, v...)
}

// Error logs errors.
func (l *Logger) Error(format string, v ...interface{}) {
	l.log("ERROR", format, v...)
}

func (l *Logger) log(level, format string, v ...interface{}) {
	if l.silent || l.logger == nil {
		return
	}
	l.logger.Printf("[%s] %s", level, fmt.Sprintf(format, v...))
}
