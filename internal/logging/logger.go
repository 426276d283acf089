/**
 * Leveled key-value logging for the Annotation Worker
 *
 * Thin wrapper over the stdlib logger. Each subsystem creates its own
 * prefixed logger; debug output is gated behind the DEBUG environment
 * variable so production logs stay at info and above.
 */

package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger writes leveled, prefixed key-value log lines
type Logger struct {
	prefix string
	logger *log.Logger
	debug  bool
}

// NewLogger creates a logger for one subsystem
func NewLogger(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		logger: log.New(os.Stdout, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
		debug:  os.Getenv("DEBUG") != "",
	}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.write("INFO", msg, keysAndValues)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.write("WARN", msg, keysAndValues)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.write("ERROR", msg, keysAndValues)
}

// Debug logs a debug message; suppressed unless DEBUG is set
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	if !l.debug {
		return
	}
	l.write("DEBUG", msg, keysAndValues)
}

func (l *Logger) write(level, msg string, keysAndValues []interface{}) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", level, msg))
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		b.WriteString(fmt.Sprintf(" %v=%v", keysAndValues[i], keysAndValues[i+1]))
	}
	l.logger.Print(b.String())
}
