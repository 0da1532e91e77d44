// Package log provides a global logger with configurable logging level. Host tools raise the level
// with -debug; the authenticator itself only emits per-slot diagnostics.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelNone    Level = iota // Disables logging.
	LevelError                // Logs anomalies that should never happen, such as a corrupted registry.
	LevelWarning              // Logs rejected firmware images.
	LevelInfo                 // Logs verification outcomes.
	LevelDebug                // Logs per-slot signer diagnostics.
)

var (
	globalLogLevel Level
	output         io.Writer = os.Stderr
	logMutex       sync.Mutex
)

var labels = map[Level]string{
	LevelDebug:   "[debug]",
	LevelInfo:    "[info ]",
	LevelWarning: "[warn ]",
	LevelError:   "[error]",
}

var levelsByName = map[string]Level{
	"none":    LevelNone,
	"error":   LevelError,
	"warning": LevelWarning,
	"warn":    LevelWarning,
	"info":    LevelInfo,
	"debug":   LevelDebug,
}

// ParseLevel converts a case-insensitive level name (e.g., "debug") into a Level.
func ParseLevel(name string) (Level, error) {
	if level, ok := levelsByName[strings.ToLower(name)]; ok {
		return level, nil
	}
	return LevelNone, fmt.Errorf("unknown log level '%s'", name)
}

// LevelName returns the name ParseLevel accepts for level.
func LevelName(level Level) string {
	switch level {
	case LevelNone:
		return "none"
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	}
	return fmt.Sprintf("Level(%d)", int(level))
}

func SetLevel(level Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	globalLogLevel = level
}

// SetOutput redirects log messages to w and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	logMutex.Lock()
	defer logMutex.Unlock()
	previous := output
	output = w
	return previous
}

func log(level Level, format string, a ...interface{}) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if level > globalLogLevel {
		return
	}
	msg := fmt.Sprintf("%s %s ", time.Now().Format(time.RFC3339), labels[level])
	msg += fmt.Sprintf(format, a...)
	fmt.Fprintln(output, msg)
}

func Debug(format string, a ...interface{}) {
	log(LevelDebug, format, a...)
}
func Info(format string, a ...interface{}) {
	log(LevelInfo, format, a...)
}
func Warning(format string, a ...interface{}) {
	log(LevelWarning, format, a...)
}
func Error(format string, a ...interface{}) {
	log(LevelError, format, a...)
}
