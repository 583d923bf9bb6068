// Package debuglog is the process-wide file logger. Nothing is written
// unless Setup is called with a level other than LevelOff, so the TUI
// keeps the terminal to itself.
package debuglog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff // Disables all logging
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown input maps to INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF", "NONE":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		// Above every level zap emits.
		return zapcore.FatalLevel + 1
	}
}

var (
	mu           sync.RWMutex
	currentLevel = LevelOff
	atom         = zap.NewAtomicLevelAt(LevelOff.zapLevel())
	logger       = zap.NewNop()
	logFile      *os.File
)

// Setup configures the logging system with the specified level and optional
// file path. If filePath is empty, defaults to ~/.lumina/lumina.log.
func Setup(level LogLevel, filePath ...string) error {
	mu.Lock()
	defer mu.Unlock()

	currentLevel = level
	atom.SetLevel(level.zapLevel())

	if logFile != nil {
		_ = logger.Sync()
		_ = logFile.Close()
		logFile = nil
	}

	if level == LevelOff {
		logger = zap.NewNop()
		return nil
	}

	var logPath string
	if len(filePath) > 0 && filePath[0] != "" {
		logPath = filePath[0]
	} else {
		home, _ := os.UserHomeDir()
		logPath = filepath.Join(home, ".lumina", "lumina.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), atom)

	logFile = f
	logger = zap.New(core).Named("lumina")
	return nil
}

func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	atom.SetLevel(level.zapLevel())
}

func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// Logger exposes the underlying zap logger for callers that want typed
// fields. It is a no-op logger until Setup enables logging.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Close flushes and closes the log file if open
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	_ = logger.Sync()
	err := logFile.Close()
	logFile = nil
	logger = zap.NewNop()
	return err
}

func sugar() *zap.SugaredLogger {
	return Logger().Sugar()
}

func Debugf(format string, args ...any) { sugar().Debugf(format, args...) }
func Infof(format string, args ...any)  { sugar().Infof(format, args...) }
func Warnf(format string, args ...any)  { sugar().Warnf(format, args...) }
func Errorf(format string, args ...any) { sugar().Errorf(format, args...) }

// FieldLogger attaches key/value context to every message.
type FieldLogger struct {
	fields []zap.Field
}

// WithFields returns a logger carrying fields. Keys are sorted so output is
// stable.
func WithFields(fields map[string]any) *FieldLogger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	zf := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	return &FieldLogger{fields: zf}
}

func (fl *FieldLogger) with() *zap.SugaredLogger {
	return Logger().With(fl.fields...).Sugar()
}

func (fl *FieldLogger) Debugf(format string, args ...any) { fl.with().Debugf(format, args...) }
func (fl *FieldLogger) Infof(format string, args ...any)  { fl.with().Infof(format, args...) }
func (fl *FieldLogger) Warnf(format string, args ...any)  { fl.with().Warnf(format, args...) }
func (fl *FieldLogger) Errorf(format string, args ...any) { fl.with().Errorf(format, args...) }
