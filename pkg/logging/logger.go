package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides component-scoped debug logging for scout.
// All components of one process write to a shared, rotated file in ~/.scout/logs/
// (or $SCOUT_LOG_DIR).
type Logger struct {
	sugar     *zap.SugaredLogger
	writer    io.Writer
	sessionID string
	component string
	logPath   string
	closeOnce sync.Once
}

var (
	// Global session ID for the current process
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	initOnce sync.Once
	initErr  error

	// sink is the rotated log file shared by every component logger
	sink     *lumberjack.Logger
	sinkOnce sync.Once
)

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			if dir := os.Getenv("SCOUT_LOG_DIR"); dir != "" {
				logDir = dir
			} else {
				homeDir, err := os.UserHomeDir()
				if err != nil {
					initErr = fmt.Errorf("failed to get home directory: %w", err)
					return
				}
				logDir = filepath.Join(homeDir, ".scout", "logs")
			}
		}
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

func sessionSink() *lumberjack.Logger {
	sinkOnce.Do(func() {
		sink = &lumberjack.Logger{
			Filename:   filepath.Join(logDir, fmt.Sprintf("%s-scout.log", getSessionID())),
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	})
	return sink
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "component",
		MessageKey:       "msg",
		ConsoleSeparator: " ",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.Format("2006-01-02 15:04:05.000") + "]")
		},
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + l.CapitalString() + "]")
		},
		EncodeName: func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + name + "]")
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// level is debug when SCOUT_DEBUG is set, info otherwise.
func level() zapcore.Level {
	if os.Getenv("SCOUT_DEBUG") != "" {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// NewLogger creates a new logger for a specific component.
// The logger writes to <log dir>/<session-id>-scout.log.
//
// If the log directory cannot be created it returns a fallback logger that
// writes to stderr along with the error, so callers can detect fallback mode.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	file := sessionSink()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(file), level())

	return &Logger{
		sugar:     zap.New(core).Named(component).Sugar(),
		writer:    file,
		sessionID: getSessionID(),
		component: component,
		logPath:   file.Filename,
	}, nil
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, err error) *Logger {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stderr), level())
	sugar := zap.New(core).Named(component).Sugar()
	sugar.Warnf("failed to initialize file logging, falling back to stderr: %v", err)

	return &Logger{
		sugar:     sugar,
		writer:    os.Stderr,
		sessionID: getSessionID(),
		component: component,
	}
}

// Printf logs a formatted message at info level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// With returns a child logger that adds key/value context to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		sugar:     l.sugar.With(keysAndValues...),
		writer:    l.writer,
		sessionID: l.sessionID,
		component: l.component,
		logPath:   l.logPath,
	}
}

// Writer returns the io.Writer this logger ultimately writes to
func (l *Logger) Writer() io.Writer {
	return l.writer
}

// SessionID returns the process session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file, empty in fallback mode
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close flushes buffered entries. The shared file is reopened on the next
// write by any other component, so closing one logger never silences another.
// Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		_ = l.sugar.Sync()
		if c, ok := l.writer.(io.Closer); ok && l.writer != io.Writer(os.Stderr) {
			err = c.Close()
		}
	})
	return err
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
