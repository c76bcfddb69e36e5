package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogType represents the type of log message
type LogType string

const (
	UserLog LogType = "user"
	OpLog   LogType = "op"
)

// UnifiedLogger wraps the logrus logger shared by User and Op
type UnifiedLogger struct {
	mu     sync.RWMutex
	logger *logrus.Logger
}

var (
	unifiedLog *UnifiedLogger
	once       sync.Once
)

// GetLogger returns the global logger instance, initializing it if necessary
func GetLogger() *UnifiedLogger {
	once.Do(func() {
		initDefaultLogger()
	})
	return unifiedLog
}

func initDefaultLogger() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&CLIFormatter{
		DisableTimestamp: true,
		DisableLevel:     true,
	})

	unifiedLog = &UnifiedLogger{
		logger: logger,
	}
}

// Configure updates the logger configuration
func (l *UnifiedLogger) Configure(output io.Writer, level logrus.Level, formatter logrus.Formatter) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.SetOutput(output)
	l.logger.SetLevel(level)
	l.logger.SetFormatter(formatter)
}

// ReplaceHooks drops every registered hook and installs the given ones
func (l *UnifiedLogger) ReplaceHooks(hooks ...logrus.Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()

	levelHooks := make(logrus.LevelHooks)
	for _, hook := range hooks {
		levelHooks.Add(hook)
	}
	l.logger.ReplaceHooks(levelHooks)
}

// GetInternalLogger returns the underlying logrus logger (use with caution)
func (l *UnifiedLogger) GetInternalLogger() *logrus.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logger
}

// IsDebug reports whether debug level logs are emitted
func (l *UnifiedLogger) IsDebug() bool {
	return l.GetInternalLogger().IsLevelEnabled(logrus.DebugLevel)
}
