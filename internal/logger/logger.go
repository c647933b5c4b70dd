// Package logger provides a dual file+console sink, gated by severity
// level, adapted from the teacher's internal/logger/logger.go Logger.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Level lists supported log severities.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// Logger writes to file plus console.
type Logger struct {
	mu          sync.Mutex
	fileLogger  *log.Logger
	consoleLog  *log.Logger
	level       Level
	logFile     *os.File
	logFilePath string
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init creates the global logger. If a log file with the same name
// already exists from a previous run, it is compressed to "<name>.log.zst"
// before the new one is opened, so a restart does not silently discard
// prior diagnostics.
func Init(logDir string, level Level, logFileName string) error {
	var initErr error
	once.Do(func() {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}

		if logFileName == "" {
			logFileName = "redisd"
		}
		logFilePath := filepath.Join(logDir, fmt.Sprintf("%s.log", logFileName))

		if err := compressExisting(logFilePath); err != nil {
			initErr = fmt.Errorf("failed to archive previous log file: %w", err)
			return
		}

		logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			initErr = fmt.Errorf("failed to open log file: %w", err)
			return
		}

		fileLogger := log.New(logFile, "", 0)
		consoleLog := log.New(os.Stdout, "", 0)

		defaultLogger = &Logger{
			fileLogger:  fileLogger,
			consoleLog:  consoleLog,
			level:       level,
			logFile:     logFile,
			logFilePath: logFilePath,
		}
	})
	return initErr
}

// compressExisting zstd-compresses a pre-existing log file at path into
// "<path>.zst" and removes the original. A missing file is not an error.
func compressExisting(path string) error {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".zst")
	if err != nil {
		return err
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}

// Close shuts down the log file.
func Close() error {
	if defaultLogger != nil && defaultLogger.logFile != nil {
		return defaultLogger.logFile.Close()
	}
	return nil
}

// GetLogFilePath returns the backing log file path.
func GetLogFilePath() string {
	if defaultLogger != nil {
		return defaultLogger.logFilePath
	}
	return ""
}

func formatMessage(level Level, format string, args ...interface{}) string {
	timestamp := time.Now().Format("2006/01/02 15:04:05")
	levelStr := levelNames[level]
	message := fmt.Sprintf(format, args...)
	return fmt.Sprintf("%s [%s] %s", timestamp, levelStr, message)
}

func logToFile(level Level, format string, args ...interface{}) {
	if defaultLogger == nil {
		return
	}
	if level < defaultLogger.level {
		return
	}
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.fileLogger.Println(formatMessage(level, format, args...))
}

func logToConsole(format string, args ...interface{}) {
	if defaultLogger == nil {
		fmt.Printf(format+"\n", args...)
		return
	}
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	timestamp := time.Now().Format("2006/01/02 15:04:05")
	message := fmt.Sprintf(format, args...)
	defaultLogger.consoleLog.Printf("%s [redisd] %s", timestamp, message)
}

func logToBoth(level Level, format string, args ...interface{}) {
	logToFile(level, format, args...)
	logToConsole(format, args...)
}

// Debug logs debug messages (file only).
func Debug(format string, args ...interface{}) { logToFile(DEBUG, format, args...) }

// Info logs info messages (file only).
func Info(format string, args ...interface{}) { logToFile(INFO, format, args...) }

// Warn logs warnings (file + console).
func Warn(format string, args ...interface{}) { logToBoth(WARN, format, args...) }

// Error logs errors (file + console).
func Error(format string, args ...interface{}) { logToBoth(ERROR, format, args...) }

// Printf mimics log.Printf (file + console).
func Printf(format string, args ...interface{}) { logToBoth(INFO, format, args...) }

// Println mimics log.Println (file + console).
func Println(args ...interface{}) {
	logToBoth(INFO, "%s", fmt.Sprint(args...))
}

// Writer returns an io.Writer compatible with the standard log package.
func Writer() io.Writer {
	if defaultLogger != nil {
		return defaultLogger.logFile
	}
	return os.Stdout
}
