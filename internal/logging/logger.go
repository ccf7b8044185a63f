package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"
)

const (
	DefaultMaxLogs  = 10
	DefaultCrashDir = "/app/logs/crash/"
)

type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	logs     []string
	logIndex int
	maxLogs  int
	crashDir string
}

var instance *Logger
var once sync.Once

// Intializes the static logger, which remembers the last maxLogs lines for crash reports.
// Only the first call has an effect.
func InitLogger(maxLogs int, crashDir string) {
	once.Do(func() {
		instance = NewLogger(os.Stdout, maxLogs, crashDir)
	})
}

// Singleton accessor. Falls back to the defaults when InitLogger was never called.
func GetLogger() *Logger {
	InitLogger(DefaultMaxLogs, DefaultCrashDir)
	return instance
}

func NewLogger(out io.Writer, maxLogs int, crashDir string) *Logger {
	if maxLogs <= 0 {
		maxLogs = DefaultMaxLogs
	}
	return &Logger{
		out:      out,
		logs:     make([]string, maxLogs),
		maxLogs:  maxLogs,
		crashDir: crashDir,
	}
}

// Log something to the output in the 2006-01-02 15:04:05 format
func (l *Logger) Log(level, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	formattedMessage := fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, formattedMessage)
	l.logs[l.logIndex] = formattedMessage
	l.logIndex = (l.logIndex + 1) % l.maxLogs
}

func (l *Logger) Info(message string) {
	l.Log("INFO", message)
}

func (l *Logger) Debug(message string) {
	l.Log("DEBUG", message)
}

func (l *Logger) Warn(message string) {
	l.Log("WARN", message)
}

func (l *Logger) Error(message string) {
	l.Log("ERROR", message)
}

// Global recovery system. Must be deferred directly.
func (l *Logger) RecoverAndLogPanic() {
	if r := recover(); r != nil {
		l.Error(fmt.Sprintf("recovered panic: %v", r))
		l.WriteCrashFile(r)
	}
}

// Write the recent logs and the panic value to a timestamped file in the crash directory
func (l *Logger) WriteCrashFile(r any) (string, error) {
	recentLogs := l.GetRecentLogs()

	if err := os.MkdirAll(l.crashDir, os.ModePerm); err != nil {
		fmt.Fprintf(l.out, "Failed to create log directory: %v\n", err)
		return "", err
	}

	timestamp := time.Now().Format("20060102-150405.000")
	crashFile := filepath.Join(l.crashDir, fmt.Sprintf("crash-%s.log", timestamp))
	file, err := os.Create(crashFile)
	if err != nil {
		fmt.Fprintf(l.out, "Failed to create crash file: %v\n", err)
		return "", err
	}
	defer file.Close()

	fmt.Fprintf(file, "==== Crash Report ====\n")
	fmt.Fprintf(file, "Time: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Panic: %v\n\n", r)
	fmt.Fprintf(file, "%s\n", debug.Stack())
	fmt.Fprintf(file, "==== Last %d Logs ====\n", l.maxLogs)
	for _, log := range recentLogs {
		fmt.Fprintln(file, log)
	}
	return crashFile, nil
}

// Get the recent logs stored in the ring, oldest first
func (l *Logger) GetRecentLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var recentLogs []string
	for i := 0; i < l.maxLogs; i++ {
		index := (l.logIndex + i) % l.maxLogs
		if l.logs[index] != "" {
			recentLogs = append(recentLogs, l.logs[index])
		}
	}
	return recentLogs
}
