package logger

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const timeFormat = "2006/01/02 15:04:05"

var (
	logMu  sync.RWMutex
	stdout = newLogger(os.Stdout)
	file   *log.Logger
	rot    *dailyFile
)

func newLogger(w *os.File) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Level:           log.InfoLevel,
	})
}

// Init enables file logging under logDir. Passing "" keeps stdout-only logging.
func Init(logDir string) error {
	if logDir == "" {
		return nil
	}
	// If caller passes /var/lib/macallow, write logs to /var/lib/macallow/logs.
	// If caller already passes .../logs, keep it as-is.
	resolved := logDir
	if path.Base(filepath.ToSlash(logDir)) != "logs" {
		resolved = filepath.Join(logDir, "logs")
	}
	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return err
	}

	d := &dailyFile{dir: resolved}
	if err := d.rotate(time.Now()); err != nil {
		return err
	}

	logMu.Lock()
	defer logMu.Unlock()
	if rot != nil {
		_ = rot.Close()
	}
	rot = d
	file = log.NewWithOptions(d, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Level:           stdout.GetLevel(),
	})
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if rot != nil {
		_ = rot.Close()
		rot = nil
	}
	file = nil
}

// SetLevel accepts debug, info, warn or error.
func SetLevel(name string) error {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return err
	}
	logMu.Lock()
	defer logMu.Unlock()
	stdout.SetLevel(lvl)
	if file != nil {
		file.SetLevel(lvl)
	}
	return nil
}

// Std returns the stdout logger, e.g. for adapting third-party loggers.
func Std() *log.Logger {
	return stdout
}

func Debug(format string, args ...interface{}) {
	each(func(l *log.Logger) { l.Debugf(format, args...) })
}

func Info(format string, args ...interface{}) {
	each(func(l *log.Logger) { l.Infof(format, args...) })
}

func Warn(format string, args ...interface{}) {
	each(func(l *log.Logger) { l.Warnf(format, args...) })
}

func Error(format string, args ...interface{}) {
	each(func(l *log.Logger) { l.Errorf(format, args...) })
}

func each(fn func(*log.Logger)) {
	logMu.RLock()
	f := file
	logMu.RUnlock()
	fn(stdout)
	if f != nil {
		fn(f)
	}
}
