// Package logger writes structured logs to a rotating file under the config
// directory. All helpers are no-ops until Init or UseWriter runs.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It stays nil when logging is not set up.
var Logger *log.Logger

type Config struct {
	// Dir holds the logs/ directory.
	Dir   string
	Debug bool
	// Level is one of debug, info, warn or error. Debug forces debug.
	Level  string
	Format string
	// Stderr mirrors file output to stderr.
	Stderr bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Path returns the log file location for dir.
func Path(dir string) string {
	return filepath.Join(dir, "logs", "daychain.log")
}

func Init(cfg Config) error {
	level := log.InfoLevel
	if cfg.Level != "" {
		l, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}
	if cfg.Debug {
		level = log.DebugLevel
	}

	path := Path(cfg.Dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var w io.Writer = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    orDefault(cfg.MaxSizeMB, 10),
		MaxBackups: orDefault(cfg.MaxBackups, 3),
		MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		Compress:   true,
	}
	if cfg.Debug || cfg.Stderr {
		w = io.MultiWriter(os.Stderr, w)
	}

	Logger = log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "daychain",
		Formatter:       formatter(cfg.Format),
	})
	return nil
}

func formatter(name string) log.Formatter {
	switch strings.ToLower(name) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// UseWriter sends debug-level output to w.
func UseWriter(w io.Writer) {
	Logger = log.NewWithOptions(w, log.Options{Level: log.DebugLevel, Prefix: "daychain"})
}

// Component returns a logger prefixed with name. It discards output when logging
// is off.
func Component(name string) *log.Logger {
	if Logger == nil {
		return log.New(io.Discard)
	}
	return Logger.WithPrefix("daychain/" + name)
}

func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
