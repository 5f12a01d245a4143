package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Package-level loggers used across the service. They are usable before
// InitLoggers runs (stdout, text format) so tests need no setup.
var (
	InfoLogger  = logrus.New()
	WarnLogger  = logrus.New()
	ErrorLogger = logrus.New()
)

// Options controls where and how the loggers write.
type Options struct {
	Dir        string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// InitLoggers wires the three loggers to stdout and a rotating file per level.
func InitLoggers(opts Options) {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		logrus.Warnf("logger: cannot create log dir %s, logging to stdout only: %v", opts.Dir, err)
		opts.Dir = ""
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	InfoLogger = newLogger(opts, "info.log", level)
	WarnLogger = newLogger(opts, "warn.log", level)
	ErrorLogger = newLogger(opts, "error.log", level)
}

func newLogger(opts Options, file string, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	l.SetLevel(level)

	if opts.Dir == "" {
		l.SetOutput(os.Stdout)
		return l
	}

	l.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, file),
		MaxSize:    orDefault(opts.MaxSizeMB, 10),
		MaxBackups: orDefault(opts.MaxBackups, 5),
		MaxAge:     orDefault(opts.MaxAgeDays, 30),
		Compress:   true,
	}))
	return l
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
