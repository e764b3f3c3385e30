// Package log is the ambient operational logger the Context uses for its
// rank-0 allocation summary. It is independent of the per-rank wire log
// pipeline in internal/logpipe, which ships messaging-call records to the
// dedicated aux rank instead of this process's own output.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how ambient log lines are written.
type Config struct {
	Level         string // trace|debug|info|warn|error
	Pattern       string // e.g. "%time [%level] %msg %field"
	Time          string // time.Format layout
	Console       bool
	File          string
	MaxSizeMB     int
	MaxBackups    int
	MaxAgeDays    int
	Compress      bool
}

func defaultConfig(cfg Config) Config {
	if cfg.Pattern == "" {
		cfg.Pattern = "%time [%level] %msg %field"
	}
	if cfg.Time == "" {
		cfg.Time = "2006-01-02T15:04:05.000Z07:00"
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	return cfg
}

// New builds a logrus logger writing to Console and/or a lumberjack-rotated
// File, fanned out through an io.MultiWriter the way the teacher's
// MultiWriter builder does.
func New(cfg Config) *logrus.Logger {
	cfg = defaultConfig(cfg)

	var writers []io.Writer
	if cfg.Console || cfg.File == "" {
		writers = append(writers, os.Stdout)
	}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}

	l := logrus.New()
	l.SetFormatter(&formatter{pattern: cfg.Pattern, time: cfg.Time})
	l.SetOutput(io.MultiWriter(writers...))
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}
