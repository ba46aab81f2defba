package logger

import (
	"io"
	"os"
	"path/filepath"
	"vance/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init configures the standard logrus logger: JSON lines on stdout and,
// when cfg.File is set, a rotating log file.
func Init(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	writers := []io.Writer{os.Stdout}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			logrus.WithError(err).Warn("could not create log directory")
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize, // MB
			MaxAge:     cfg.MaxAge,  // days
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
			Compress:   true,
		})
	}

	logrus.SetOutput(io.MultiWriter(writers...))
}
