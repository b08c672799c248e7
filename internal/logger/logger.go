package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"policy-rag/internal/config"
)

// Setup configures the global zerolog logger: human readable console output on stderr and,
// when cfg.File is set, a rotating JSON log file.
func Setup(cfg config.LogConfig) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(level)
	log.Logger = New(cfg, os.Stderr)
	return nil
}

// New builds a logger writing to console, plus the rotating file from cfg if any
func New(cfg config.LogConfig, console io.Writer) zerolog.Logger {
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Caller().Logger()
}
