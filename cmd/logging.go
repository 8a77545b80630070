package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/compresr/sherlock/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogging configures zerolog from cfg. When the dashboard owns the
// terminal, terminal outputs are redirected to the default log file.
// The returned closer releases the log file, if any.
func setupLogging(cfg config.LoggingConfig, debug, terminalBusy bool) (io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	target := cfg.Output
	switch strings.ToLower(target) {
	case "", "stderr", "stdout":
		if terminalBusy {
			target = config.DefaultLogPath
		}
	}

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
		isFile bool
	)
	switch strings.ToLower(target) {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	case "none":
		out = io.Discard
	default:
		path := config.ExpandTilde(target)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		out, closer, isFile = f, f, true
	}

	if strings.EqualFold(cfg.Format, "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    isFile,
		}).With().Timestamp().Logger()
	}

	// Keep stray stdlib log output off the dashboard.
	stdlog.SetOutput(out)
	return closer, nil
}
