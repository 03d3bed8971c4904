// Package logging configures zerolog for both binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options selects the level and an optional rotating log file.
type Options struct {
	Level string
	// File is the base name of a daily rotated log file. Empty keeps
	// logging on the console only.
	File    string
	Console io.Writer
}

// Setup builds a logger from opts and installs it as the global log.Logger.
func Setup(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	var out io.Writer = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}

	if opts.File != "" {
		rl, err := rotatelogs.New(RotatedName(opts.File),
			rotatelogs.WithMaxAge(7*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, rl)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, nil
}

// RotatedName returns the strftime pattern for a daily rotated log file.
func RotatedName(base string) string {
	return base + "_%Y%m%d"
}
