// Package logger builds the zap loggers shared by the server, worker and CLI.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoding
type Format string

const (
	// FormatJSON writes one JSON object per line
	FormatJSON Format = "json"
	// FormatConsole writes human-readable lines for local development
	FormatConsole Format = "console"
)

// Options configures New
type Options struct {
	Debug   bool
	Format  Format
	Service string
}

// New creates a logger. JSON output uses ISO8601 timestamps and short callers;
// stack traces are attached from error level up.
func New(opts Options) (*zap.Logger, error) {
	var config zap.Config
	switch opts.Format {
	case FormatConsole:
		config = zap.NewDevelopmentConfig()
	case FormatJSON, "":
		config = zap.NewProductionConfig()
		config.Encoding = "json"
		config.EncoderConfig = zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.Debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	config.DisableStacktrace = false

	if opts.Service != "" {
		config.InitialFields = map[string]any{"service": opts.Service}
	}

	return config.Build()
}

// NewProductionLogger creates a JSON logger for a named service
func NewProductionLogger(service string, debugMode bool) (*zap.Logger, error) {
	return New(Options{Debug: debugMode, Format: FormatJSON, Service: service})
}

// Sync flushes buffered entries. It is safe on a nil logger.
func Sync(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	return logger.Sync()
}
