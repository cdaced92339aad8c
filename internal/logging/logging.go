// Package logging builds the zap logger shared by the commands.
//
// Logs go to stderr. Standard output is reserved for account data so a
// replay can be piped straight into another program.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// Verbose forces the debug level.
	Verbose bool

	// JSON selects the JSON encoder instead of the console encoder.
	JSON bool
}

// New builds a logger writing to stderr.
func New(opts Options) (*zap.Logger, error) {
	level, err := resolveLevel(opts)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if opts.JSON {
		cfg.Encoding = "json"
	} else {
		cfg.Encoding = "console"
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

// MustNew is New for command setup paths that cannot continue without a
// logger. It falls back to a logger on os.Stderr if the options are invalid.
func MustNew(opts Options) *zap.Logger {
	logger, err := New(opts)
	if err == nil {
		return logger
	}

	fallback := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	))
	fallback.Warn("invalid logger options, using defaults", zap.Error(err))

	return fallback
}

func resolveLevel(opts Options) (zap.AtomicLevel, error) {
	if opts.Verbose {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel), nil
	}

	if strings.TrimSpace(opts.Level) == "" {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}

	var parsed zapcore.Level
	if err := parsed.Set(strings.ToLower(opts.Level)); err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid level %q: %w", opts.Level, err)
	}

	return zap.NewAtomicLevelAt(parsed), nil
}
