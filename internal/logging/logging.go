// Package logging builds the process logger.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger that writes debug to warn entries to stdout and
// errors to stderr. When path is set, every entry is also appended to that
// file as JSON. The returned func flushes the logger and closes the file.
func New(level, path string) (*zap.Logger, func(), error) {
	minLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}

	var file zapcore.WriteSyncer
	var closeFile func()
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		file = zapcore.AddSync(f)
		closeFile = func() { f.Close() }
	}

	logger := build(minLevel, zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr), file)
	cleanup := func() {
		_ = logger.Sync()
		if closeFile != nil {
			closeFile()
		}
	}
	return logger, cleanup, nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// build tees one core per destination. file may be nil.
func build(minLevel zapcore.Level, stdout, stderr, file zapcore.WriteSyncer) *zap.Logger {
	console := encoderConfig()
	console.EncodeLevel = zapcore.CapitalLevelEncoder

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= minLevel && l < zapcore.ErrorLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= minLevel && l >= zapcore.ErrorLevel
	})

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(console), stdout, low),
		zapcore.NewCore(zapcore.NewConsoleEncoder(console), stderr, high),
	}
	if file != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), file, minLevel))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// Named returns a child logger for a component.
func Named(base *zap.Logger, component string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(component)
}
