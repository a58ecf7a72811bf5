// Package logging builds the zap logger used by the command line tools.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvVar controls logging verbosity when no level is passed. When
// unset or empty, logging is silent.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "FORMSTATE_LOG_LEVEL"

// New creates a console logger writing to stderr. An empty level falls back
// to FORMSTATE_LOG_LEVEL; when both are empty the logger is a no-op.
func New(level string) (*zap.Logger, error) {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if strings.TrimSpace(level) == "" {
		return zap.NewNop(), nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", level)
}
