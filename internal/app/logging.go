package app

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// LoggerConfig configures the application logger.
type LoggerConfig struct {
	// Level is the minimum level to log.
	Level zapcore.Level

	// Format is "json" or "console".
	Format string

	// Name is attached to every entry as the logger name.
	Name string
}

// ParseLogLevel parses a log level string. Unknown values map to info.
func ParseLogLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds a zap logger. JSON output uses the production encoder;
// console output uses the development encoder with colored levels.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	var zc zap.Config
	switch cfg.Format {
	case LogFormatConsole:
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.Level)

	logger, err := zc.Build()
	if err != nil {
		return nil, NewOperationError("build logger", cfg.Format, err)
	}
	if cfg.Name != "" {
		logger = logger.Named(cfg.Name)
	}
	return logger, nil
}
