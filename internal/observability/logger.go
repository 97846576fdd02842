// Package observability builds the process logger.
package observability

import (
	"fmt"
	"strings"

	"github.com/upb/leaddesk/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats accepted in LOG_FORMAT
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// NewLogger builds a production JSON logger or a development console logger
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zapCfg zap.Config
	switch strings.ToLower(cfg.LogFormat) {
	case FormatConsole:
		zapCfg = zap.NewDevelopmentConfig()
	case FormatJSON, "":
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "timestamp"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.With(zap.String("service", "leaddesk")), nil
}
