// Package observability contains logging setup shared by the CLI and the
// HTTP server.
package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SetupLogger builds a zap.Logger writing to stderr, sets it as the global
// logger, and redirects the stdlib log package. Decoded rows go to stdout, so
// diagnostics must stay off it. The caller should defer logger.Sync().
func SetupLogger(levelName, format string) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(levelName) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "info", "":
		level.SetLevel(zap.InfoLevel)
	case "warn", "warning":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}

	var encoder zapcore.Encoder
	if strings.ToLower(format) == "json" {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	zap.ReplaceGlobals(logger)
	_, _ = zap.RedirectStdLogAt(logger, zap.InfoLevel)
	return logger, nil
}
