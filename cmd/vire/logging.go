package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLogLevel  = "warn"
	defaultLogFormat = "console"
)

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		s = defaultLogLevel
	}
	return zapcore.ParseLevel(s)
}

func checkLogFormat(s string) error {
	switch s {
	case "", "console", "json":
		return nil
	}
	return fmt.Errorf("unsupported log format %q (must be console or json)", s)
}

// newLogger builds the CLI logger writing to w.
func newLogger(w io.Writer, level, format string, colored bool) (*zap.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	if err := checkLogFormat(format); err != nil {
		return nil, err
	}
	if format == "" {
		format = defaultLogFormat
	}

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		if colored {
			cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core).Named("vire"), nil
}
