package main

import (
	"io"

	"go.uber.org/zap"

	"vire/internal/observ"
)

func (a *app) reportTimings(out io.Writer, tm *observ.Timer, log *zap.Logger) {
	if tm == nil || out == nil {
		return
	}
	if _, err := io.WriteString(out, tm.Summary()); err != nil {
		log.Warn("failed to print timings", zap.Error(err))
	}
	tm.Log(log)
}
