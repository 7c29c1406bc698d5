package util

import (
	"log/slog"
	"time"
)

// Trace 记录一段调用的耗时，用法：defer util.Trace("name")()
func Trace(name string, args ...any) func() {
	start := time.Now()
	return func() {
		slog.Debug(name, append(args, "elapsed", time.Since(start))...)
	}
}
