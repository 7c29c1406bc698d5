package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chaos-io/depthserve/config"
	"github.com/chaos-io/depthserve/depth"
	"github.com/chaos-io/depthserve/depth/onnx"
	"github.com/chaos-io/depthserve/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	slog.SetDefault(newLogger(cfg))
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := depth.LoadRegistry(ctx, registryEntries(cfg)...)
	defer func() {
		if err := registry.Close(); err != nil {
			slog.Warn("close models", "error", err)
		}
		if err := onnx.Shutdown(); err != nil {
			slog.Warn("shutdown onnxruntime", "error", err)
		}
	}()

	if cfg.StatsSchedule != "" {
		reporter, err := server.NewStatsReporter(registry, cfg.StatsSchedule)
		if err != nil {
			slog.Error("stats reporter disabled", "error", err)
		} else {
			reporter.Start()
			defer reporter.Stop()
		}
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.New(registry).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		return
	}
	slog.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
