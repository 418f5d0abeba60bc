// Command oxy-life runs Conway's Game of Life on the GPU.
//
// The grid is a torus: every generation is computed by a compute shader that reads one storage
// buffer and writes the other, and the render pass draws the buffer just written. With
// -backend software the same pipelines run on the CPU and nothing is shown, which is useful for
// benchmarking and for machines without a GPU.
//
// Keys: space pauses, N single steps while paused, R reseeds, C clears, - and = change the
// speed, Esc quits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-life/engine"
	"github.com/Carmen-Shannon/oxy-life/engine/config"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer"
	"github.com/Carmen-Shannon/oxy-life/engine/window"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "oxy-life: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, configPath, err := config.Parse("oxy-life", args)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Level())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var surface renderer.SurfaceSource
	var win window.Window
	if cfg.BackendType() == renderer.BackendTypeWGPU {
		win, err = window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
			window.WithMinSize(cfg.GridWidth, cfg.GridHeight),
		)
		if err != nil {
			return err
		}
		defer win.Close()
		surface = win
	} else {
		surface = renderer.NewHeadlessSurface(cfg.Window.Width, cfg.Window.Height)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var engineOptions []engine.EngineBuilderOption
	if win != nil {
		engineOptions = append(engineOptions, engine.WithWindow(win))
	}
	a, err := newApp(cfg, logger, surface, reg, engineOptions...)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	if win != nil {
		win.SetKeyDownCallback(a.handleKey)
		win.SetResizeCallback(a.handleResize)
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if configPath != "" {
		if err := config.Watch(ctx, configPath, a.applyConfig, config.WithWatchLogger(logger)); err != nil {
			logger.Warn("config hot reload disabled", zap.Error(err))
		}
	}

	go func() {
		<-ctx.Done()
		a.engine.Quit()
	}()

	if err := a.run(); err != nil {
		logger.Error("simulation stopped", zap.Error(err))
		return err
	}
	return nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		logConfig = zap.NewDevelopmentConfig()
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build()
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server exited", zap.Error(err))
		}
	}()
	return srv
}
