package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alexandrut83/rigdash/config"
	"github.com/alexandrut83/rigdash/dashboard"
	"github.com/alexandrut83/rigdash/rigcloud"
)

var configPath = flag.String("config", "", "Path to YAML config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("rigdash stopped", zap.Error(err))
	}
	logger.Info("Shut down")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client := rigcloud.NewClient(cfg.Backend.URL, cfg.Backend.Path, nil, logger.Named("rigcloud"))
	if err := client.LoadConfig(ctx); err != nil {
		return err
	}

	ctrl := dashboard.NewController(
		dashboard.NewFilePrefs(cfg.Prefs.Path),
		logger.Named("dashboard"),
		dashboard.WithStaleAfter(cfg.Stream.StaleAfter),
		dashboard.WithHistory(dashboard.NewHistory(0)),
	)
	stream := rigcloud.NewStream(client.StreamURL, logger.Named("stream"),
		rigcloud.WithReconnectDelay(cfg.Stream.ReconnectDelay))
	fallback := dashboard.NewFallback(ctrl, client, cfg.Stream.PollInterval, logger.Named("fallback"))
	hub := newPushHub(ctrl, logger.Named("push"))

	srv := &server{
		ctrl:    ctrl,
		actions: dashboard.NewActions(ctrl, client, logger.Named("actions")),
		editor:  dashboard.NewEditor(client, ctrl, logger.Named("flightsheets")),
		hub:     hub,
		stream:  stream,
		logger:  logger,
		now:     time.Now,
	}
	httpSrv := &http.Server{
		Addr:              cfg.Console.Listen,
		Handler:           newRouter(srv, *cfg, newAccessLogger()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Worker stopped", zap.String("worker", name), zap.Error(err))
			}
		}()
	}

	start("controller", ctrl.Run)
	start("stream", func(ctx context.Context) error {
		return stream.Run(ctx, dashboard.NewFrameSink(ctrl, logger.Named("frames")))
	})
	start("fallback", func(ctx context.Context) error {
		if _, err := fallback.Poll(ctx); err != nil {
			logger.Warn("Initial rig fetch failed", zap.Error(err))
		}
		return fallback.Run(ctx)
	})
	start("push", hub.Run)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting console",
			zap.String("listen", cfg.Console.Listen),
			zap.String("backend", cfg.Backend.URL+client.BasePath()),
			zap.Bool("auth", cfg.Console.AuthEnabled()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Console shutdown", zap.Error(err))
	}

	cancel()
	wg.Wait()
	return serveErr
}
