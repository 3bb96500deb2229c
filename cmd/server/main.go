package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoCodeAlone/workflow-plugin-soap/config"
)

var (
	configFile = flag.String("config", "", "Path to configuration YAML file")
	addr       = flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	watch      = flag.Bool("watch", true, "Apply log level and rate limit changes when the config file is edited")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(*configFile)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	var level slog.LevelVar
	lvl, _ := cfg.Log.SlogLevel()
	level.Set(lvl)
	logger := newLogger(os.Stdout, cfg.Log.Format, &level)
	if *configFile == "" {
		logger.Info("No config file specified, using defaults")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}

	var watcher *config.Watcher
	if *watch && *configFile != "" {
		watcher = config.NewWatcher(*configFile, func(next *config.Config) {
			if l, err := next.Log.SlogLevel(); err == nil {
				level.Set(l)
			}
			rl := next.Server.RateLimit
			svc.api.SetRateLimit(rl.RequestsPerMinute, rl.Burst)
			logger.Info("Applied configuration change",
				"level", next.Log.Level,
				"requestsPerMinute", rl.RequestsPerMinute,
				"burst", rl.Burst,
			)
		}, config.WithWatchLogger(logger))
		if err := watcher.Start(); err != nil {
			log.Fatalf("Failed to watch configuration: %v", err)
		}
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      svc.api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("API server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			log.Printf("Config watcher shutdown error: %v", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	svc.close(shutdownCtx)

	fmt.Println("Shutdown complete")
}

func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
