package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pengo/internal/api"
	"pengo/internal/config"
	"pengo/internal/events"
	apphttp "pengo/internal/http"
	applog "pengo/internal/log"
)

func main() {
	// Optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		applog.New(applog.ParseLevel("info"), "main").Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		applog.New(applog.ParseLevel("info"), "main").Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := applog.New(applog.ParseLevel(cfg.LogLevel), "main")
	applog.SetDefault(logger)

	backend := api.New(cfg.APIBaseURL, cfg.APITimeout)

	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// The UI works without the event stream; run degraded.
			logger.Warn("Event publisher unavailable, continuing without it", "error", err)
			publisher = nil
		} else {
			defer publisher.Close()
			logger.Info("Event publisher connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, backend, apphttp.Options{
		CacheTTL:       cfg.CacheTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Publisher:      publisher,
		Logger:         logger.WithComponent("http"),
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting pengo server", "port", cfg.Port, "backend", cfg.APIBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
