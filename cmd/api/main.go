package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/olgamyk/outfit-shopper/internal/adapters/http"
	"github.com/olgamyk/outfit-shopper/internal/bootstrap"
	"github.com/olgamyk/outfit-shopper/internal/config"
	"github.com/olgamyk/outfit-shopper/internal/observability/logging"
	"github.com/olgamyk/outfit-shopper/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(app.SubmitUC, app.Repo, app.Blobs, serverMetrics, httpadapter.TrafficLimits{
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxConcurrent:  cfg.APIMaxConcurrent,
	}).Handler()

	mux := http.NewServeMux()
	mux.Handle("/metrics", serverMetrics.Handler())
	mux.Handle("/", router)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_error", "error", err)
	}
}
