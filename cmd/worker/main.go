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

	"github.com/olgamyk/outfit-shopper/internal/bootstrap"
	"github.com/olgamyk/outfit-shopper/internal/config"
	"github.com/olgamyk/outfit-shopper/internal/observability/logging"
	"github.com/olgamyk/outfit-shopper/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeOutfitSubmitted(ctx, func(handlerCtx context.Context, outfitID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if outfit, getErr := app.Repo.GetByID(processCtx, outfitID); getErr == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(outfit.CreatedAt))
		}

		workerMetrics.StartOutfit()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, outfitID)
		workerMetrics.FinishOutfit("worker", time.Since(start), processErr)

		if processErr == nil {
			recordPipelineMetrics(processCtx, app, workerMetrics, outfitID)
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func recordPipelineMetrics(ctx context.Context, app *bootstrap.App, workerMetrics *metrics.WorkerMetrics, outfitID string) {
	outfit, err := app.Repo.GetByID(ctx, outfitID)
	if err != nil {
		return
	}
	workerMetrics.ObserveExtraction("worker", len(outfit.Items))
	for _, result := range outfit.Shopping {
		workerMetrics.ObserveItemMatch("worker", result.SearchMethod, len(result.Candidates))
	}
}
