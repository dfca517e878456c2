package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/olgamyk/outfit-shopper/internal/config"
	"github.com/olgamyk/outfit-shopper/internal/core/catalog"
	"github.com/olgamyk/outfit-shopper/internal/core/ports"
	"github.com/olgamyk/outfit-shopper/internal/core/usecase"
	"github.com/olgamyk/outfit-shopper/internal/infrastructure/imagefetch"
	"github.com/olgamyk/outfit-shopper/internal/infrastructure/queue/nats"
	"github.com/olgamyk/outfit-shopper/internal/infrastructure/repository/postgres"
	"github.com/olgamyk/outfit-shopper/internal/infrastructure/resilience"
	"github.com/olgamyk/outfit-shopper/internal/infrastructure/search/geminiweb"
	"github.com/olgamyk/outfit-shopper/internal/infrastructure/search/serpapi"
	"github.com/olgamyk/outfit-shopper/internal/infrastructure/storage/localfs"
	"github.com/olgamyk/outfit-shopper/internal/infrastructure/vision/gemini"
)

type App struct {
	Config config.Config

	Queue   ports.MessageQueue
	Repo    ports.OutfitRepository
	Blobs   *localfs.Storage
	Tables  *catalog.Tables

	SubmitUC  ports.OutfitSubmitter
	ProcessUC ports.OutfitProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewOutfitRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	blobs, err := localfs.New(cfg.StoragePath, cfg.PublicBaseURL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init blob storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	tables := catalog.Default()
	fetcher := imagefetch.New(10 * time.Second)

	vision, genaiClient, err := buildVisionModel(ctx, cfg, executor)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	backends, textBackend, err := buildSearchBackends(cfg, vision, fetcher)
	if err != nil {
		if genaiClient != nil {
			_ = genaiClient.Close()
		}
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	extractUC := usecase.NewExtractItemsUseCase(vision, fetcher, blobs, tables, usecase.ExtractConfig{
		MaxItems:             cfg.ExtractMaxItems,
		CropEnabled:          cfg.ExtractCropEnabled,
		PlaceholderOnFailure: cfg.ExtractPlaceholderOnFailure,
	})
	matchUC := usecase.NewMatchProductsUseCase(backends, textBackend, tables, usecase.MatchConfig{
		TextFallbackEnabled: cfg.MatchTextFallback,
		ItemDelay:           time.Duration(cfg.MatchItemDelayMs) * time.Millisecond,
		BackendTimeout:      time.Duration(cfg.MatchBackendTimeoutS) * time.Second,
		CandidateCap:        cfg.MatchCandidateCap,
	})

	submitUC := usecase.NewSubmitOutfitUseCase(repo, blobs, queue)
	processUC := usecase.NewProcessOutfitUseCase(repo, vision, fetcher, blobs, extractUC, matchUC)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,
		Blobs:  blobs,
		Tables: tables,

		SubmitUC:  submitUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			if genaiClient != nil {
				_ = genaiClient.Close()
			}
			_ = db.Close()
		},
	}, nil
}

// buildVisionModel returns a nil model when no API key is configured; the
// pipeline then degrades per its fallback rules instead of failing startup.
func buildVisionModel(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.VisionModel, *genai.Client, error) {
	if cfg.GeminiAPIKey == "" {
		slog.Warn("gemini_disabled", "reason", "GEMINI_API_KEY is empty")
		return nil, nil, nil
	}

	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, nil, fmt.Errorf("init gemini client: %w", err)
	}

	vision, err := gemini.New(genaiClient, gemini.Options{
		Model:              cfg.GeminiModel,
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = genaiClient.Close()
		return nil, nil, fmt.Errorf("init vision model: %w", err)
	}
	return vision, genaiClient, nil
}

func buildSearchBackends(cfg config.Config, vision ports.VisionModel, fetcher ports.ImageFetcher) ([]ports.SearchBackend, ports.TextSearchBackend, error) {
	var backends []ports.SearchBackend
	var textBackend ports.TextSearchBackend

	if cfg.SerpAPIKey != "" {
		client, err := serpapi.New(serpapi.Options{APIKey: cfg.SerpAPIKey})
		if err != nil {
			return nil, nil, fmt.Errorf("init serpapi client: %w", err)
		}
		backends = append(backends, serpapi.NewLensBackend(client))
		textBackend = serpapi.NewShoppingBackend(client)
	} else {
		slog.Warn("serpapi_disabled", "reason", "SERPAPI_KEY is empty")
	}

	if vision != nil {
		backends = append(backends, geminiweb.New(vision, fetcher))
	}

	return backends, textBackend, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
